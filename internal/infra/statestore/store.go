package statestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"flutterctl/internal/domain"
)

const projectsBucket = "projects"

// Store persists one ProcessRecord per project hash in a bbolt file. The
// database is opened per operation and never held across a spawn, so a
// second invocation is not locked out while flutter run builds.
//
// Records are JSON values; unknown fields are ignored on read so future
// binaries can extend the record without breaking older readers.
type Store struct {
	path   string
	logger *zap.Logger
}

func New(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("state store path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir: %w", err)
	}
	return &Store{path: path, logger: logger.Named("statestore")}, nil
}

// DefaultPath places the database under the user cache directory, falling
// back to the system temp dir when none is defined.
func DefaultPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "flutterctl", "state.db")
}

// Load returns the record for a project hash. A missing, unreadable, or
// malformed record yields nil, nil: the store is a cache, never a reason
// to fail an invocation.
func (s *Store) Load(projectHash string) (*domain.ProcessRecord, error) {
	var record *domain.ProcessRecord
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(projectsBucket))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(projectHash))
		if data == nil {
			return nil
		}
		var rec domain.ProcessRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			// StateCorrupt downgrades to NoRecord.
			s.logger.Warn("discarding unreadable record",
				zap.String("project", projectHash),
				zap.Error(fmt.Errorf("%w: %v", domain.ErrStateCorrupt, err)),
			)
			return nil
		}
		record = &rec
		return nil
	})
	if err != nil {
		s.logger.Warn("state store unreadable", zap.Error(err))
		return nil, nil
	}
	return record, nil
}

func (s *Store) Save(record *domain.ProcessRecord) error {
	if record == nil || record.ProjectHash == "" {
		return domain.E(domain.CodeInvalidArgument, "statestore.Save", "record with project hash is required", nil)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return domain.Wrap(domain.CodeInternal, "statestore.Save", err)
	}
	err = s.update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(projectsBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(record.ProjectHash), data)
	})
	if err != nil {
		return domain.Wrap(domain.CodeInternal, "statestore.Save", err)
	}
	return nil
}

func (s *Store) Clear(projectHash string) error {
	err := s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(projectsBucket))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(projectHash))
	})
	if err != nil {
		return domain.Wrap(domain.CodeInternal, "statestore.Clear", err)
	}
	return nil
}

func (s *Store) view(fn func(tx *bolt.Tx) error) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

func (s *Store) update(fn func(tx *bolt.Tx) error) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(fn)
}

func (s *Store) open() (*bolt.DB, error) {
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return db, nil
}
