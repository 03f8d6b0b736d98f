package supervisor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"flutterctl/internal/domain"
	"flutterctl/internal/infra/statestore"
	"flutterctl/internal/infra/telemetry"
)

// Dialer opens a VM service connection.
type Dialer func(ctx context.Context, url string) (domain.Conn, error)

// Supervisor decides, per invocation, whether to reuse a recorded process,
// reconnect, or spawn and adopt a new one. All side-effecting collaborators
// are injected so the state machine is testable without real processes.
//
// Known limitation: the load/probe/save sequence holds no cross-process
// lock, so two simultaneous invocations for one project can both observe
// NoRecord and both spawn. The store is the single seam where a file lock
// could later be added.
type Supervisor struct {
	store    domain.StateStore
	dial     Dialer
	launcher Launcher
	logger   *zap.Logger

	probeTimeout time.Duration
	killGrace    time.Duration
	alive        func(pid int) bool
	terminate    func(pid int, grace time.Duration)
}

type Config struct {
	Store        domain.StateStore
	Dial         Dialer
	Launcher     Launcher
	Logger       *zap.Logger
	ProbeTimeout time.Duration
	KillGrace    time.Duration
}

func New(cfg Config) *Supervisor {
	if cfg.Store == nil {
		panic("supervisor.New requires a state store")
	}
	if cfg.Dial == nil {
		panic("supervisor.New requires a dialer")
	}
	if cfg.Launcher == nil {
		panic("supervisor.New requires a launcher")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = domain.DefaultProbeTimeout
	}
	killGrace := cfg.KillGrace
	if killGrace <= 0 {
		killGrace = domain.DefaultKillGrace
	}
	return &Supervisor{
		store:        cfg.Store,
		dial:         cfg.Dial,
		launcher:     cfg.Launcher,
		logger:       logger.Named("supervisor"),
		probeTimeout: probeTimeout,
		killGrace:    killGrace,
		alive:        pidAlive,
		terminate:    terminatePID,
	}
}

// EnsureConnection returns a live session for the project.
//
// With an explicit URL the connection is external: no state is written, no
// process is owned, and a failure is fatal rather than a reason to spawn.
// Otherwise the persisted record is probed and either reused or replaced by
// a freshly spawned process.
func (s *Supervisor) EnsureConnection(ctx context.Context, projectDir, explicitURL string) (*domain.Session, error) {
	if explicitURL != "" {
		conn, err := s.dial(ctx, explicitURL)
		if err != nil {
			return nil, err
		}
		return &domain.Session{Conn: conn, State: domain.StateConnectedExternal}, nil
	}

	hash := statestore.ProjectHash(projectDir)
	record, err := s.store.Load(hash)
	if err != nil {
		// Treated as NoRecord; the store already logged the cause.
		record = nil
	}

	state := domain.StateNoRecord
	if record != nil && record.ServiceURL != "" {
		state = domain.StateRecordedUnverified
	}
	s.logger.Debug("resolving session",
		telemetry.ProjectField(hash),
		telemetry.StateField(string(state)),
	)

	if record != nil && record.ServiceURL != "" {
		if session := s.tryReuse(ctx, hash, record); session != nil {
			return session, nil
		}
		// The recorded process is gone or unusable. An alive-but-unreachable
		// pid is a hung process: stop it before spawning so two processes
		// never race for the same project.
		if record.PID > 0 && s.alive(record.PID) {
			s.logger.Warn("recorded process alive but unreachable, stopping it",
				telemetry.EventField(telemetry.EventHungProcess),
				telemetry.ProjectField(hash),
				telemetry.PIDField(record.PID),
				telemetry.URLField(record.ServiceURL),
			)
			s.terminate(record.PID, s.killGrace)
		}
		_ = s.store.Clear(hash)
	}

	return s.spawn(ctx, projectDir, hash)
}

func (s *Supervisor) tryReuse(ctx context.Context, hash string, record *domain.ProcessRecord) *domain.Session {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	s.logger.Debug("probing recorded service url",
		telemetry.EventField(telemetry.EventProbeAttempt),
		telemetry.ProjectField(hash),
		telemetry.URLField(record.ServiceURL),
	)
	conn, err := s.dial(probeCtx, record.ServiceURL)
	if err != nil {
		s.logger.Debug("recorded service url unreachable",
			telemetry.EventField(telemetry.EventProbeFailure),
			telemetry.ProjectField(hash),
			zap.Error(err),
		)
		return nil
	}
	if !conn.Ping(probeCtx) {
		_ = conn.Close()
		return nil
	}

	s.logger.Debug("reusing managed process",
		telemetry.EventField(telemetry.EventReuse),
		telemetry.ProjectField(hash),
		telemetry.PIDField(record.PID),
	)
	return &domain.Session{Conn: conn, State: domain.StateConnectedManaged, Record: record}
}

func (s *Supervisor) spawn(ctx context.Context, projectDir, hash string) (*domain.Session, error) {
	record, err := s.launcher.Launch(ctx, projectDir)
	if err != nil {
		s.logger.Debug("spawn failed",
			telemetry.ProjectField(hash),
			telemetry.StateField(string(domain.StateDead)),
		)
		return nil, err
	}
	record.ProjectHash = hash
	if err := s.store.Save(record); err != nil {
		s.logger.Warn("persisting record failed", telemetry.ProjectField(hash), zap.Error(err))
	}

	conn, err := s.dial(ctx, record.ServiceURL)
	if err != nil {
		return nil, fmt.Errorf("connect to freshly spawned process: %w", err)
	}
	return &domain.Session{Conn: conn, State: domain.StateConnectedManaged, Record: record}, nil
}

// Stop terminates the managed process for the project. The record is
// cleared only after termination so no other invocation trusts a record
// pointing at a dying process. Returns the record that was stopped, or nil
// when nothing was managed.
func (s *Supervisor) Stop(ctx context.Context, projectDir string) (*domain.ProcessRecord, error) {
	hash := statestore.ProjectHash(projectDir)
	record, err := s.store.Load(hash)
	if err != nil || record == nil {
		return nil, nil
	}

	if record.PID > 0 && s.alive(record.PID) {
		s.terminate(record.PID, s.killGrace)
		if s.alive(record.PID) {
			s.logger.Error("managed process survived termination",
				telemetry.EventField(telemetry.EventStopFailure),
				telemetry.ProjectField(hash),
				telemetry.PIDField(record.PID),
			)
			return record, fmt.Errorf("process %d did not terminate", record.PID)
		}
	}

	if err := s.store.Clear(hash); err != nil {
		return record, fmt.Errorf("clear record: %w", err)
	}
	s.logger.Info("managed process stopped",
		telemetry.EventField(telemetry.EventStopSuccess),
		telemetry.ProjectField(hash),
		telemetry.PIDField(record.PID),
	)
	return record, nil
}

// SendMachineCommand writes an app.* command to the managed process's
// machine-protocol stdin. Used for hot reload/restart, which the flutter
// tool handles itself rather than the VM service.
func (s *Supervisor) SendMachineCommand(projectDir, method string, params map[string]any) error {
	hash := statestore.ProjectHash(projectDir)
	record, err := s.store.Load(hash)
	if err != nil || record == nil || record.PID <= 0 || !s.alive(record.PID) {
		return domain.ErrNotManaged
	}
	command := []map[string]any{{"method": method, "params": params}}
	return writeMachineCommand(record.PID, command)
}

// RecordFor returns the persisted record and its pid liveness for status
// reporting. A nil record means nothing is managed.
func (s *Supervisor) RecordFor(projectDir string) (*domain.ProcessRecord, bool) {
	record, err := s.store.Load(statestore.ProjectHash(projectDir))
	if err != nil || record == nil {
		return nil, false
	}
	return record, record.PID > 0 && s.alive(record.PID)
}
