package statestore

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// ProjectHash derives the stable key for a project directory. The path is
// canonicalized first so `.` and an absolute spelling of the same directory
// share one record.
func ProjectHash(projectDir string) string {
	canonical, err := filepath.Abs(projectDir)
	if err != nil {
		canonical = projectDir
	}
	if resolved, err := filepath.EvalSymlinks(canonical); err == nil {
		canonical = resolved
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:16]
}
