package app

import (
	"context"
	"errors"

	"flutterctl/internal/domain"
)

// Reload triggers a hot reload. The flutter tool's machine protocol handles
// reload itself, so a live managed process is preferred; with --url (or a
// dead record) the VM service reassemble call is the fallback.
func (s *Service) Reload(ctx context.Context, projectDir, url string) error {
	if url == "" {
		err := s.sendRestart(projectDir, false)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrNotManaged) {
			return err
		}
	}
	return s.withIsolate(ctx, projectDir, url, func(ctx context.Context, conn domain.Conn, iso domain.Isolate) error {
		_, err := conn.Call(ctx, "ext.flutter.reassemble", map[string]any{"isolateId": iso.ID})
		return err
	})
}

// Restart triggers a hot restart. Unlike reload there is no clean VM
// service equivalent without the flutter tool, so a managed process is
// required.
func (s *Service) Restart(ctx context.Context, projectDir, url string) error {
	if url != "" {
		return domain.ErrNotManaged
	}
	return s.sendRestart(projectDir, true)
}

func (s *Service) sendRestart(projectDir string, fullRestart bool) error {
	record, alive := s.connector.RecordFor(projectDir)
	if record == nil || !alive {
		return domain.ErrNotManaged
	}
	return s.connector.SendMachineCommand(projectDir, "app.restart", map[string]any{
		"appId":       record.AppID,
		"fullRestart": fullRestart,
		"reason":      "flutterctl",
	})
}

// Status reports what is known about the project's connection without ever
// spawning a process.
type Status struct {
	Managed   bool   `json:"managed"`
	URL       string `json:"url,omitempty"`
	PID       int    `json:"pid,omitempty"`
	AppID     string `json:"appId,omitempty"`
	PIDAlive  bool   `json:"pidAlive"`
	Reachable bool   `json:"reachable"`
	LogPath   string `json:"logPath,omitempty"`
}

func (s *Service) Status(ctx context.Context, projectDir, url string) Status {
	if url != "" {
		return Status{URL: url, Reachable: s.reachable(ctx, url)}
	}

	record, alive := s.connector.RecordFor(projectDir)
	if record == nil {
		return Status{}
	}
	status := Status{
		Managed:  true,
		URL:      record.ServiceURL,
		PID:      record.PID,
		AppID:    record.AppID,
		PIDAlive: alive,
		LogPath:  record.LogPath,
	}
	if alive && record.ServiceURL != "" {
		status.Reachable = s.reachable(ctx, record.ServiceURL)
	}
	return status
}

func (s *Service) reachable(ctx context.Context, url string) bool {
	if s.dial == nil {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, domain.DefaultProbeTimeout)
	defer cancel()
	conn, err := s.dial(probeCtx, url)
	if err != nil {
		return false
	}
	defer conn.Close()
	return conn.Ping(probeCtx)
}

// Stop terminates the managed process and clears its record. Returns the
// stopped record, or nil when nothing was managed.
func (s *Service) Stop(ctx context.Context, projectDir string) (*domain.ProcessRecord, error) {
	return s.connector.Stop(ctx, projectDir)
}
