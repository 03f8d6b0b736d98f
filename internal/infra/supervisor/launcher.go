package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"flutterctl/internal/domain"
	"flutterctl/internal/infra/flutterconfig"
	"flutterctl/internal/infra/statestore"
	"flutterctl/internal/infra/telemetry"
)

// Launcher spawns the managed process and discovers its VM service URL.
type Launcher interface {
	Launch(ctx context.Context, projectDir string) (*domain.ProcessRecord, error)
}

// FlutterLauncher runs `flutter run --machine` detached from the invocation
// and scans its stdout event stream for the VM service URL. The child's
// stderr goes to a per-project log file surfaced on startup failure.
type FlutterLauncher struct {
	FlutterBinary  string
	LogDir         string
	StartupTimeout time.Duration

	logger *zap.Logger
}

func NewFlutterLauncher(logDir string, logger *zap.Logger) *FlutterLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlutterLauncher{
		FlutterBinary:  "flutter",
		LogDir:         logDir,
		StartupTimeout: domain.DefaultStartupTimeout,
		logger:         logger.Named("launcher"),
	}
}

func (l *FlutterLauncher) Launch(ctx context.Context, projectDir string) (*domain.ProcessRecord, error) {
	cfg, err := flutterconfig.Load(projectDir)
	if err != nil {
		return nil, err
	}
	args := cfg.RunArgs()

	hash := statestore.ProjectHash(projectDir)
	logPath := filepath.Join(l.LogDir, hash+".stderr")
	if err := os.MkdirAll(l.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log dir: %w", err)
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	defer logFile.Close()

	// Deliberately not CommandContext: the child must survive this
	// invocation. Startup failure is handled by killing it explicitly.
	cmd := exec.Command(l.FlutterBinary, args...)
	cmd.Dir = projectDir
	cmd.Stderr = logFile
	cmd.SysProcAttr = sysProcAttr()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stdout: %w", err)
	}
	if _, err := cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("pipe stdin: %w", err)
	}

	l.logger.Info("spawning flutter run",
		telemetry.EventField(telemetry.EventSpawnAttempt),
		telemetry.ProjectField(hash),
		zap.Strings("args", args),
	)
	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", domain.ErrProcessStartFailed, l.FlutterBinary, err)
	}
	pid := cmd.Process.Pid

	// No cmd.Wait here: the child is meant to outlive this invocation. If
	// it dies early its stdout hits EOF and the scan below reports it.
	startupCtx := ctx
	if l.StartupTimeout > 0 {
		var cancel context.CancelFunc
		startupCtx, cancel = context.WithTimeout(ctx, l.StartupTimeout)
		defer cancel()
	}

	params, err := scanForDebugPort(startupCtx, stdout)
	if err != nil {
		l.logger.Error("flutter run startup failed",
			telemetry.EventField(telemetry.EventSpawnFailure),
			telemetry.ProjectField(hash),
			telemetry.PIDField(pid),
			zap.String("log", logPath),
			zap.Error(err),
		)
		terminatePID(pid, domain.DefaultKillGrace)
		return nil, fmt.Errorf("%w: %v (stderr log: %s)", domain.ErrProcessStartFailed, err, logPath)
	}

	l.logger.Info("flutter run started",
		telemetry.EventField(telemetry.EventSpawnSuccess),
		telemetry.ProjectField(hash),
		telemetry.PIDField(pid),
		telemetry.URLField(params.WSURI),
		telemetry.DurationField(time.Since(started)),
	)
	return &domain.ProcessRecord{
		ProjectHash: hash,
		ServiceURL:  params.WSURI,
		PID:         pid,
		AppID:       params.AppID,
		LogPath:     logPath,
		CreatedAt:   time.Now(),
	}, nil
}

// scanForDebugPort reads newline-delimited machine events until the
// app.debugPort event arrives, the stream ends, the app reports an early
// exit, or ctx expires.
func scanForDebugPort(ctx context.Context, r io.Reader) (debugPortParams, error) {
	type scanResult struct {
		params debugPortParams
		err    error
	}
	done := make(chan scanResult, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			event, ok := decodeMachineEvent(scanner.Bytes())
			if !ok {
				continue
			}
			switch event.Event {
			case eventDebugPort:
				if params, ok := event.debugPort(); ok {
					done <- scanResult{params: params}
					return
				}
			case eventAppStop, eventDaemonShutdown:
				done <- scanResult{err: fmt.Errorf("flutter app exited during startup (%s)", event.Event)}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			done <- scanResult{err: fmt.Errorf("read flutter stdout: %w", err)}
			return
		}
		done <- scanResult{err: fmt.Errorf("flutter run exited without announcing a VM service URL")}
	}()

	select {
	case res := <-done:
		return res.params, res.err
	case <-ctx.Done():
		return debugPortParams{}, fmt.Errorf("waiting for VM service URL: %w", ctx.Err())
	}
}
