package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldProject    = "project"
	FieldURL        = "url"
	FieldPID        = "pid"
	FieldIsolateID  = "isolateID"
	FieldState      = "state"
	FieldAttempt    = "attempt"
	FieldDurationMs = "duration_ms"
)

const (
	EventProbeAttempt = "probe_attempt"
	EventProbeFailure = "probe_failure"
	EventReuse        = "reuse"
	EventSpawnAttempt = "spawn_attempt"
	EventSpawnSuccess = "spawn_success"
	EventSpawnFailure = "spawn_failure"
	EventHungProcess  = "hung_process"
	EventStopSuccess  = "stop_success"
	EventStopFailure  = "stop_failure"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ProjectField(hash string) zap.Field {
	return zap.String(FieldProject, hash)
}

func URLField(url string) zap.Field {
	return zap.String(FieldURL, url)
}

func PIDField(pid int) zap.Field {
	return zap.Int(FieldPID, pid)
}

func IsolateIDField(id string) zap.Field {
	return zap.String(FieldIsolateID, id)
}

func StateField(state string) zap.Field {
	return zap.String(FieldState, state)
}

func AttemptField(attempt int) zap.Field {
	return zap.Int(FieldAttempt, attempt)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}
