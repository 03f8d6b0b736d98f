package domain

import "time"

const (
	// DefaultProbeTimeout bounds the reachability check of a recorded URL.
	// Kept short: an unreachable URL on localhost fails fast, and a slow
	// answer means the process is hung anyway.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultStartupTimeout bounds the wait for flutter run --machine to
	// announce its VM service URL. Cold builds on large projects are slow.
	DefaultStartupTimeout = 120 * time.Second

	// DefaultKillGrace is how long a terminated process gets between
	// SIGTERM and SIGKILL.
	DefaultKillGrace = 500 * time.Millisecond

	// DefaultIsolateAttempts and DefaultIsolateBackoff bound isolate
	// discovery. A freshly started app registers its extensions a moment
	// after the VM service comes up.
	DefaultIsolateAttempts = 10
	DefaultIsolateBackoff  = 300 * time.Millisecond

	// DefaultCallTimeout bounds everything a command does on an established
	// connection (isolate discovery plus the RPCs themselves). The connect
	// step is bounded separately: a spawn needs the startup budget.
	DefaultCallTimeout = 30 * time.Second

	// FlutterExtensionPrefix marks service extensions registered by the
	// Flutter framework.
	FlutterExtensionPrefix = "ext.flutter"
)
