package supervisor

import "encoding/json"

// machineEvent is one `flutter run --machine` stdout event. The tool emits
// either a bare object or a single-element array wrapping it, one per line;
// anything that is not JSON (compiler chatter, progress output) is skipped.
type machineEvent struct {
	Event  string          `json:"event"`
	Params json.RawMessage `json:"params"`
}

const (
	eventDebugPort      = "app.debugPort"
	eventAppStop        = "app.stop"
	eventDaemonShutdown = "daemon.shutdown"
)

type debugPortParams struct {
	WSURI string `json:"wsUri"`
	AppID string `json:"appId"`
}

// decodeMachineEvent parses one stdout line. ok is false for non-JSON lines
// and JSON without an event name.
func decodeMachineEvent(line []byte) (event machineEvent, ok bool) {
	var raw json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return machineEvent{}, false
	}

	var wrapped []json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if len(wrapped) == 0 {
			return machineEvent{}, false
		}
		raw = wrapped[0]
	}

	if err := json.Unmarshal(raw, &event); err != nil {
		return machineEvent{}, false
	}
	return event, event.Event != ""
}

func (e machineEvent) debugPort() (debugPortParams, bool) {
	if e.Event != eventDebugPort || len(e.Params) == 0 {
		return debugPortParams{}, false
	}
	var params debugPortParams
	if err := json.Unmarshal(e.Params, &params); err != nil {
		return debugPortParams{}, false
	}
	return params, params.WSURI != ""
}
