//go:build linux

package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
)

// writeMachineCommand delivers a machine-protocol command to a managed
// process spawned by an earlier invocation. The original pipe handle died
// with that invocation, so the write goes through procfs instead.
func writeMachineCommand(pid int, command any) error {
	data, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("encode machine command: %w", err)
	}
	stdinPath := fmt.Sprintf("/proc/%d/fd/0", pid)
	file, err := os.OpenFile(stdinPath, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open flutter run stdin: %w", err)
	}
	defer file.Close()
	if _, err := fmt.Fprintf(file, "%s\n", data); err != nil {
		return fmt.Errorf("write machine command: %w", err)
	}
	return nil
}
