//go:build !linux

package supervisor

import (
	"fmt"

	"flutterctl/internal/domain"
)

// Without procfs there is no way to reach the stdin of a process spawned by
// an earlier invocation, so machine commands degrade to the unmanaged path.
func writeMachineCommand(pid int, command any) error {
	return fmt.Errorf("%w: machine stdin delivery requires procfs", domain.ErrNotManaged)
}
