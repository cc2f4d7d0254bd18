package infra

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// IsRunning checks if a PID exists and is running.
// A probe failure counts as "not running": crash detection treats an
// undeterminable owner conservatively as dead.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	alive, err := process.PidExists(int32(pid))
	if err != nil {
		return false
	}
	return alive
}

// CurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) CurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
