package infra

import (
	"os"
	"path/filepath"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

// ExecMode represents the execution mode of the application.
type ExecMode string

const (
	// ExecModeUser runs without elevation; only Light enforcement works.
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs elevated and may edit the hosts file.
	ExecModeSystem ExecMode = "system"
)

// ExecModeConfig holds paths and settings based on execution mode.
type ExecModeConfig struct {
	Mode    ExecMode
	DataDir string // Where config, session state and stats live
	IsRoot  bool
}

// DetectExecMode determines the execution mode based on effective UID.
func DetectExecMode() *ExecModeConfig {
	if os.Geteuid() == 0 {
		return &ExecModeConfig{
			Mode:    ExecModeSystem,
			DataDir: "/var/lib/focusguard",
			IsRoot:  true,
		}
	}

	home, _ := os.UserHomeDir()
	return &ExecModeConfig{
		Mode:    ExecModeUser,
		DataDir: filepath.Join(home, ".focusguard"),
		IsRoot:  false,
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (elevated)"
	case ExecModeUser:
		return "user (no elevation)"
	default:
		return "unknown"
	}
}

// PrivilegeCheckerImpl implements domain.PrivilegeChecker via the
// effective UID. Full-mode enforcement edits the hosts file, which is
// root-owned on every supported platform.
type PrivilegeCheckerImpl struct{}

// NewPrivilegeChecker creates a privilege checker.
func NewPrivilegeChecker() domain.PrivilegeChecker {
	return &PrivilegeCheckerImpl{}
}

// IsElevated reports whether the process may edit the hosts file.
func (p *PrivilegeCheckerImpl) IsElevated() bool {
	return os.Geteuid() == 0
}

// Ensure PrivilegeCheckerImpl implements domain.PrivilegeChecker.
var _ domain.PrivilegeChecker = (*PrivilegeCheckerImpl)(nil)
