package domain

// ConfigStore provides atomic, crash-safe persistence of the enforcement
// configuration. Implementation: JSON file with temp-file + rename writes
// and rotating backups.
type ConfigStore interface {
	// Load never fails hard: missing file returns defaults (and persists
	// them), corrupt JSON is backed up to a timestamped sibling and
	// replaced with defaults.
	Load() (*EnforcementConfig, error)

	// Save atomically replaces the on-disk config. When createBackup is
	// true the previous file is copied into the backups directory first.
	Save(cfg *EnforcementConfig, createBackup bool) error

	// Path returns the config file path (for display and tests).
	Path() string
}

// HostsPatcher idempotently edits the marker-delimited block section in
// the OS hosts file. Callers must serialize calls; there is no OS-level
// locking (single enforcement engine per machine).
type HostsPatcher interface {
	// Apply replaces any existing block section with one redirect line per
	// valid hostname. Invalid hostnames are skipped, never written.
	// Returns the count actually written.
	Apply(hostnames []string) (int, error)

	// Remove excises the block section. Success if markers are absent.
	Remove() error

	// HasActiveBlock reports whether both markers are present.
	HasActiveBlock() bool

	// FlushResolverCache invalidates the OS DNS cache. Best-effort:
	// failure is logged and swallowed, never propagated.
	FlushResolverCache()
}

// SessionStore persists the session-state marker and decides at startup
// whether the previous run crashed.
type SessionStore interface {
	// Begin atomically writes the session-state record.
	Begin(state SessionState) error

	// End deletes the session-state file. Tolerant of it being absent.
	End() error

	// Current returns the persisted session state, or nil when no
	// session file exists.
	Current() (*SessionState, error)

	// DetectOrphan returns the orphaned session, or nil when there is
	// nothing to recover. Stale bookkeeping (dead owner, no active block)
	// is cleaned up silently.
	DetectOrphan(patcher HostsPatcher) (*SessionState, error)

	// RecoverFromCrash deletes the session-state file and unconditionally
	// removes the hosts-file block section. Never gated on a password.
	RecoverFromCrash(patcher HostsPatcher) error

	// Path returns the session-state file path (for tests).
	Path() string
}

// ProcessManager probes OS process liveness.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// CurrentPID returns the current process PID.
	CurrentPID() int
}

// PrivilegeChecker probes whether the process can edit the hosts file.
type PrivilegeChecker interface {
	IsElevated() bool
}
