package infra

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

const sessionFileName = "session.json"

// FileSessionStore implements domain.SessionStore with a JSON marker
// file. The file exists exactly while enforcement is active; a leftover
// file at startup means the previous run may have crashed.
type FileSessionStore struct {
	path           string
	processManager domain.ProcessManager
	logger         *zap.Logger
}

// NewSessionStore creates a session store rooted at dataDir.
func NewSessionStore(dataDir string, pm domain.ProcessManager, logger *zap.Logger) *FileSessionStore {
	return &FileSessionStore{
		path:           filepath.Join(dataDir, sessionFileName),
		processManager: pm,
		logger:         logger,
	}
}

// NewSessionStoreWithPath creates a session store at a specific file (for tests).
func NewSessionStoreWithPath(path string, pm domain.ProcessManager, logger *zap.Logger) *FileSessionStore {
	return &FileSessionStore{
		path:           path,
		processManager: pm,
		logger:         logger,
	}
}

// Path returns the session-state file path.
func (s *FileSessionStore) Path() string {
	return s.path
}

// Begin atomically writes the session-state record. The write completes
// before Begin returns, so a crash immediately afterwards is still
// detected as "blocking was active".
func (s *FileSessionStore) Begin(state domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return domain.NewPersistenceError("Could not encode session state.", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return domain.NewPersistenceError("Could not create session directory.", err)
	}
	if err := AtomicWriteFile(s.path, data, 0600); err != nil {
		return domain.NewPersistenceError("Could not save session state.", err)
	}
	return nil
}

// End deletes the session-state file. Already-absent is success.
func (s *FileSessionStore) End() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return domain.NewPersistenceError("Could not delete session state.", err)
	}
	return nil
}

// Current returns the persisted session state, or nil when no session
// file exists. Unparseable state is reported as an error; DetectOrphan
// is the place that decides what to do about it.
func (s *FileSessionStore) Current() (*domain.SessionState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.NewPersistenceError("Could not read session state.", err)
	}
	var state domain.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, domain.NewPersistenceError("Session state is corrupted.", err)
	}
	return &state, nil
}

// DetectOrphan decides at startup whether the previous run crashed.
//
// No file: nothing to recover. Unparseable file: conservatively treated
// as an unknown orphan if the hosts file still shows an active block,
// otherwise cleaned up. Parseable file with a live owner: another
// instance is legitimately running. Dead owner without block markers:
// stale bookkeeping, deleted silently. Dead owner with an active block:
// the orphan requiring recovery.
func (s *FileSessionStore) DetectOrphan(patcher domain.HostsPatcher) (*domain.SessionState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.NewPersistenceError("Could not read session state.", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		if patcher.HasActiveBlock() {
			s.logger.Warn("session state unparseable but block is active, treating as orphan",
				zap.Error(err))
			return &domain.SessionState{SessionID: "unknown", Mode: domain.ModeFull}, nil
		}
		s.logger.Warn("discarding unparseable session state, no active block",
			zap.Error(err))
		return nil, s.End()
	}

	if s.processManager.IsRunning(state.PID) {
		// Another instance legitimately owns this session.
		return nil, nil
	}

	if !patcher.HasActiveBlock() {
		s.logger.Info("cleaning up stale session state",
			zap.String("session_id", state.SessionID),
			zap.Int("pid", state.PID))
		return nil, s.End()
	}

	return &state, nil
}

// RecoverFromCrash deletes the session-state file, then unconditionally
// removes the hosts-file block section. Crash recovery is never gated on
// a password: a forgotten password must not leave the machine blocked.
func (s *FileSessionStore) RecoverFromCrash(patcher domain.HostsPatcher) error {
	if err := s.End(); err != nil {
		s.logger.Warn("failed to delete session state during recovery", zap.Error(err))
	}
	return patcher.Remove()
}

// Ensure FileSessionStore implements domain.SessionStore.
var _ domain.SessionStore = (*FileSessionStore)(nil)
