package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

// fakeProcessManager is a test double for domain.ProcessManager.
type fakeProcessManager struct {
	running map[int]bool
}

func newFakeProcessManager() *fakeProcessManager {
	return &fakeProcessManager{running: make(map[int]bool)}
}

func (f *fakeProcessManager) IsRunning(pid int) bool { return f.running[pid] }
func (f *fakeProcessManager) CurrentPID() int        { return os.Getpid() }
func (f *fakeProcessManager) setRunning(pid int, on bool) {
	f.running[pid] = on
}

func newTestSessionStore(t *testing.T) (*FileSessionStore, *fakeProcessManager, *HostsFilePatcher) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "session-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	hostsPath := filepath.Join(tmpDir, "hosts")
	require.NoError(t, os.WriteFile(hostsPath, []byte("127.0.0.1 localhost\n"), 0644))
	patcher := NewHostsFilePatcherWithPath(hostsPath, zap.NewNop())

	pm := newFakeProcessManager()
	store := NewSessionStoreWithPath(filepath.Join(tmpDir, "session.json"), pm, zap.NewNop())
	return store, pm, patcher
}

func testSessionState(pid int) domain.SessionState {
	return domain.SessionState{
		SessionID:       "test-session",
		StartTime:       time.Now().Add(-10 * time.Minute),
		PlannedDuration: 1800,
		Mode:            domain.ModeFull,
		PID:             pid,
	}
}

func TestSessionStore_BeginEndRoundTrip(t *testing.T) {
	store, _, _ := newTestSessionStore(t)

	require.NoError(t, store.Begin(testSessionState(1234)))

	current, err := store.Current()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "test-session", current.SessionID)
	assert.Equal(t, 1800, current.PlannedDuration)

	require.NoError(t, store.End())
	current, err = store.Current()
	require.NoError(t, err)
	assert.Nil(t, current)

	// End is tolerant of the file already being gone.
	require.NoError(t, store.End())
}

func TestSessionStore_DetectOrphan_NoFile(t *testing.T) {
	store, _, patcher := newTestSessionStore(t)

	orphan, err := store.DetectOrphan(patcher)
	require.NoError(t, err)
	assert.Nil(t, orphan)
}

func TestSessionStore_DetectOrphan_OwnerStillRunning(t *testing.T) {
	store, pm, patcher := newTestSessionStore(t)
	pm.setRunning(1234, true)
	require.NoError(t, store.Begin(testSessionState(1234)))

	orphan, err := store.DetectOrphan(patcher)
	require.NoError(t, err)
	assert.Nil(t, orphan)

	// The session file is left alone: another instance owns it.
	current, err := store.Current()
	require.NoError(t, err)
	assert.NotNil(t, current)
}

func TestSessionStore_DetectOrphan_StaleWithoutBlock(t *testing.T) {
	store, pm, patcher := newTestSessionStore(t)
	pm.setRunning(1234, false)
	require.NoError(t, store.Begin(testSessionState(1234)))

	orphan, err := store.DetectOrphan(patcher)
	require.NoError(t, err)
	assert.Nil(t, orphan)

	// Stale bookkeeping is cleaned up silently.
	current, err := store.Current()
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestSessionStore_DetectOrphan_DeadOwnerWithBlock(t *testing.T) {
	store, pm, patcher := newTestSessionStore(t)
	pm.setRunning(1234, false)
	require.NoError(t, store.Begin(testSessionState(1234)))
	_, err := patcher.Apply([]string{"facebook.com"})
	require.NoError(t, err)

	orphan, err := store.DetectOrphan(patcher)
	require.NoError(t, err)
	require.NotNil(t, orphan)
	assert.Equal(t, "test-session", orphan.SessionID)
}

func TestSessionStore_DetectOrphan_CorruptFile(t *testing.T) {
	t.Run("active block means unknown orphan", func(t *testing.T) {
		store, _, patcher := newTestSessionStore(t)
		require.NoError(t, os.WriteFile(store.Path(), []byte("garbage"), 0600))
		_, err := patcher.Apply([]string{"facebook.com"})
		require.NoError(t, err)

		orphan, err := store.DetectOrphan(patcher)
		require.NoError(t, err)
		require.NotNil(t, orphan)
		assert.Equal(t, "unknown", orphan.SessionID)
	})

	t.Run("no block means discard", func(t *testing.T) {
		store, _, patcher := newTestSessionStore(t)
		require.NoError(t, os.WriteFile(store.Path(), []byte("garbage"), 0600))

		orphan, err := store.DetectOrphan(patcher)
		require.NoError(t, err)
		assert.Nil(t, orphan)
		_, statErr := os.Stat(store.Path())
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestSessionStore_RecoverFromCrash(t *testing.T) {
	store, pm, patcher := newTestSessionStore(t)
	pm.setRunning(1234, false)
	require.NoError(t, store.Begin(testSessionState(1234)))
	_, err := patcher.Apply([]string{"facebook.com"})
	require.NoError(t, err)

	require.NoError(t, store.RecoverFromCrash(patcher))

	assert.False(t, patcher.HasActiveBlock())
	current, err := store.Current()
	require.NoError(t, err)
	assert.Nil(t, current)
}
