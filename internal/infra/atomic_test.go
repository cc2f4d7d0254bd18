package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempArtifacts(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".focusguard-tmp-*"))
	require.NoError(t, err)
	return matches
}

func TestAtomicWriteFile_ReplacesExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"old":true}`), 0600))

	require.NoError(t, AtomicWriteFile(path, []byte(`{"new":true}`), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"new":true}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Empty(t, tempArtifacts(t, dir))
}

func TestAtomicWriteFile_FailureKeepsDestinationAndCleansTemp(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory at the destination path defeats both the
	// rename and the delete-then-move fallback, on any filesystem.
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "pin"), 0700))

	err := AtomicWriteFile(path, []byte(`{"new":true}`), 0600)
	require.Error(t, err)

	// The destination is untouched and no temp file is left behind.
	_, statErr := os.Stat(filepath.Join(path, "pin"))
	assert.NoError(t, statErr)
	assert.Empty(t, tempArtifacts(t, dir))
}

func TestAtomicWriteFile_CreateFailureLeavesNoArtifacts(t *testing.T) {
	dir := t.TempDir()
	// The parent "directory" is a regular file, so the temp file can
	// never be created in the first place.
	parent := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0600))

	err := AtomicWriteFile(filepath.Join(parent, "state.json"), []byte("y"), 0600)
	require.Error(t, err)
	assert.Empty(t, tempArtifacts(t, dir))
}
