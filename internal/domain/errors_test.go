package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcementError_KindAndUnwrap(t *testing.T) {
	cause := errors.New("open /etc/hosts: permission denied")
	err := NewResourceError("Hosts file not accessible.", cause)

	assert.True(t, IsKind(err, KindResource))
	assert.False(t, IsKind(err, KindPrivilege))
	assert.ErrorIs(t, err, cause)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindResource, kind)
}

func TestEnforcementError_KindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("starting session: %w",
		NewPrivilegeError("Administrator privileges required!"))

	assert.True(t, IsKind(err, KindPrivilege))

	var ee *EnforcementError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "Administrator privileges required!", ee.UserMessage())
}

func TestKindOf_PlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsKind(errors.New("plain"), KindState))
	assert.False(t, IsKind(nil, KindState))
}

func TestEnforcementError_Message(t *testing.T) {
	bare := NewStateError("No active focus session.")
	assert.Equal(t, "No active focus session.", bare.Error())
	assert.Nil(t, errors.Unwrap(bare))

	wrapped := NewPersistenceError("Could not save configuration.", errors.New("disk full"))
	assert.Contains(t, wrapped.Error(), "Could not save configuration.")
	assert.Contains(t, wrapped.Error(), "disk full")
}
