package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminGateChecksCredentials(t *testing.T) {
	gate, err := NewAdminGate("admin", "hunter2")
	require.NoError(t, err)
	require.True(t, gate.Enabled())

	assert.True(t, gate.Check("admin", "hunter2"))
	assert.False(t, gate.Check("admin", "wrong"))
	assert.False(t, gate.Check("root", "hunter2"))
	assert.False(t, gate.Check("", ""))
}

func TestAdminGateDisabledWithoutPassword(t *testing.T) {
	gate, err := NewAdminGate("admin", "")
	require.NoError(t, err)

	assert.False(t, gate.Enabled())
	assert.False(t, gate.Check("admin", ""), "disabled gate fails closed")
}
