package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("user")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	r, err = ParseRole("assistant")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, r)

	_, err = ParseRole("system")
	assert.Error(t, err)
	assert.False(t, Role("").Valid())
}
