package common

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandByteArray_Length(t *testing.T) {
	buf := GenerateRandByteArray(24)
	require.Len(t, buf, 24)
	assert.NotEqual(t, buf, GenerateRandByteArray(24))
}

func TestLocalAndRemoteIDs(t *testing.T) {
	local := NewLocalID()
	assert.True(t, IsLocalID(local))
	assert.False(t, IsRemoteID(local))

	remote := uuid.NewString()
	assert.False(t, IsLocalID(remote))
	assert.True(t, IsRemoteID(remote))

	assert.False(t, IsRemoteID(""))
}
