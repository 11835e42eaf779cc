package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(24)
	require.NoError(t, err)
	assert.Len(t, pw, 24)

	for _, r := range pw {
		assert.True(t, strings.ContainsRune(passwordAlphabet, r))
	}
}

func TestGeneratePassword_DefaultLength(t *testing.T) {
	pw, err := GeneratePassword(0)
	require.NoError(t, err)
	assert.Len(t, pw, 16)
}

func TestGeneratePassword_Unique(t *testing.T) {
	a, err := GeneratePassword(16)
	require.NoError(t, err)
	b, err := GeneratePassword(16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
