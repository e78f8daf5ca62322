package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenOTPCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "code %q must be numeric", code)
		}
	}
}

func TestGenTokenString(t *testing.T) {
	a, err := GenTokenString(32)
	require.NoError(t, err)
	b, err := GenTokenString(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, "=")
}

func TestGenRecoveryCode(t *testing.T) {
	code, err := GenRecoveryCode()
	require.NoError(t, err)
	require.Len(t, code, 11)
	assert.Equal(t, byte('-'), code[5])
	for i, c := range code {
		if i == 5 {
			continue
		}
		assert.NotContains(t, "01ilo", string(c), "ambiguous character in %q", code)
	}
}
