package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		token, err := GenerateToken(TokenSize128)
		require.NoError(t, err)
		require.Len(t, token, 22)
		require.NotContains(t, seen, token)
		seen[token] = true
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}
