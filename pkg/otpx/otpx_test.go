package otpx

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// base32 of the RFC 6238 SHA1 seed "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestComputeTOTP_RFCVectors(t *testing.T) {
	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}
	for _, tt := range tests {
		code, err := ComputeTOTP(rfcSecret, TimeStep(time.Unix(tt.unix, 0)))
		require.NoError(t, err)
		require.Equal(t, tt.want, code, "unix %d", tt.unix)
	}
}

func TestComputeTOTP_Deterministic(t *testing.T) {
	key, err := GenerateTOTPSecret("gatekeep", "u1@example.com")
	require.NoError(t, err)

	a, err := ComputeTOTP(key.Secret, 1000)
	require.NoError(t, err)
	b, err := ComputeTOTP(key.Secret, 1000)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.True(t, ValidCodeFormat(a))
}

func TestComputeTOTP_EmptySecret(t *testing.T) {
	_, err := ComputeTOTP("", 1)
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestVerifyTOTP_Skew(t *testing.T) {
	const step = 1000
	now := time.Unix(step*30+7, 0)

	code := func(s uint64) string {
		c, err := ComputeTOTP(rfcSecret, s)
		require.NoError(t, err)
		return c
	}

	require.True(t, VerifyTOTP(rfcSecret, code(step), now))
	require.True(t, VerifyTOTP(rfcSecret, code(step-1), now))
	require.True(t, VerifyTOTP(rfcSecret, code(step+1), now))
	require.False(t, VerifyTOTP(rfcSecret, code(step-2), now))
	require.False(t, VerifyTOTP(rfcSecret, code(step+2), now))
}

func TestVerifyTOTP_RejectsMalformed(t *testing.T) {
	now := time.Unix(59, 0)
	for _, c := range []string{"", "28708", "2870822", "28708a", " 287082"} {
		require.False(t, VerifyTOTP(rfcSecret, c, now), "code %q", c)
	}
	require.False(t, VerifyTOTP("", "287082", now))
}

func TestVerifyTOTP_EarliestStep(t *testing.T) {
	code, err := ComputeTOTP(rfcSecret, 0)
	require.NoError(t, err)
	require.True(t, VerifyTOTP(rfcSecret, code, time.Unix(0, 0)))
}

func TestGenerateTOTPSecret(t *testing.T) {
	key, err := GenerateTOTPSecret("gatekeep", "u1@example.com")
	require.NoError(t, err)

	// 20 bytes is 32 base32 characters without padding.
	require.Len(t, key.Secret, 32)
	require.NotContains(t, key.Secret, "=")

	u, err := url.Parse(key.URI)
	require.NoError(t, err)
	require.Equal(t, "otpauth", u.Scheme)
	require.Equal(t, "totp", u.Host)
	require.Equal(t, key.Secret, u.Query().Get("secret"))
	require.Equal(t, "gatekeep", u.Query().Get("issuer"))
	require.True(t, strings.HasSuffix(u.Path, "u1@example.com"))

	other, err := GenerateTOTPSecret("gatekeep", "u1@example.com")
	require.NoError(t, err)
	require.NotEqual(t, key.Secret, other.Secret)
}

func TestGenerateEmailCode(t *testing.T) {
	seen := make(map[string]int)
	for range 2000 {
		c, err := GenerateEmailCode()
		require.NoError(t, err)
		require.True(t, ValidCodeFormat(c), "code %q", c)
		seen[c]++
	}

	// 2000 draws from a million values should barely collide.
	require.Greater(t, len(seen), 1900)
}

func TestEqualCode(t *testing.T) {
	require.True(t, EqualCode("012345", "012345"))
	require.False(t, EqualCode("012345", "012346"))
	require.False(t, EqualCode("012345", "12345"))
}
