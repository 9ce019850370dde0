// Package otpx generates and checks the one-time codes used for second
// factors: RFC 6238 TOTP codes for authenticator apps and random six digit
// codes for email delivery.
package otpx

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"
)

const (
	// Digits is the length of every code this package produces.
	Digits = 6
	// Period is the TOTP time step.
	Period = 30 * time.Second
	// Skew is how many steps either side of now VerifyTOTP accepts.
	Skew = 1
	// SecretSize is 160 bits, the RFC 4226 recommendation for SHA1.
	SecretSize = 20
)

var hotpOpts = hotp.ValidateOpts{
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// ErrEmptySecret is returned when computing a code without a secret.
var ErrEmptySecret = errors.New("otpx: empty secret")

// Key is a freshly generated TOTP secret.
type Key struct {
	// Secret is the base32 encoded shared secret.
	Secret string
	// URI is the otpauth:// provisioning URI shown once as a QR code.
	URI string
}

// GenerateTOTPSecret creates a new random secret for account under issuer.
func GenerateTOTPSecret(issuer, account string) (*Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      uint(Period / time.Second),
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}
	return &Key{Secret: key.Secret(), URI: key.URL()}, nil
}

// TimeStep returns the TOTP counter for t.
func TimeStep(t time.Time) uint64 {
	return uint64(t.Unix()) / uint64(Period/time.Second) // #nosec G115
}

// ComputeTOTP returns the code for secret at the given time step.
func ComputeTOTP(secret string, step uint64) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	code, err := hotp.GenerateCodeCustom(secret, step, hotpOpts)
	if err != nil {
		return "", fmt.Errorf("failed to compute totp: %w", err)
	}
	return code, nil
}

// VerifyTOTP reports whether code matches secret at now, allowing Skew
// steps of clock drift in either direction. Every candidate step is
// compared so the running time does not depend on which one matched.
func VerifyTOTP(secret, code string, now time.Time) bool {
	if !ValidCodeFormat(code) {
		return false
	}

	step := TimeStep(now)
	matched := 0
	for offset := -Skew; offset <= Skew; offset++ {
		candidate := step
		switch {
		case offset < 0 && step < uint64(-offset):
			continue
		case offset < 0:
			candidate -= uint64(-offset)
		default:
			candidate += uint64(offset)
		}
		want, err := ComputeTOTP(secret, candidate)
		if err != nil {
			return false
		}
		matched |= subtle.ConstantTimeCompare([]byte(want), []byte(code))
	}
	return matched == 1
}

// GenerateEmailCode returns a uniformly random code in 000000-999999.
func GenerateEmailCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate email code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// EqualCode compares two codes in constant time.
func EqualCode(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// ValidCodeFormat reports whether code is exactly Digits ASCII digits.
func ValidCodeFormat(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := range len(code) {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
