// Package service holds the MFA engine: factor enrollment, the login gate
// and the session ledger.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/pkg/otpx"
)

const (
	DefaultEnrollmentTTL     = 10 * time.Minute
	DefaultEmailCodeTTL      = 10 * time.Minute
	DefaultLoginChallengeTTL = 5 * time.Minute
	DefaultSessionTTL        = 12 * time.Hour
)

func nowFrom(f func() time.Time) time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func loadUser(ctx context.Context, users store.Users, id string) (domain.User, error) {
	u, err := users.GetUserByID(ctx, id)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, domain.ErrUserNotFound
	default:
		return domain.User{}, domain.Dependency("load user", err)
	}
}

// mapConsumeErr turns a Challenges.Consume failure into the domain taxonomy.
func mapConsumeErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.ErrChallengeNotFound
	case errors.Is(err, store.ErrAlreadyConsumed):
		return domain.ErrChallengeConsumed
	case errors.Is(err, store.ErrExpired):
		return domain.ErrChallengeExpired
	default:
		return domain.Dependency("consume challenge", err)
	}
}

// checkCode is the one verification path shared by enrollment and login.
// TOTP codes are checked against secret with one step of skew, email codes
// must match exactly.
func checkCode(factor domain.FactorType, secret, code string, now time.Time) bool {
	if !otpx.ValidCodeFormat(code) || secret == "" {
		return false
	}
	switch factor {
	case domain.FactorTOTP:
		return otpx.VerifyTOTP(secret, code, now)
	case domain.FactorEmailOTP:
		return otpx.EqualCode(secret, code)
	default:
		return false
	}
}
