package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/notify"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/otpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// EnrollmentService turns factors on and off for an already authenticated
// user. A factor only lands in the user's enabled set after its challenge
// has been confirmed.
type EnrollmentService struct {
	Store      store.Store
	Challenges store.Challenges
	Dispatcher notify.Dispatcher

	// Issuer labels the account in authenticator apps.
	Issuer string

	EnrollmentTTL time.Duration
	EmailCodeTTL  time.Duration

	Now func() time.Time
}

// BeginEnrollment issues a fresh enrollment challenge, superseding any
// pending one for the same factor. For TOTP the returned view carries the
// provisioning URI, which is the only time the secret leaves the service.
// For email OTP the code is sent after the challenge is stored; a send
// failure is returned but the challenge stays valid.
func (s *EnrollmentService) BeginEnrollment(ctx context.Context, userID string, factor domain.FactorType) (*domain.EnrollmentView, error) {
	l := slogx.FromContext(ctx)

	if !factor.Valid() {
		return nil, domain.ErrUnknownFactor
	}

	user, err := loadUser(ctx, s.Store.Users(), userID)
	if err != nil {
		return nil, err
	}
	if user.EnabledFactors.Has(factor) {
		return nil, domain.ErrFactorAlreadyEnabled
	}

	now := nowFrom(s.Now)
	key := domain.ChallengeKey{Purpose: domain.PurposeEnrollment, UserID: user.ID, Factor: factor}

	switch factor {
	case domain.FactorTOTP:
		k, err := otpx.GenerateTOTPSecret(s.Issuer, user.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to generate totp secret: %w", err)
		}
		if err := s.Store.Users().SetTOTPSecret(ctx, user.ID, &k.Secret); err != nil {
			return nil, domain.Dependency("store totp secret", err)
		}

		ch := domain.Challenge{
			ID:        idx.NewAt(now).String(),
			Key:       key,
			Secret:    k.Secret,
			CreatedAt: now,
			ExpiresAt: now.Add(orDefault(s.EnrollmentTTL, DefaultEnrollmentTTL)),
		}
		if err := s.Challenges.Put(ctx, ch); err != nil {
			return nil, domain.Dependency("store challenge", err)
		}

		l.Info("totp enrollment started", slog.String("user_id", user.ID), slog.String("challenge_id", ch.ID))
		return &domain.EnrollmentView{
			Factor:          factor,
			ProvisioningURI: k.URI,
			ExpiresAt:       ch.ExpiresAt,
		}, nil

	default:
		code, err := otpx.GenerateEmailCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate email code: %w", err)
		}

		ch := domain.Challenge{
			ID:        idx.NewAt(now).String(),
			Key:       key,
			Secret:    code,
			CreatedAt: now,
			ExpiresAt: now.Add(orDefault(s.EmailCodeTTL, DefaultEmailCodeTTL)),
		}
		if err := s.Challenges.Put(ctx, ch); err != nil {
			return nil, domain.Dependency("store challenge", err)
		}

		if err := s.Dispatcher.SendCode(ctx, user.Email, code); err != nil {
			l.Error("failed to send enrollment code",
				slog.Any("error", err),
				slog.String("user_id", user.ID),
				slog.String("challenge_id", ch.ID),
			)
			return nil, domain.Dependency("send code", err)
		}

		l.Info("email otp enrollment started", slog.String("user_id", user.ID), slog.String("challenge_id", ch.ID))
		return &domain.EnrollmentView{
			Factor:      factor,
			Destination: notify.MaskEmail(user.Email),
			ExpiresAt:   ch.ExpiresAt,
		}, nil
	}
}

// ConfirmEnrollment consumes the pending challenge and, if code matches,
// enables the factor. The challenge is spent whatever the outcome, so a
// wrong code means starting over with BeginEnrollment.
func (s *EnrollmentService) ConfirmEnrollment(ctx context.Context, userID string, factor domain.FactorType, code string) error {
	l := slogx.FromContext(ctx)

	if !factor.Valid() {
		return domain.ErrUnknownFactor
	}
	if !otpx.ValidCodeFormat(code) {
		return domain.ErrInvalidCodeFormat
	}

	now := nowFrom(s.Now)
	key := domain.ChallengeKey{Purpose: domain.PurposeEnrollment, UserID: userID, Factor: factor}

	ch, err := s.Challenges.Consume(ctx, key, now)
	if err != nil {
		return mapConsumeErr(err)
	}

	if !checkCode(factor, ch.Secret, code, now) {
		l.Info("enrollment code mismatch", slog.String("user_id", userID), slog.String("factor", string(factor)))
		if factor == domain.FactorTOTP {
			s.dropPendingSecret(ctx, userID, ch.Secret)
		}
		return domain.ErrCodeMismatch
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := loadUser(ctx, tx.Users(), userID)
		if err != nil {
			return err
		}
		if factor == domain.FactorTOTP {
			if err := tx.Users().SetTOTPSecret(ctx, userID, &ch.Secret); err != nil {
				return domain.Dependency("store totp secret", err)
			}
		}
		if err := tx.Users().SetEnabledFactors(ctx, userID, user.EnabledFactors.With(factor)); err != nil {
			return domain.Dependency("enable factor", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.Info("factor enabled", slog.String("user_id", userID), slog.String("factor", string(factor)))
	return nil
}

// dropPendingSecret clears a TOTP secret that was only stored for the
// enrollment that just failed. An enabled factor keeps its secret.
func (s *EnrollmentService) dropPendingSecret(ctx context.Context, userID, secret string) {
	l := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.EnabledFactors.Has(domain.FactorTOTP) || !user.HasTOTPSecret() || *user.TOTPSecret != secret {
			return nil
		}
		return tx.Users().SetTOTPSecret(ctx, userID, nil)
	})
	if err != nil {
		l.Warn("failed to clear pending totp secret", slog.Any("error", err), slog.String("user_id", userID))
	}
}

// DisableFactor removes factor from the user's enabled set. Disabling TOTP
// also forgets the secret.
func (s *EnrollmentService) DisableFactor(ctx context.Context, userID string, factor domain.FactorType) error {
	if !factor.Valid() {
		return domain.ErrUnknownFactor
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := loadUser(ctx, tx.Users(), userID)
		if err != nil {
			return err
		}
		if !user.EnabledFactors.Has(factor) {
			return domain.ErrFactorNotEnabled
		}
		if err := tx.Users().SetEnabledFactors(ctx, userID, user.EnabledFactors.Without(factor)); err != nil {
			return domain.Dependency("disable factor", err)
		}
		if factor == domain.FactorTOTP {
			if err := tx.Users().SetTOTPSecret(ctx, userID, nil); err != nil {
				return domain.Dependency("clear totp secret", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("factor disabled", slog.String("user_id", userID), slog.String("factor", string(factor)))
	return nil
}

// EnabledFactors returns the user's current factor set.
func (s *EnrollmentService) EnabledFactors(ctx context.Context, userID string) (domain.FactorSet, error) {
	user, err := loadUser(ctx, s.Store.Users(), userID)
	if err != nil {
		return nil, err
	}
	return user.EnabledFactors.Normalize(), nil
}
