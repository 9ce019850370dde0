package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/notify"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeep/pkg/otpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// GateService runs the login state machine. Valid credentials either
// authenticate straight away or, when factors are enabled, park the login
// behind a fresh login challenge that SubmitSecondFactor resolves. Every
// attempt against a known account ends with exactly one ledger record.
type GateService struct {
	Store      store.Store
	Challenges store.Challenges
	Dispatcher notify.Dispatcher
	Ledger     *LedgerService
	Hasher     cryptox.PasswordHasher

	// Tokens signs challenge references and session tokens.
	Tokens *jwtx.HS256

	ChallengeTTL time.Duration
	SessionTTL   time.Duration

	Now func() time.Time
}

// Authenticate checks primary credentials. Unknown accounts and wrong
// passwords both fail with ErrInvalidCredentials and never reach the
// second factor step.
func (s *GateService) Authenticate(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	l := slogx.FromContext(ctx)
	now := nowFrom(s.Now)

	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// No account means no ledger to write to.
		l.Info("login failed: unknown account", slog.String("ip", creds.Client.IP))
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, domain.Dependency("load user", err)
	}

	if err := s.Hasher.Verify(creds.Password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("stored password hash unusable", slog.Any("error", err), slog.String("user_id", user.ID))
		}
		if _, err := s.record(ctx, user.ID, creds.Client, false, "", now); err != nil {
			return nil, err
		}
		l.Info("login failed: bad password", slog.String("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}

	enabled := user.EnabledFactors.Normalize()
	if enabled.Empty() {
		return s.authenticated(ctx, user.ID, creds.Client, "", now)
	}

	factor := chooseFactor(user, creds.Factor)

	ch := domain.Challenge{
		ID:        idx.NewAt(now).String(),
		Key:       domain.ChallengeKey{Purpose: domain.PurposeLogin, UserID: user.ID, Factor: factor},
		CreatedAt: now,
		ExpiresAt: now.Add(orDefault(s.ChallengeTTL, DefaultLoginChallengeTTL)),
	}
	if factor == domain.FactorEmailOTP {
		code, err := otpx.GenerateEmailCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate email code: %w", err)
		}
		ch.Secret = code
	}
	if err := s.Challenges.Put(ctx, ch); err != nil {
		return nil, domain.Dependency("store challenge", err)
	}
	if factor == domain.FactorEmailOTP {
		if err := s.Dispatcher.SendCode(ctx, user.Email, ch.Secret); err != nil {
			l.Error("failed to send login code", slog.Any("error", err), slog.String("user_id", user.ID))
			return nil, domain.Dependency("send code", err)
		}
	}

	claims := jwtx.NewClaims(jwtx.UseChallenge, user.ID, s.Tokens.Issuer(), ch.ExpiresAt.Sub(now), now)
	claims.ID = ch.ID
	claims.Factor = string(factor)
	claims.AMR = []string{jwtx.AMRPassword}

	ref, err := s.Tokens.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge reference: %w", err)
	}

	l.Info("login awaiting second factor", slog.String("user_id", user.ID), slog.String("factor", string(factor)))
	return &domain.LoginResult{
		State:            domain.StateAwaitingSecondFactor,
		ChallengeRef:     ref,
		Factor:           factor,
		AvailableFactors: enabled,
	}, nil
}

// SubmitSecondFactor completes a login parked by Authenticate. Whatever
// went wrong internally, the caller only learns ErrCodeMismatch, except
// that replaying a reference whose challenge was already spent reports
// ErrChallengeConsumed.
func (s *GateService) SubmitSecondFactor(ctx context.Context, challengeRef, code string, client domain.ClientInfo) (*domain.LoginResult, error) {
	l := slogx.FromContext(ctx)
	now := nowFrom(s.Now)

	claims, err := s.Tokens.VerifyUse(challengeRef, jwtx.UseChallenge)
	if err != nil {
		l.Info("second factor rejected: bad challenge reference", slog.Any("error", err))
		return nil, domain.ErrCodeMismatch
	}

	userID := claims.Subject
	factor, err := domain.ParseFactor(claims.Factor)
	if err != nil || userID == "" || claims.ID == "" {
		l.Warn("second factor rejected: incomplete challenge reference", slog.String("user_id", userID))
		return nil, domain.ErrCodeMismatch
	}

	fail := func(cause, visible error) (*domain.LoginResult, error) {
		l.Info("second factor failed",
			slog.String("user_id", userID),
			slog.String("factor", string(factor)),
			slog.String("cause", cause.Error()),
		)
		if _, err := s.record(ctx, userID, client, false, factor, now); err != nil {
			return nil, err
		}
		return nil, visible
	}

	key := domain.ChallengeKey{Purpose: domain.PurposeLogin, UserID: userID, Factor: factor}

	// A reference only ever redeems the challenge it was issued for.
	current, err := s.Challenges.Get(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fail(domain.ErrChallengeNotFound, domain.ErrCodeMismatch)
	case err != nil:
		return nil, domain.Dependency("load challenge", err)
	case current.ID != claims.ID:
		return fail(errors.New("challenge superseded"), domain.ErrCodeMismatch)
	case current.Consumed():
		return fail(domain.ErrChallengeConsumed, domain.ErrChallengeConsumed)
	}

	ch, err := s.Challenges.Consume(ctx, key, now)
	if err != nil {
		mapped := mapConsumeErr(err)
		switch {
		case errors.Is(mapped, domain.ErrChallengeConsumed):
			return fail(mapped, domain.ErrChallengeConsumed)
		case domain.KindOf(mapped) == domain.KindDependency:
			return nil, mapped
		default:
			return fail(mapped, domain.ErrCodeMismatch)
		}
	}
	if ch.ID != claims.ID {
		return fail(errors.New("challenge superseded during consume"), domain.ErrCodeMismatch)
	}

	// The factor must still be enabled when the code is redeemed, not only
	// when the challenge was issued.
	user, err := loadUser(ctx, s.Store.Users(), userID)
	if err != nil {
		if domain.KindOf(err) == domain.KindDependency {
			return nil, err
		}
		return fail(err, domain.ErrCodeMismatch)
	}
	if !user.EnabledFactors.Has(factor) {
		return fail(domain.ErrFactorNotEnabled, domain.ErrCodeMismatch)
	}

	secret := ch.Secret
	if factor == domain.FactorTOTP {
		if user.TOTPSecret == nil {
			return fail(domain.ErrFactorNotEnabled, domain.ErrCodeMismatch)
		}
		secret = *user.TOTPSecret
	}

	if !checkCode(factor, secret, code, now) {
		return fail(errors.New("code mismatch"), domain.ErrCodeMismatch)
	}

	return s.authenticated(ctx, userID, client, factor, now)
}

func (s *GateService) authenticated(ctx context.Context, userID string, client domain.ClientInfo, factor domain.FactorType, now time.Time) (*domain.LoginResult, error) {
	recordID, err := s.record(ctx, userID, client, true, factor, now)
	if err != nil {
		return nil, err
	}

	ttl := orDefault(s.SessionTTL, DefaultSessionTTL)
	claims := jwtx.NewClaims(jwtx.UseSession, userID, s.Tokens.Issuer(), ttl, now)
	claims.SID = recordID
	claims.AMR = []string{jwtx.AMRPassword}
	if factor != "" {
		claims.AMR = append(claims.AMR, jwtx.AMROTP, jwtx.AMRMFA)
	}

	token, err := s.Tokens.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	slogx.FromContext(ctx).Info("login succeeded",
		slog.String("user_id", userID),
		slog.String("session_id", recordID),
		slog.String("factor", string(factor)),
	)
	return &domain.LoginResult{
		State:        domain.StateAuthenticated,
		RecordID:     recordID,
		SessionToken: token,
		ExpiresAt:    now.Add(ttl),
	}, nil
}

func (s *GateService) record(ctx context.Context, userID string, client domain.ClientInfo, success bool, factor domain.FactorType, now time.Time) (string, error) {
	return s.Ledger.Record(ctx, domain.LoginRecord{
		UserID:    userID,
		IP:        client.IP,
		Device:    client.Device,
		Location:  client.Location,
		Timestamp: now,
		Success:   success,
		Factor:    factor,
	})
}

// chooseFactor applies the any-of policy: the requested factor if it is
// enabled, otherwise TOTP, otherwise email OTP.
func chooseFactor(u domain.User, requested domain.FactorType) domain.FactorType {
	if requested.Valid() && u.EnabledFactors.Has(requested) {
		return requested
	}
	if u.EnabledFactors.Has(domain.FactorTOTP) {
		return domain.FactorTOTP
	}
	return domain.FactorEmailOTP
}
