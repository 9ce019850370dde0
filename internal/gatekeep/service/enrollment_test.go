package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/pkg/otpx"
	"github.com/pquerna/otp"
	"github.com/stretchr/testify/require"
)

func TestBeginEnrollment_TOTP(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	view, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorTOTP)
	require.NoError(t, err)
	require.Equal(t, domain.FactorTOTP, view.Factor)
	require.True(t, strings.HasPrefix(view.ProvisioningURI, "otpauth://totp/"))
	require.Empty(t, view.Destination)
	require.True(t, view.ExpiresAt.Equal(f.clock.Now().Add(DefaultEnrollmentTTL)))

	key, err := otp.NewKeyFromURL(view.ProvisioningURI)
	require.NoError(t, err)
	require.Equal(t, "gatekeep-test", key.Issuer())

	// The pending secret is held by the user and the challenge, and the
	// factor is not enabled yet.
	u := f.reloadUser(t)
	require.True(t, u.HasTOTPSecret())
	require.Equal(t, key.Secret(), *u.TOTPSecret)
	require.Equal(t, key.Secret(), f.challengeSecret(t, domain.PurposeEnrollment, domain.FactorTOTP))
	require.False(t, u.EnabledFactors.Has(domain.FactorTOTP))
}

func TestBeginEnrollment_EmailDispatchesAfterStoring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	view, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorEmailOTP)
	require.NoError(t, err)
	require.Equal(t, "o****@example.com", view.Destination)
	require.Empty(t, view.ProvisioningURI)

	sent := f.mail.last(t)
	require.Equal(t, f.user.Email, sent.Email)
	require.True(t, otpx.ValidCodeFormat(sent.Code))
	require.Equal(t, sent.Code, f.challengeSecret(t, domain.PurposeEnrollment, domain.FactorEmailOTP))
}

func TestBeginEnrollment_DispatchFailureKeepsChallenge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")

	_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorEmailOTP)
	require.ErrorIs(t, err, domain.ErrDependency)
	require.Equal(t, domain.KindDependency, domain.KindOf(err))

	// The challenge was stored before the send and is still redeemable.
	f.mail.err = nil
	require.NoError(t, f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorEmailOTP, f.mail.last(t).Code))
	require.True(t, f.reloadUser(t).EnabledFactors.Has(domain.FactorEmailOTP))
}

func TestBeginEnrollment_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorType("sms"))
	require.ErrorIs(t, err, domain.ErrUnknownFactor)

	_, err = f.enroll.BeginEnrollment(ctx, "nobody", domain.FactorTOTP)
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	f.enableEmail(t)
	_, err = f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorEmailOTP)
	require.ErrorIs(t, err, domain.ErrFactorAlreadyEnabled)
}

// Enroll TOTP at time step 1000, then log in with the same code. The code
// works once for each challenge, and the login reference cannot be reused.
func TestTOTPScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.clock.Set(time.Unix(1000*30, 0).UTC())

	_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorTOTP)
	require.NoError(t, err)
	secret := f.challengeSecret(t, domain.PurposeEnrollment, domain.FactorTOTP)

	code, err := otpx.ComputeTOTP(secret, 1000)
	require.NoError(t, err)

	require.NoError(t, f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorTOTP, code))
	require.True(t, f.reloadUser(t).EnabledFactors.Has(domain.FactorTOTP))

	res, err := f.gate.Authenticate(ctx, f.credentials(""))
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingSecondFactor, res.State)
	require.Equal(t, domain.FactorTOTP, res.Factor)
	require.NotEmpty(t, res.ChallengeRef)

	done, err := f.gate.SubmitSecondFactor(ctx, res.ChallengeRef, code, domain.ClientInfo{IP: "203.0.113.7"})
	require.NoError(t, err)
	require.Equal(t, domain.StateAuthenticated, done.State)
	require.NotEmpty(t, done.SessionToken)

	_, err = f.gate.SubmitSecondFactor(ctx, res.ChallengeRef, code, domain.ClientInfo{IP: "203.0.113.7"})
	require.ErrorIs(t, err, domain.ErrChallengeConsumed)
}

func TestConfirmEnrollment_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("fails at T+11m", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorEmailOTP)
		require.NoError(t, err)

		f.clock.Advance(11 * time.Minute)
		err = f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorEmailOTP, f.mail.last(t).Code)
		require.ErrorIs(t, err, domain.ErrChallengeExpired)
		require.Equal(t, domain.KindStateConflict, domain.KindOf(err))
		require.False(t, f.reloadUser(t).EnabledFactors.Has(domain.FactorEmailOTP))
	})

	t.Run("succeeds at T+9m", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorEmailOTP)
		require.NoError(t, err)

		f.clock.Advance(9 * time.Minute)
		require.NoError(t, f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorEmailOTP, f.mail.last(t).Code))
		require.True(t, f.reloadUser(t).EnabledFactors.Has(domain.FactorEmailOTP))
	})
}

func TestConfirmEnrollment_Supersession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorTOTP)
	require.NoError(t, err)
	first := f.challengeSecret(t, domain.PurposeEnrollment, domain.FactorTOTP)

	_, err = f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorTOTP)
	require.NoError(t, err)
	second := f.challengeSecret(t, domain.PurposeEnrollment, domain.FactorTOTP)
	require.NotEqual(t, first, second)

	stale, err := otpx.ComputeTOTP(first, otpx.TimeStep(f.clock.Now()))
	require.NoError(t, err)
	if otpx.VerifyTOTP(second, stale, f.clock.Now()) {
		t.Skip("first secret's code happens to be valid for the second secret")
	}

	err = f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorTOTP, stale)
	require.ErrorIs(t, err, domain.ErrCodeMismatch)
	require.False(t, f.reloadUser(t).EnabledFactors.Has(domain.FactorTOTP))
}

func TestConfirmEnrollment_NoRetryAgainstSameChallenge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorEmailOTP)
	require.NoError(t, err)
	code := f.mail.last(t).Code

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err = f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorEmailOTP, wrong)
	require.ErrorIs(t, err, domain.ErrCodeMismatch)
	require.Equal(t, domain.KindAuthentication, domain.KindOf(err))

	err = f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorEmailOTP, code)
	require.ErrorIs(t, err, domain.ErrChallengeConsumed)
	require.False(t, f.reloadUser(t).EnabledFactors.Has(domain.FactorEmailOTP))
}

func TestConfirmEnrollment_TOTPMismatchDropsPendingSecret(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorTOTP)
	require.NoError(t, err)
	secret := f.challengeSecret(t, domain.PurposeEnrollment, domain.FactorTOTP)

	wrong := "000000"
	if otpx.VerifyTOTP(secret, wrong, f.clock.Now()) {
		wrong = "999999"
	}
	err = f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorTOTP, wrong)
	require.ErrorIs(t, err, domain.ErrCodeMismatch)
	require.False(t, f.reloadUser(t).HasTOTPSecret())
}

func TestConfirmEnrollment_MalformedCodeLeavesChallenge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorEmailOTP)
	require.NoError(t, err)

	for _, code := range []string{"", "12345", "1234567", "12a456", " 123456"} {
		err := f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorEmailOTP, code)
		require.ErrorIs(t, err, domain.ErrInvalidCodeFormat, "code %q", code)
		require.Equal(t, domain.KindValidation, domain.KindOf(err))
	}

	require.NoError(t, f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorEmailOTP, f.mail.last(t).Code))
}

func TestConfirmEnrollment_NotFound(t *testing.T) {
	f := newFixture(t)
	err := f.enroll.ConfirmEnrollment(context.Background(), f.user.ID, domain.FactorEmailOTP, "123456")
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestConfirmEnrollment_SingleConsumption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorEmailOTP)
	require.NoError(t, err)
	code := f.mail.last(t).Code

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorEmailOTP, code)
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, domain.ErrChallengeConsumed)
	}
	require.Equal(t, 1, ok)
	require.Equal(t, domain.FactorSet{domain.FactorEmailOTP}, f.reloadUser(t).EnabledFactors)
}

func TestDisableFactor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.enroll.DisableFactor(ctx, f.user.ID, domain.FactorTOTP)
	require.ErrorIs(t, err, domain.ErrFactorNotEnabled)

	_, err = f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorTOTP)
	require.NoError(t, err)
	secret := f.challengeSecret(t, domain.PurposeEnrollment, domain.FactorTOTP)
	code, err := otpx.ComputeTOTP(secret, otpx.TimeStep(f.clock.Now()))
	require.NoError(t, err)
	require.NoError(t, f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorTOTP, code))
	f.enableEmail(t)

	factors, err := f.enroll.EnabledFactors(ctx, f.user.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.FactorType{domain.FactorTOTP, domain.FactorEmailOTP}, factors)

	require.NoError(t, f.enroll.DisableFactor(ctx, f.user.ID, domain.FactorTOTP))
	u := f.reloadUser(t)
	require.False(t, u.EnabledFactors.Has(domain.FactorTOTP))
	require.True(t, u.EnabledFactors.Has(domain.FactorEmailOTP))
	require.False(t, u.HasTOTPSecret())

	err = f.enroll.DisableFactor(ctx, f.user.ID, domain.FactorTOTP)
	require.ErrorIs(t, err, domain.ErrFactorNotEnabled)
}
