package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeep/pkg/otpx"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentCode struct {
	Email string
	Code  string
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (d *fakeDispatcher) SendCode(_ context.Context, email, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentCode{Email: email, Code: code})
	return d.err
}

func (d *fakeDispatcher) last(t *testing.T) sentCode {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.sent, "no code was dispatched")
	return d.sent[len(d.sent)-1]
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

const testPassword = "correct horse battery staple"

type fixture struct {
	store  *sqlite.Store
	clock  *testClock
	mail   *fakeDispatcher
	tokens *jwtx.HS256

	enroll *EnrollmentService
	gate   *GateService
	ledger *LedgerService

	user domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := &testClock{t: time.Now().UTC().Truncate(time.Second)}
	mail := &fakeDispatcher{}

	tokens, err := jwtx.NewHS256([]byte(strings.Repeat("s", 32)), "gatekeep-test")
	require.NoError(t, err)
	tokens.Now = clock.Now

	hasher := cryptox.PasswordHasher{Pepper: []byte("pepper")}
	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)

	user := domain.User{
		ID:             idx.New().String(),
		Email:          "owner@example.com",
		PasswordHash:   hash,
		EnabledFactors: domain.FactorSet{},
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))

	ledger := &LedgerService{Store: st, Now: clock.Now}

	return &fixture{
		store:  st,
		clock:  clock,
		mail:   mail,
		tokens: tokens,
		enroll: &EnrollmentService{
			Store:      st,
			Challenges: st.Challenges(),
			Dispatcher: mail,
			Issuer:     "gatekeep-test",
			Now:        clock.Now,
		},
		gate: &GateService{
			Store:      st,
			Challenges: st.Challenges(),
			Dispatcher: mail,
			Ledger:     ledger,
			Hasher:     hasher,
			Tokens:     tokens,
			Now:        clock.Now,
		},
		ledger: ledger,
		user:   user,
	}
}

func (f *fixture) credentials(factor domain.FactorType) domain.Credentials {
	return domain.Credentials{
		Email:    f.user.Email,
		Password: testPassword,
		Factor:   factor,
		Client:   domain.ClientInfo{IP: "203.0.113.7", Device: "test-agent", Location: "Sydney"},
	}
}

// challengeSecret reads back what BeginEnrollment or Authenticate stored.
func (f *fixture) challengeSecret(t *testing.T, purpose domain.ChallengePurpose, factor domain.FactorType) string {
	t.Helper()
	ch, err := f.store.Challenges().Get(context.Background(), domain.ChallengeKey{Purpose: purpose, UserID: f.user.ID, Factor: factor})
	require.NoError(t, err)
	return ch.Secret
}

func (f *fixture) reloadUser(t *testing.T) domain.User {
	t.Helper()
	u, err := f.store.Users().GetUserByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	return u
}

func (f *fixture) records(t *testing.T) []domain.LoginRecord {
	t.Helper()
	page, err := f.ledger.Query(context.Background(), f.user.ID, 1, MaxPageSize)
	require.NoError(t, err)
	return page.Records
}

// enableEmail runs a full email OTP enrollment.
func (f *fixture) enableEmail(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.enroll.BeginEnrollment(ctx, f.user.ID, domain.FactorEmailOTP)
	require.NoError(t, err)
	require.NoError(t, f.enroll.ConfirmEnrollment(ctx, f.user.ID, domain.FactorEmailOTP, f.mail.last(t).Code))
}

func computeNow(secret string, now time.Time) (string, error) {
	return otpx.ComputeTOTP(secret, otpx.TimeStep(now))
}
