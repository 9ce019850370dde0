package gatekeep_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/app"
	"github.com/aussiebroadwan/gatekeep/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helpers for the gatekeep end-to-end tests. Each test
 * gets its own application instance with a fresh database and secrets,
 * served over a real HTTP listener and driven through the SDK.
 */

const (
	ownerEmail    = "owner@example.com"
	ownerPassword = "Owner-Passw0rd!"
)

// logBuffer captures the application's JSON log so tests can read the
// codes the log dispatcher "sends".
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// lastCode returns the most recent one-time code written by the log
// dispatcher.
func (b *logBuffer) lastCode(t *testing.T) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var code string
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var line struct {
			Msg  string `json:"msg"`
			Code string `json:"code"`
		}
		if json.Unmarshal(sc.Bytes(), &line) != nil {
			continue
		}
		if strings.HasPrefix(line.Msg, "one-time code") && line.Code != "" {
			code = line.Code
		}
	}
	require.NotEmpty(t, code, "no one-time code has been logged")
	return code
}

type instance struct {
	client *authsdk.SDKClient
	logs   *logBuffer
}

// setupGatekeep starts gatekeep with relaxed rate limits. env overrides or
// extends the defaults.
func setupGatekeep(t *testing.T, env map[string]string) *instance {
	t.Helper()

	defaults := map[string]string{
		"RATE_LIMIT_LOGIN":   "1000",
		"RATE_LIMIT_ACCOUNT": "1000",
		"RATE_LIMIT_PROBE":   "1000",
	}
	for k, v := range env {
		defaults[k] = v
	}
	return setupGatekeepWithDefaultRateLimits(t, defaults)
}

// setupGatekeepWithDefaultRateLimits starts gatekeep with production rate
// limits unless env says otherwise.
func setupGatekeepWithDefaultRateLimits(t *testing.T, env map[string]string) *instance {
	t.Helper()
	dir := t.TempDir()

	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("GATEKEEP_ISSUER", "gatekeep-e2e")
	t.Setenv("GATEKEEP_DATABASE_FILE", filepath.Join(dir, "gatekeep.db"))
	t.Setenv("GATEKEEP_PEPPER_FILE", filepath.Join(dir, "pepper.key"))
	t.Setenv("GATEKEEP_TOKEN_KEY_FILE", filepath.Join(dir, "token.key"))
	t.Setenv("GATEKEEP_SEED_EMAIL", ownerEmail)
	t.Setenv("GATEKEEP_SEED_PASSWORD", ownerPassword)
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := app.LoadConfig()
	require.NoError(t, err)

	logs := &logBuffer{}
	logger := slogx.New(slogx.Config{
		Service: "gatekeep-e2e",
		Version: app.BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  logs,
	})

	application, err := app.NewWithLogger(cfg, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		if err := application.Close(); err != nil {
			t.Logf("failed to close application: %v", err)
		}
	})

	return &instance{client: authsdk.NewSDKClient(srv.URL), logs: logs}
}

// setupRedis starts a Redis container and returns its address. Skipped in
// short mode or when no container runtime is available.
func setupRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

// performLogin logs the owner in and fails the test unless a session comes
// straight back.
func performLogin(t *testing.T, client *authsdk.SDKClient) *authsdk.Session {
	t.Helper()

	session, err := client.Login(t.Context(), ownerEmail, ownerPassword, "")
	require.NoError(t, err, "login should succeed without a second factor")
	require.NotEmpty(t, session.Token())
	require.NotEmpty(t, session.ID())
	return session
}

// requireSecondFactor logs the owner in and returns the challenge.
func requireSecondFactor(t *testing.T, client *authsdk.SDKClient, preferred authsdk.Factor) *authsdk.SecondFactorRequiredError {
	t.Helper()

	_, err := client.Login(t.Context(), ownerEmail, ownerPassword, preferred)
	var sf *authsdk.SecondFactorRequiredError
	require.ErrorAs(t, err, &sf)
	require.NotEmpty(t, sf.ChallengeRef)
	return sf
}

// enrollTOTP enrolls the authenticator factor and returns its secret.
func enrollTOTP(t *testing.T, session *authsdk.Session) string {
	t.Helper()

	view, err := session.BeginEnrollment(t.Context(), authsdk.FactorTOTP)
	require.NoError(t, err)
	require.Equal(t, authsdk.FactorTOTP, view.Factor)

	key, err := otp.NewKeyFromURL(view.ProvisioningURI)
	require.NoError(t, err)
	require.Equal(t, "gatekeep-e2e", key.Issuer())
	require.Equal(t, ownerEmail, key.AccountName())

	require.NoError(t, session.ConfirmEnrollment(t.Context(), authsdk.FactorTOTP, generateTOTP(t, key.Secret())))
	return key.Secret()
}

// enrollEmail enrolls the email factor using the logged code.
func enrollEmail(t *testing.T, inst *instance, session *authsdk.Session) {
	t.Helper()

	view, err := session.BeginEnrollment(t.Context(), authsdk.FactorEmailOTP)
	require.NoError(t, err)
	require.Equal(t, "o****@example.com", view.Destination)

	require.NoError(t, session.ConfirmEnrollment(t.Context(), authsdk.FactorEmailOTP, inst.logs.lastCode(t)))
}

func generateTOTP(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

// wrongCode returns a well formed code that differs from code.
func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}

// assertCode checks err is an API error with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, authsdk.IsCode(err, code), "expected %s, got: %v", code, err)
}
