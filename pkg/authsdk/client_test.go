package authsdk_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/pkg/authsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubServer(t *testing.T, h http.HandlerFunc) *authsdk.SDKClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return authsdk.NewSDKClient(srv.URL + "/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginAuthenticated(t *testing.T) {
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Sydney", r.Header.Get(authsdk.LocationHeader))

		var req authsdk.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "owner@example.com", req.Email)

		writeJSON(w, http.StatusOK, authsdk.LoginResult{
			State:        authsdk.StateAuthenticated,
			SessionID:    "rec-1",
			SessionToken: "tok",
			ExpiresAt:    exp,
		})
	})
	client.Location = "Sydney"

	session, err := client.Login(t.Context(), "owner@example.com", "pw", "")
	require.NoError(t, err)
	require.Equal(t, "tok", session.Token())
	require.Equal(t, "rec-1", session.ID())
	require.True(t, exp.Equal(session.ExpiresAt()))
	require.False(t, session.Expired())
}

func TestLoginSecondFactorRequired(t *testing.T) {
	client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authsdk.LoginResult{
			State:            authsdk.StateAwaitingSecondFactor,
			ChallengeRef:     "ref",
			Factor:           authsdk.FactorEmailOTP,
			AvailableFactors: []authsdk.Factor{authsdk.FactorTOTP, authsdk.FactorEmailOTP},
		})
	})

	session, err := client.Login(t.Context(), "owner@example.com", "pw", authsdk.FactorEmailOTP)
	require.Nil(t, session)

	var sf *authsdk.SecondFactorRequiredError
	require.True(t, errors.As(err, &sf))
	require.Equal(t, "ref", sf.ChallengeRef)
	require.Equal(t, authsdk.FactorEmailOTP, sf.Factor)
	require.Len(t, sf.Available, 2)
}

func TestAPIErrors(t *testing.T) {
	client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/login":
			w.Header().Set("Retry-After", "42")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": authsdk.ErrorCodeRateLimited, "error_description": "slow down",
			})
		case "/v1/login/mfa":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>upstream</html>"))
		default:
			http.NotFound(w, r)
		}
	})

	_, err := client.Login(t.Context(), "a@b.c", "pw", "")
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, 42*time.Second, apiErr.RetryAfter)
	require.True(t, authsdk.IsCode(err, authsdk.ErrorCodeRateLimited))

	_, err = client.SubmitSecondFactor(t.Context(), "ref", "123456")
	require.True(t, authsdk.IsCode(err, authsdk.ErrorCodeServerError))
	require.Contains(t, err.Error(), "502")
}

func TestSessionSendsBearer(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/mfa":
			writeJSON(w, http.StatusOK, authsdk.FactorsResponse{EnabledFactors: []authsdk.Factor{authsdk.FactorTOTP}})
		case r.Method == http.MethodPost && r.URL.Path == "/v1/mfa/totp/enroll":
			writeJSON(w, http.StatusOK, authsdk.EnrollmentView{Factor: authsdk.FactorTOTP, ProvisioningURI: "otpauth://totp/x"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/sessions":
			writeJSON(w, http.StatusOK, authsdk.SessionPage{Records: []authsdk.LoginRecord{}, Page: 2, PageSize: 5})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	s := client.NewSessionFromToken("tok")
	require.False(t, s.Expired())

	factors, err := s.EnabledFactors(t.Context())
	require.NoError(t, err)
	require.Equal(t, []authsdk.Factor{authsdk.FactorTOTP}, factors)

	view, err := s.BeginEnrollment(t.Context(), authsdk.FactorTOTP)
	require.NoError(t, err)
	require.Equal(t, "otpauth://totp/x", view.ProvisioningURI)

	require.NoError(t, s.ConfirmEnrollment(t.Context(), authsdk.FactorTOTP, "123456"))
	require.NoError(t, s.DisableFactor(t.Context(), authsdk.FactorEmailOTP))

	page, err := s.ListSessions(t.Context(), 2, 5)
	require.NoError(t, err)
	require.Equal(t, 2, page.Page)

	require.NoError(t, s.LogoutSession(t.Context(), "rec-9"))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{
		"GET /v1/mfa",
		"POST /v1/mfa/totp/enroll",
		"POST /v1/mfa/totp/confirm",
		"DELETE /v1/mfa/email_otp",
		"GET /v1/sessions?page=2&page_size=5",
		"POST /v1/sessions/rec-9/logout",
	}, calls)
}

func TestNoContentExpected(t *testing.T) {
	client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": authsdk.ErrorCodeChallengeConsumed})
	})

	err := client.NewSessionFromToken("tok").ConfirmEnrollment(t.Context(), authsdk.FactorTOTP, "123456")
	require.True(t, authsdk.IsCode(err, authsdk.ErrorCodeChallengeConsumed))
}

func TestGetReadinessDegraded(t *testing.T) {
	client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, authsdk.HealthResponse{
			Status: "degraded",
			Checks: &authsdk.HealthChecks{Database: "ok", Challenges: "error: down"},
		})
	})

	health, err := client.GetReadiness(t.Context())
	require.True(t, authsdk.IsCode(err, authsdk.ErrorCodeNotReady))
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, "error: down", health.Checks.Challenges)
	require.Equal(t, []string{"challenges"}, health.Checks.Failing())

	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.Contains(t, apiErr.Description, "challenges")
}
