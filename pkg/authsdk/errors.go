package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Error codes returned by the service.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidCodeFormat    = "invalid_code_format"
	ErrorCodeInvalidPage          = "invalid_page"
	ErrorCodeUnknownFactor        = "unknown_factor"
	ErrorCodeChallengeNotFound    = "challenge_not_found"
	ErrorCodeUserNotFound         = "user_not_found"
	ErrorCodeChallengeConsumed    = "challenge_consumed"
	ErrorCodeChallengeExpired     = "challenge_expired"
	ErrorCodeFactorAlreadyEnabled = "factor_already_enabled"
	ErrorCodeFactorNotEnabled     = "factor_not_enabled"
	ErrorCodeInvalidSessionState  = "invalid_session_state"
	ErrorCodeCodeMismatch         = "code_mismatch"
	ErrorCodeInvalidCredentials   = "invalid_credentials"
	ErrorCodeDependency           = "dependency_unavailable"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeRateLimited          = "rate_limit_exceeded"
	ErrorCodeServerError          = "server_error"

	// Client side only.
	ErrorCodeNotReady        = "not_ready"
	ErrorCodeUnexpectedState = "unexpected_state"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`

	// RetryAfter is set on rate limited responses.
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// SecondFactorRequiredError is returned by Login when the account has a
// second factor enabled. Pass ChallengeRef to SubmitSecondFactor along
// with a code for Factor.
type SecondFactorRequiredError struct {
	ChallengeRef string
	Factor       Factor
	Available    []Factor
}

func (e *SecondFactorRequiredError) Error() string {
	return fmt.Sprintf("second factor required: %s (available %v)", e.Factor, e.Available)
}

// parseErrorResponse turns an error body into an *APIError, falling back
// to the status text when the body is not the usual JSON error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}

	if err := json.Unmarshal(body, apiErr); err == nil && apiErr.Code != "" {
		return apiErr
	}

	apiErr.Code = ErrorCodeServerError
	apiErr.Description = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return apiErr
}
