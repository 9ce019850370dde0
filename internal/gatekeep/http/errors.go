package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

var descriptions = map[string]string{
	domain.ErrInvalidCodeFormat.Code:    "code must be exactly 6 digits",
	domain.ErrInvalidPage.Code:          "page must be >= 1 and page_size between 1 and 100",
	domain.ErrUnknownFactor.Code:        "factor must be one of totp, email_otp",
	domain.ErrChallengeNotFound.Code:    "no pending challenge, start enrollment first",
	domain.ErrUserNotFound.Code:         "user not found",
	domain.ErrChallengeConsumed.Code:    "challenge already used, start again",
	domain.ErrChallengeExpired.Code:     "challenge expired, start again",
	domain.ErrFactorAlreadyEnabled.Code: "factor is already enabled, disable it first",
	domain.ErrFactorNotEnabled.Code:     "factor is not enabled",
	domain.ErrInvalidSessionState.Code:  "session is not active",
	domain.ErrCodeMismatch.Code:         "invalid code",
	domain.ErrInvalidCredentials.Code:   "invalid email or password",
	domain.ErrDependency.Code:           "a required service is unavailable, try again later",
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindStateConflict:
		return http.StatusConflict
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service error onto the JSON error response.
// Unclassified errors are logged and reported as server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	kind := domain.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err, "kind", kind)
	}
	if kind == "" {
		httpx.WriteError(w, status, "server_error", "internal server error")
		return
	}

	code := domain.CodeOf(err)
	httpx.WriteError(w, status, code, descriptions[code])
}

func writeBadRequest(w http.ResponseWriter, desc string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", desc)
}
