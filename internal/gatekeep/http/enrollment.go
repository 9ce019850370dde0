package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

// EnrollmentHandler serves the factor management endpoints. Every route
// sits behind AuthnMiddleware, so the user id always comes from the
// session token.
type EnrollmentHandler struct {
	Service *service.EnrollmentService
}

func factorFromPath(w http.ResponseWriter, r *http.Request) (domain.FactorType, bool) {
	f, err := domain.ParseFactor(r.PathValue("factor"))
	if err != nil {
		writeServiceError(w, r, err)
		return "", false
	}
	return f, true
}

// HandleBegin handles POST /v1/mfa/{factor}/enroll
//
//	@Summary		Start factor enrollment
//	@Description	Issues a fresh enrollment challenge, replacing any pending one. For totp the response carries the provisioning URI, shown only this once. For email_otp a code is mailed and the response names the masked destination.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Param			factor	path		string					true	"totp or email_otp"
//	@Success		200		{object}	domain.EnrollmentView
//	@Failure		400		{object}	httpx.ErrorBody	"Unknown factor"
//	@Failure		401		{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Failure		409		{object}	httpx.ErrorBody	"Factor already enabled"
//	@Failure		503		{object}	httpx.ErrorBody	"Email could not be sent; the challenge is still valid"
//	@Router			/v1/mfa/{factor}/enroll [post].
func (h *EnrollmentHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	factor, ok := factorFromPath(w, r)
	if !ok {
		return
	}

	view, err := h.Service.BeginEnrollment(r.Context(), httpx.UserID(r.Context()), factor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// HandleConfirm handles POST /v1/mfa/{factor}/confirm
//
//	@Summary		Confirm factor enrollment
//	@Description	Consumes the pending challenge and enables the factor if the code matches. A wrong code spends the challenge; start enrollment again.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			factor	path	string			true	"totp or email_otp"
//	@Param			request	body	ConfirmRequest	true	"Code"
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorBody	"Malformed code"
//	@Failure		401	{object}	httpx.ErrorBody	"Wrong code or invalid session token"
//	@Failure		404	{object}	httpx.ErrorBody	"No pending challenge"
//	@Failure		409	{object}	httpx.ErrorBody	"Challenge expired or already used"
//	@Router			/v1/mfa/{factor}/confirm [post].
func (h *EnrollmentHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	factor, ok := factorFromPath(w, r)
	if !ok {
		return
	}

	var req ConfirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.Service.ConfirmEnrollment(r.Context(), httpx.UserID(r.Context()), factor, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable handles DELETE /v1/mfa/{factor}
//
//	@Summary		Disable a factor
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Param			factor	path	string	true	"totp or email_otp"
//	@Success		204
//	@Failure		401	{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Failure		409	{object}	httpx.ErrorBody	"Factor not enabled"
//	@Router			/v1/mfa/{factor} [delete].
func (h *EnrollmentHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	factor, ok := factorFromPath(w, r)
	if !ok {
		return
	}

	if err := h.Service.DisableFactor(r.Context(), httpx.UserID(r.Context()), factor); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles GET /v1/mfa
//
//	@Summary		List enabled factors
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	FactorsResponse
//	@Failure		401	{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Router			/v1/mfa [get].
func (h *EnrollmentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	factors, err := h.Service.EnabledFactors(r.Context(), httpx.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, FactorsResponse{EnabledFactors: factors})
}
