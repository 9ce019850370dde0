package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

// LocationHeader optionally carries a coarse client location set by a
// fronting proxy.
const LocationHeader = "X-Client-Location"

// LoginHandler serves the two login steps.
type LoginHandler struct {
	Gate *service.GateService
}

func clientInfo(r *http.Request) domain.ClientInfo {
	return domain.ClientInfo{
		IP:       httpx.IPKeyExtractor(r),
		Device:   r.UserAgent(),
		Location: strings.TrimSpace(r.Header.Get(LocationHeader)),
	}
}

// HandleLogin handles POST /v1/login
//
//	@Summary		Log in with email and password
//	@Description	Returns a session token straight away when no factor is enabled. Otherwise the state is awaiting_second_factor and challenge_ref must be sent to /v1/login/mfa with the code.
//	@Tags			Login
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	domain.LoginResult
//	@Failure		400		{object}	httpx.ErrorBody	"Malformed request"
//	@Failure		401		{object}	httpx.ErrorBody	"Invalid email or password"
//	@Failure		429		{object}	httpx.ErrorBody	"Too many attempts"
//	@Failure		503		{object}	httpx.ErrorBody	"Code could not be sent"
//	@Router			/v1/login [post].
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	creds := domain.Credentials{
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(r),
	}
	if req.Factor != "" {
		f, err := domain.ParseFactor(req.Factor)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		creds.Factor = f
	}

	res, err := h.Gate.Authenticate(r.Context(), creds)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleSecondFactor handles POST /v1/login/mfa
//
//	@Summary		Complete login with a second factor
//	@Description	Any failure is reported as code_mismatch. Replaying a reference that was already used reports challenge_consumed.
//	@Tags			Login
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SecondFactorRequest	true	"Challenge reference and code"
//	@Success		200		{object}	domain.LoginResult
//	@Failure		401		{object}	httpx.ErrorBody	"Invalid code"
//	@Failure		409		{object}	httpx.ErrorBody	"Challenge already used"
//	@Failure		429		{object}	httpx.ErrorBody	"Too many attempts"
//	@Router			/v1/login/mfa [post].
func (h *LoginHandler) HandleSecondFactor(w http.ResponseWriter, r *http.Request) {
	var req SecondFactorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.Gate.SubmitSecondFactor(r.Context(), req.ChallengeRef, req.Code, clientInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
