package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// SessionsHandler exposes the login ledger of the calling user.
type SessionsHandler struct {
	Ledger *service.LedgerService
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// HandleList handles GET /v1/sessions
//
//	@Summary		List login history
//	@Description	Most recent first. Both successful and failed attempts are listed.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			page		query		int	false	"1-based page"	default(1)
//	@Param			page_size	query		int	false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	domain.SessionPage
//	@Failure		400			{object}	httpx.ErrorBody	"Invalid page"
//	@Failure		401			{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeServiceError(w, r, domain.ErrInvalidPage)
		return
	}
	size, err := queryInt(r, "page_size", service.DefaultPageSize)
	if err != nil {
		writeServiceError(w, r, domain.ErrInvalidPage)
		return
	}

	res, err := h.Ledger.Query(r.Context(), httpx.UserID(r.Context()), page, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleLogout handles POST /v1/sessions/{id}/logout
//
//	@Summary		Log out a session
//	@Description	Ends one of the caller's sessions, including the current one. Failed attempts and sessions already logged out are rejected.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session (login record) id"
//	@Success		204
//	@Failure		401	{object}	httpx.ErrorBody	"Invalid or missing session token"
//	@Failure		409	{object}	httpx.ErrorBody	"Session not active"
//	@Router			/v1/sessions/{id}/logout [post].
func (h *SessionsHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.MarkLoggedOut(r.Context(), httpx.UserID(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequireLiveSession rejects session tokens whose login record has been
// logged out. It must run after httpx.AuthnMiddleware.
func RequireLiveSession(ledger *service.LedgerService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			active, err := ledger.IsActive(ctx, httpx.UserID(ctx), httpx.SessionID(ctx))
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			if !active {
				slogx.FromContext(ctx).Info("rejected logged out session", "session_id", httpx.SessionID(ctx))
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="session logged out"`)
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "session logged out")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
