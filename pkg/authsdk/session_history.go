package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListSessions returns one page of login history. A pageSize of zero uses
// the server default.
func (s *Session) ListSessions(ctx context.Context, page, pageSize int) (*SessionPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}

	path := "/v1/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var res SessionPage
	if err := decodeJSON(resp, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return &res, nil
}

// LogoutSession marks any of the user's successful logins as logged out.
func (s *Session) LogoutSession(ctx context.Context, recordID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(recordID)+"/logout", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
