package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

func factorPath(f Factor, suffix string) string {
	return "/v1/mfa/" + url.PathEscape(string(f)) + suffix
}

// EnabledFactors lists the second factors enabled on the account.
func (s *Session) EnabledFactors(ctx context.Context) ([]Factor, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/mfa", nil)
	if err != nil {
		return nil, err
	}

	var res FactorsResponse
	if err := decodeJSON(resp, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return res.EnabledFactors, nil
}

// BeginEnrollment starts enrolling factor. Any pending enrollment for the
// same factor is superseded.
func (s *Session) BeginEnrollment(ctx context.Context, f Factor) (*EnrollmentView, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, factorPath(f, "/enroll"), nil)
	if err != nil {
		return nil, err
	}

	var view EnrollmentView
	if err := decodeJSON(resp, &view, http.StatusOK); err != nil {
		return nil, err
	}
	return &view, nil
}

// ConfirmEnrollment submits the code for a pending enrollment. The pending
// challenge is used up whether or not the code matches.
func (s *Session) ConfirmEnrollment(ctx context.Context, f Factor, code string) error {
	body, err := encodeBody(ConfirmRequest{Code: code})
	if err != nil {
		return err
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, factorPath(f, "/confirm"), body)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// DisableFactor turns an enabled factor off.
func (s *Session) DisableFactor(ctx context.Context, f Factor) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, factorPath(f, ""), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
