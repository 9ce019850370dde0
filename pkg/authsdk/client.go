package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// LocationHeader mirrors the server's optional coarse location header.
const LocationHeader = "X-Client-Location"

// SDKClient is a client for the gatekeep service. It provides access to the
// unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// UserAgent and Location are sent on login requests and end up on the
	// login record. Both are optional.
	UserAgent string
	Location  string
}

// NewSDKClient creates a new gatekeep client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: "gatekeep-authsdk",
	}
}

// Login submits primary credentials. factor optionally names the preferred
// second factor. When a second factor is required the returned error is a
// *SecondFactorRequiredError and the session is nil.
func (c *SDKClient) Login(ctx context.Context, email, password string, factor Factor) (*Session, error) {
	body, err := encodeBody(LoginRequest{Email: email, Password: password, Factor: factor})
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/login", body, c.loginHeaders())
	if err != nil {
		return nil, err
	}

	var res LoginResult
	if err := decodeJSON(resp, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return c.sessionFrom(&res)
}

// SubmitSecondFactor completes a login with the code for the challenge
// named by ref.
func (c *SDKClient) SubmitSecondFactor(ctx context.Context, ref, code string) (*Session, error) {
	body, err := encodeBody(SecondFactorRequest{ChallengeRef: ref, Code: code})
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/login/mfa", body, c.loginHeaders())
	if err != nil {
		return nil, err
	}

	var res LoginResult
	if err := decodeJSON(resp, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return c.sessionFrom(&res)
}

// NewSessionFromToken wraps an existing session token, e.g. one restored
// from a cookie.
func (c *SDKClient) NewSessionFromToken(token string) *Session {
	return &Session{client: c, token: token}
}

func (c *SDKClient) loginHeaders() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if c.UserAgent != "" {
		h["User-Agent"] = c.UserAgent
	}
	if c.Location != "" {
		h[LocationHeader] = c.Location
	}
	return h
}

func (c *SDKClient) sessionFrom(res *LoginResult) (*Session, error) {
	switch res.State {
	case StateAuthenticated:
		return newSession(c, res), nil
	case StateAwaitingSecondFactor:
		return nil, &SecondFactorRequiredError{
			ChallengeRef: res.ChallengeRef,
			Factor:       res.Factor,
			Available:    res.AvailableFactors,
		}
	default:
		return nil, &APIError{
			StatusCode:  http.StatusOK,
			Code:        ErrorCodeUnexpectedState,
			Description: "unexpected login state " + string(res.State),
		}
	}
}
