package authsdk

import (
	"context"
	"net/http"
	"strings"
)

// GetLiveness reports whether the gatekeep process is up. It never looks
// at the stores.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.probe(ctx, "/livez")
}

// GetReadiness reports whether gatekeep can reach its user database and
// challenge store. When either is down the returned error has code
// ErrorCodeNotReady and the response still lists the failing checks.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.probe(ctx, "/readyz")
}

func (c *SDKClient) probe(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	degraded := resp.StatusCode == http.StatusServiceUnavailable
	want := http.StatusOK
	if degraded {
		want = http.StatusServiceUnavailable
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, want); err != nil {
		return nil, err
	}
	if degraded {
		return &health, &APIError{
			StatusCode:  want,
			Code:        ErrorCodeNotReady,
			Description: "unhealthy: " + strings.Join(health.Checks.Failing(), ", "),
		}
	}
	return &health, nil
}

// Failing names the checks that did not report ok.
func (hc *HealthChecks) Failing() []string {
	if hc == nil {
		return nil
	}
	var out []string
	if hc.Database != "ok" {
		out = append(out, "database")
	}
	if hc.Challenges != "ok" {
		out = append(out, "challenges")
	}
	return out
}
