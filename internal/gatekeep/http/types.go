package http

import "github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"

// ConfirmRequest carries the code the user read from their authenticator
// app or email.
type ConfirmRequest struct {
	Code string `json:"code" example:"123456"`
}

// FactorsResponse lists the enabled factors.
type FactorsResponse struct {
	EnabledFactors []domain.FactorType `json:"enabled_factors"`
}

// LoginRequest is the primary credential step. Factor optionally picks
// which enabled second factor to be challenged with.
type LoginRequest struct {
	Email    string `json:"email" example:"owner@example.com"`
	Password string `json:"password"`
	Factor   string `json:"factor,omitempty" example:"totp"`
}

// SecondFactorRequest answers a login challenge.
type SecondFactorRequest struct {
	ChallengeRef string `json:"challenge_ref"`
	Code         string `json:"code" example:"123456"`
}

// HealthResponse is returned by the probe endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database   string `json:"database"`
	Challenges string `json:"challenges"`
}
