package authsdk

import "time"

// Factor names a second factor.
type Factor string

const (
	FactorTOTP     Factor = "totp"
	FactorEmailOTP Factor = "email_otp"
)

// LoginState is the state reported by the login endpoints.
type LoginState string

const (
	StateAwaitingSecondFactor LoginState = "awaiting_second_factor"
	StateAuthenticated        LoginState = "authenticated"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Factor   Factor `json:"factor,omitempty"`
}

type SecondFactorRequest struct {
	ChallengeRef string `json:"challenge_ref"`
	Code         string `json:"code"`
}

type ConfirmRequest struct {
	Code string `json:"code"`
}

// LoginResult is the body of both login endpoints.
type LoginResult struct {
	State LoginState `json:"state"`

	SessionID    string    `json:"session_id,omitempty"`
	SessionToken string    `json:"session_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`

	ChallengeRef     string   `json:"challenge_ref,omitempty"`
	Factor           Factor   `json:"factor,omitempty"`
	AvailableFactors []Factor `json:"available_factors,omitempty"`
}

// EnrollmentView is returned when enrollment starts. TOTP enrollments carry
// the provisioning URI, email enrollments the masked destination.
type EnrollmentView struct {
	Factor          Factor    `json:"factor"`
	ProvisioningURI string    `json:"provisioning_uri,omitempty"`
	Destination     string    `json:"destination,omitempty"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type FactorsResponse struct {
	EnabledFactors []Factor `json:"enabled_factors"`
}

// LoginRecord is one entry of the login history.
type LoginRecord struct {
	ID          string     `json:"id"`
	IP          string     `json:"ip"`
	Device      string     `json:"device"`
	Location    string     `json:"location"`
	Timestamp   time.Time  `json:"timestamp"`
	Success     bool       `json:"success"`
	Factor      Factor     `json:"factor,omitempty"`
	LoggedOut   bool       `json:"logged_out"`
	LoggedOutAt *time.Time `json:"logged_out_at,omitempty"`
}

// SessionPage is one page of login history, most recent first.
type SessionPage struct {
	Records  []LoginRecord `json:"records"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

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
