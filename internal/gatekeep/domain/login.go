package domain

import "time"

// LoginState is a step in the login state machine.
type LoginState string

const (
	StateAwaitingCredentials  LoginState = "awaiting_credentials"
	StateCredentialsValidated LoginState = "credentials_validated"
	StateAwaitingSecondFactor LoginState = "awaiting_second_factor"
	StateAuthenticated        LoginState = "authenticated"
	StateFailed               LoginState = "failed"
)

// ClientInfo is the best effort request context stored on a login record.
type ClientInfo struct {
	IP       string
	Device   string
	Location string
}

// Credentials are the primary credentials plus an optional preferred
// second factor.
type Credentials struct {
	Email    string
	Password string
	Factor   FactorType
	Client   ClientInfo
}

// LoginResult is the outcome of Authenticate or SubmitSecondFactor.
type LoginResult struct {
	State LoginState `json:"state"`

	// Set when State is StateAuthenticated.
	RecordID     string    `json:"session_id,omitempty"`
	SessionToken string    `json:"session_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`

	// Set when State is StateAwaitingSecondFactor.
	ChallengeRef     string       `json:"challenge_ref,omitempty"`
	Factor           FactorType   `json:"factor,omitempty"`
	AvailableFactors []FactorType `json:"available_factors,omitempty"`
}

// LoginRecord is one entry in a user's login history. Only LoggedOut and
// LoggedOutAt ever change after the record is written.
type LoginRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	IP          string     `json:"ip"`
	Device      string     `json:"device"`
	Location    string     `json:"location"`
	Timestamp   time.Time  `json:"timestamp"`
	Success     bool       `json:"success"`
	Factor      FactorType `json:"factor,omitempty"`
	LoggedOut   bool       `json:"logged_out"`
	LoggedOutAt *time.Time `json:"logged_out_at,omitempty"`
}

// SessionPage is one page of login history, most recent first.
type SessionPage struct {
	Records  []LoginRecord `json:"records"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}
