package domain

import "time"

// User is the slice of the account record the MFA engine reads and writes.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	EnabledFactors FactorSet

	// TOTPSecret is set while TOTP is enabled or an enrollment is pending.
	// It never leaves the service except inside a provisioning URI.
	TOTPSecret *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTOTPSecret reports whether a secret is stored.
func (u User) HasTOTPSecret() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}
