package domain

import "time"

// ChallengePurpose namespaces challenges so that an enrollment code can
// never complete a login and a login code can never complete an enrollment.
type ChallengePurpose string

const (
	PurposeEnrollment ChallengePurpose = "enrollment"
	PurposeLogin      ChallengePurpose = "login"
)

// ChallengeKey identifies the single live challenge slot for a user,
// factor and purpose.
type ChallengeKey struct {
	Purpose ChallengePurpose
	UserID  string
	Factor  FactorType
}

// Challenge is a short lived single use proof. Secret holds the TOTP secret
// for TOTP enrollment, the numeric code for email OTP, and is empty for a
// TOTP login which checks against the user's stored secret.
type Challenge struct {
	ID         string
	Key        ChallengeKey
	Secret     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// Consumed reports whether the challenge has already been redeemed.
func (c Challenge) Consumed() bool { return c.ConsumedAt != nil }

// ExpiredAt reports whether the challenge is past its expiry at now.
func (c Challenge) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// EnrollmentView is what BeginEnrollment hands back to the caller. For TOTP
// it carries the provisioning URI, for email OTP only a masked address.
type EnrollmentView struct {
	Factor          FactorType `json:"factor"`
	ProvisioningURI string     `json:"provisioning_uri,omitempty"`
	Destination     string     `json:"destination,omitempty"`
	ExpiresAt       time.Time  `json:"expires_at"`
}
