package domain

import (
	"slices"
	"strings"
)

// FactorType names a second factor a user can enroll.
type FactorType string

const (
	FactorEmailOTP FactorType = "email_otp"
	FactorTOTP     FactorType = "totp"
)

// AllFactors in the order the login gate prefers them when the caller
// does not pick one: TOTP first since it needs no outbound email.
var AllFactors = []FactorType{FactorTOTP, FactorEmailOTP}

// ParseFactor accepts the wire names plus a few aliases used in URLs.
func ParseFactor(s string) (FactorType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "totp":
		return FactorTOTP, nil
	case "email_otp", "email-otp", "email":
		return FactorEmailOTP, nil
	default:
		return "", ErrUnknownFactor
	}
}

// Valid reports whether f is one of the supported factors.
func (f FactorType) Valid() bool {
	return f == FactorTOTP || f == FactorEmailOTP
}

// FactorSet is the unordered set of enabled factors. The zero value is
// the empty set.
type FactorSet []FactorType

// Has reports whether f is in the set.
func (s FactorSet) Has(f FactorType) bool {
	return slices.Contains(s, f)
}

// With returns a copy of the set including f.
func (s FactorSet) With(f FactorType) FactorSet {
	if s.Has(f) {
		return s.Normalize()
	}
	return append(slices.Clone(s), f).Normalize()
}

// Without returns a copy of the set excluding f.
func (s FactorSet) Without(f FactorType) FactorSet {
	out := slices.DeleteFunc(slices.Clone(s), func(x FactorType) bool { return x == f })
	return out.Normalize()
}

// Normalize drops unknown and duplicate entries and sorts the rest so
// the stored form is stable.
func (s FactorSet) Normalize() FactorSet {
	out := make(FactorSet, 0, len(s))
	for _, f := range s {
		if f.Valid() && !out.Has(f) {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

// Empty reports whether no factor is enabled.
func (s FactorSet) Empty() bool { return len(s) == 0 }

// String joins the set with commas, the form stored in the database.
func (s FactorSet) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

// ParseFactorSet reverses String. Unknown names are dropped.
func ParseFactorSet(s string) FactorSet {
	if s == "" {
		return FactorSet{}
	}
	var out FactorSet
	for _, part := range strings.Split(s, ",") {
		out = append(out, FactorType(strings.TrimSpace(part)))
	}
	return out.Normalize()
}
