// Package provider implements provider onboarding and identity resolution.
package provider

import (
	"strings"

	"github.com/autonoos/intake-gateway/internal/apierr"
)

// SignupInput is the raw provider signup payload. It is transient; it
// exists only for the duration of one request.
type SignupInput struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PracticeName string `json:"practiceName"`
	NPI          string `json:"npi"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
}

// Normalize trims every field and strips non-digits from npi and phone,
// then rejects with the exact list of missing field names if any required
// field is empty.
func (in SignupInput) Normalize() (SignupInput, error) {
	out := SignupInput{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PracticeName: strings.TrimSpace(in.PracticeName),
		NPI:          DigitsOnly(in.NPI),
		Email:        strings.TrimSpace(in.Email),
		Phone:        DigitsOnly(in.Phone),
		Password:     strings.TrimSpace(in.Password),
	}

	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"firstName", out.FirstName},
		{"lastName", out.LastName},
		{"practiceName", out.PracticeName},
		{"npi", out.NPI},
		{"email", out.Email},
		{"phone", out.Phone},
		{"password", out.Password},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return SignupInput{}, apierr.Validation("missing required fields", missing...)
	}
	return out, nil
}

// DigitsOnly strips every non-digit character: "(915) 474-6142" becomes
// "9154746142".
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePracticeName lowers and trims a practice name so resolution is
// case- and whitespace-insensitive.
func NormalizePracticeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
