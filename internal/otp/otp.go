// Package otp issues and checks one-time SMS codes through an external
// verification service. Codes are never stored locally; the service holds the
// challenge state keyed by phone number.
package otp

import (
	"context"
	"errors"
	"strings"
)

// Status is the outcome of checking a code.
type Status string

const (
	Approved Status = "approved"
	Rejected Status = "rejected"
	Expired  Status = "expired"
)

var (
	ErrTooManyRequests = errors.New("too many verification requests, please try again later")
	ErrGatewayFailure  = errors.New("verification service unavailable")
	ErrInvalidPhone    = errors.New("invalid phone number")
)

// Challenge identifies an issued verification.
type Challenge struct {
	SID    string
	To     string
	Status string
}

// Gateway is the verification service contract. Only Approved means the code
// was correct.
type Gateway interface {
	IssueChallenge(ctx context.Context, phone string) (*Challenge, error)
	CheckChallenge(ctx context.Context, phone, code string) (Status, error)
}

// NormalizePhone strips formatting characters and prepends countryCode
// unless the number is already in international form.
func NormalizePhone(countryCode, phone string) (string, error) {
	local := LocalPhone(phone)
	if local == "" {
		return "", ErrInvalidPhone
	}
	if strings.HasPrefix(local, "+") {
		if len(local) < 8 {
			return "", ErrInvalidPhone
		}
		return local, nil
	}
	if len(local) < 6 {
		return "", ErrInvalidPhone
	}
	return countryCode + local, nil
}

// LocalPhone removes spaces, dashes and brackets, keeping digits and a
// leading plus. It is the form phone numbers are stored in.
func LocalPhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Unconfigured is used when no verification credentials are set. Every call
// fails with ErrGatewayFailure so OTP-gated flows stay closed.
type Unconfigured struct{}

func (Unconfigured) IssueChallenge(context.Context, string) (*Challenge, error) {
	return nil, ErrGatewayFailure
}

func (Unconfigured) CheckChallenge(context.Context, string, string) (Status, error) {
	return Rejected, ErrGatewayFailure
}
