package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	ErrInvalidDestination ErrorKind = "INVALID_DESTINATION"
	ErrRateLimited        ErrorKind = "RATE_LIMITED"
	ErrQuotaExceeded      ErrorKind = "QUOTA_EXCEEDED"
	ErrUndeliverable      ErrorKind = "UNDELIVERABLE"
	ErrProviderError      ErrorKind = "PROVIDER_ERROR"
	ErrConsentDenied      ErrorKind = "CONSENT_DENIED"
)

// SendError is a classified delivery failure. Expected failure modes are
// returned as values, never panicked.
type SendError struct {
	Kind    ErrorKind
	Message string
	Code    int
}

func (e *SendError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (carrier code %d)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether another attempt may succeed. Only carrier-side
// transient failures qualify.
func (e *SendError) Retryable() bool {
	return e.Kind == ErrProviderError
}

func NewSendError(kind ErrorKind, message string) *SendError {
	return &SendError{Kind: kind, Message: message}
}

// KindOf classifies any error returned by the delivery path. Errors that are
// not SendError (network timeouts etc.) count as provider errors.
func KindOf(err error) ErrorKind {
	var serr *SendError
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return ErrProviderError
}

// Result is what a successful carrier accept yields.
type Result struct {
	TrackingId string
	Note       string
}

// Client performs one carrier API call. Implemented by TwilioClient (live)
// and NullClient (credential-less degraded mode).
type Client interface {
	Send(ctx context.Context, to, from, body string) (Result, error)
}

// NormalizeDestination canonicalizes a raw destination into E.164 form:
// digits only, country-code prefixed, leading plus. Malformed input yields
// an InvalidDestination error before any network activity.
func NormalizeDestination(raw, countryCode string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 10:
		d = countryCode + d
	case len(d) > 10 && len(d) <= 15:
		//already carries a country code
	default:
		return "", NewSendError(ErrInvalidDestination, "malformed destination "+raw)
	}

	return "+" + d, nil
}
