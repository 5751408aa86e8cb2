package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrDeclined indicates the user rejected the authorization request.
	ErrDeclined = errors.New("authorization declined by user")
	// ErrSessionExpired indicates the device code expired before the user
	// completed the authorization.
	ErrSessionExpired = errors.New("device authorization session expired")
	// ErrCanceled indicates the session was canceled before reaching a
	// terminal state.
	ErrCanceled = errors.New("device authorization canceled")
)

// PendingKind classifies the provider error codes that are expected during
// device-code polling. They are normal protocol signals, not transport
// failures.
type PendingKind string

const (
	PendingAuthorization PendingKind = "authorization_pending"
	PendingSlowDown      PendingKind = "slow_down"
	PendingDeclined      PendingKind = "authorization_declined"
	PendingExpired       PendingKind = "expired_token"
)

// PendingError is the typed poll outcome for an expected device-flow signal.
type PendingError struct {
	Kind PendingKind
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("device authorization %s", e.Kind)
}

// ProviderError is a structured error response from the identity provider.
type ProviderError struct {
	Code        string
	Description string
	StatusCode  int
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider error %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("provider error %s", e.Code)
}

// RefreshError is the typed outcome of a failed refresh-token exchange.
// Recoverable failures (network, provider outage) may be retried later
// without side effects; non-recoverable failures mean the grant itself was
// rejected and only a full re-authorization can help.
type RefreshError struct {
	Recoverable bool
	Err         error
}

func (e *RefreshError) Error() string {
	if e.Recoverable {
		return fmt.Sprintf("token refresh failed (retryable): %v", e.Err)
	}
	return fmt.Sprintf("token refresh rejected: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
