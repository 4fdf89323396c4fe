package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means neither a static token nor a complete App
	// identity is configured. Fatal to the request, not the process.
	ErrConfiguration = errors.New("github credentials not configured")

	// ErrRepositoryResolution means no target repository could be derived
	// from configuration and payload.
	ErrRepositoryResolution = errors.New("target repository could not be resolved")

	// ErrInstallationNotFound means the App has no installation covering the
	// target repository.
	ErrInstallationNotFound = errors.New("github app installation not found")

	// ErrPolicyDenied means the repository's topics do not satisfy the policy.
	ErrPolicyDenied = errors.New("repository topics not allowed")
)

// UpstreamAuthError is a failure while discovering an installation or minting
// an installation token.
type UpstreamAuthError struct {
	Op         string
	StatusCode int // zero when no HTTP response was received
	Err        error
}

func (e *UpstreamAuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamAuthError) Unwrap() error { return e.Err }

// UpstreamError is any other failed call to GitHub (topic lookup, transport
// failure during dispatch).
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
