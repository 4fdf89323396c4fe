package github

import (
	"errors"
	"fmt"
	"net/http"

	gogithub "github.com/google/go-github/v66/github"
)

// APIError is a non-2xx response from GitHub.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github: %s: HTTP %d", e.Op, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode extracts the HTTP status carried by err, or 0 when the call
// failed before a response arrived.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// wrapError turns a go-github failure into an *APIError when GitHub answered,
// and into a plain wrapped error for transport failures.
func wrapError(op string, resp *gogithub.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return fmt.Errorf("github: %s: %w", op, err)
	}

	apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Err: err}
	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) {
		apiErr.Message = ghErr.Message
	}
	return apiErr
}
