package clierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/phynance/phyn/client"
)

// Type categorizes a CLI-facing error for consistent messaging & exit codes.
type Type string

const (
	Auth       Type = "auth"
	Network    Type = "network"
	Remote     Type = "remote"
	Validation Type = "validation"
	NotFound   Type = "not_found"
	Internal   Type = "internal"
)

// Error is a structured user-facing error.
type Error struct {
	Type    Type
	Message string
	Err     error // optional underlying error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// New constructs a new CLI Error.
func New(t Type, msg string, err error) *Error { return &Error{Type: t, Message: msg, Err: err} }

// ExitCode maps an error type to the process exit status.
func (t Type) ExitCode() int {
	switch t {
	case Validation:
		return 2
	case Auth:
		return 3
	case Network:
		return 4
	case NotFound:
		return 5
	case Remote:
		return 6
	default:
		return 1
	}
}

// FromAPI converts an error returned by the API client into a user-facing one.
// Errors that already are *Error pass through; unknown errors become Internal.
func FromAPI(action string, err error) *Error {
	if err == nil {
		return nil
	}
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var apiErr *client.Error
	if !errors.As(err, &apiErr) {
		return New(Internal, fmt.Sprintf("%s failed: %v", action, err), err)
	}
	switch apiErr.Kind {
	case client.KindAuthentication:
		return New(Auth, fmt.Sprintf("%s failed: not logged in or session expired; please run `phyn login`", action), err)
	case client.KindAuthorization:
		return New(Auth, fmt.Sprintf("%s failed: your account is not allowed to do this", action), err)
	case client.KindNetwork:
		return New(Network, fmt.Sprintf("%s failed: the Phynance API is unreachable or timed out", action), err)
	case client.KindServer:
		return New(Remote, fmt.Sprintf("%s failed: the Phynance API reported an internal error (status %d)", action, apiErr.Status), err)
	default:
		if apiErr.Status == http.StatusNotFound {
			return New(NotFound, fmt.Sprintf("%s failed: %s", action, apiErr.Message), err)
		}
		if apiErr.Status == http.StatusBadRequest {
			return New(Validation, fmt.Sprintf("%s failed: %s", action, apiErr.Message), err)
		}
		return New(Remote, fmt.Sprintf("%s failed: %s (status %d)", action, apiErr.Message, apiErr.Status), err)
	}
}
