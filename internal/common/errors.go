package common

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means a request or connection could not complete.
	ErrTransport = errors.New("transport failure")

	// ErrUnauthorized means a credential is missing or was rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionExpired means the bearer credential expired. It wraps
	// ErrUnauthorized so both match with errors.Is.
	ErrSessionExpired = fmt.Errorf("session expired: %w", ErrUnauthorized)

	// ErrValidation is returned for input rejected locally before any network call.
	ErrValidation = errors.New("validation failure")
)

// ServerError is a non-2xx response from the backend. Detail holds the
// "detail" field of a structured error body when one was present.
type ServerError struct {
	StatusCode int
	URL        string
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server rejected request to %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("server rejected request to %s: status %d: %s", e.URL, e.StatusCode, e.Detail)
}

// Kind classifies an error for the notice shown to the user.
type Kind string

const (
	KindTransport  Kind = "transport"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindServer     Kind = "server"
	KindUnknown    Kind = "unknown"
)

// Classify maps err onto the client error taxonomy.
func Classify(err error) Kind {
	var se *ServerError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return KindAuth
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.As(err, &se):
		return KindServer
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}
