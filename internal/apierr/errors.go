package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by the credential store and the gateway.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotApproved = errors.New("account not approved")
	ErrValidation         = errors.New("validation error")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrClient             = errors.New("client error")
	ErrServer             = errors.New("server error")
	ErrRefreshTimeout     = errors.New("credential refresh timed out")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status int
	Detail string
	Kind   error
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: HTTP %d: %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%v: HTTP %d", e.Kind, e.Status)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// Classify maps an HTTP status to the taxonomy. 2xx/3xx yield nil.
func Classify(status int, detail string) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized:
		return &StatusError{Status: status, Detail: detail, Kind: ErrUnauthorized}
	case status < 500:
		return &StatusError{Status: status, Detail: detail, Kind: ErrClient}
	default:
		return &StatusError{Status: status, Detail: detail, Kind: ErrServer}
	}
}

// Reclassify keeps status and detail of a StatusError but swaps its kind.
// Non-StatusErrors are wrapped with kind.
func Reclassify(err error, kind error) error {
	var se *StatusError
	if errors.As(err, &se) {
		return &StatusError{Status: se.Status, Detail: se.Detail, Kind: kind}
	}
	return fmt.Errorf("%w: %v", kind, err)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
