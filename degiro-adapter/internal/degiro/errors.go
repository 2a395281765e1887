package degiro

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork              = errors.New("degiro: network error")
	ErrInvalidSecret        = errors.New("degiro: invalid totp secret")
	ErrTOTP                 = errors.New("degiro: totp generation failed")
	ErrAuthenticationFailed = errors.New("degiro: authentication failed")
	ErrNotAuthenticated     = errors.New("degiro: not authenticated")
	ErrMissingSessionID     = errors.New("degiro: missing session id")
	ErrMissingIntAccount    = errors.New("degiro: missing int account")
	ErrSchema               = errors.New("degiro: schema error")
	ErrHTTPStatus           = errors.New("degiro: unexpected http status")
	ErrInvalidRequest       = errors.New("degiro: invalid request")

	errMissingField = errors.New("missing required field")
)

// NotAuthenticatedError is returned when a call needs an Active session.
// Missing is ErrMissingSessionID or ErrMissingIntAccount.
type NotAuthenticatedError struct {
	Missing error
}

func (e *NotAuthenticatedError) Error() string {
	return fmt.Sprintf("%v: %v", ErrNotAuthenticated, e.Missing)
}

func (e *NotAuthenticatedError) Is(target error) bool { return target == ErrNotAuthenticated }
func (e *NotAuthenticatedError) Unwrap() error        { return e.Missing }

// AuthenticationError carries the broker's rejection of a login attempt.
// Status and StatusText come from the login payload and are zero when the
// response was not decodable.
type AuthenticationError struct {
	HTTPStatus int
	Status     int
	StatusText string
	Body       string
	Cause      error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("%v: http %d", ErrAuthenticationFailed, e.HTTPStatus)
	if e.Status != 0 || e.StatusText != "" {
		msg += fmt.Sprintf(", status %d (%s)", e.Status, e.StatusText)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	} else if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthenticationFailed }
func (e *AuthenticationError) Unwrap() error        { return e.Cause }

// SchemaError reports a payload that violates the expected shape.
// Path is a JSONPath-like location such as $.data[0].productIds.
type SchemaError struct {
	Path  string
	Cause error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v at %s: %v", ErrSchema, e.Path, e.Cause)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
func (e *SchemaError) Unwrap() error        { return e.Cause }

// HTTPStatusError is a non-2xx response without a typed error payload.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%v %d: %s", ErrHTTPStatus, e.Status, e.Body)
}

func (e *HTTPStatusError) Is(target error) bool { return target == ErrHTTPStatus }

// NetworkError wraps a transport failure. The URL never carries session identifiers.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrNetwork, e.Op, e.URL, e.Err)
}

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }
func (e *NetworkError) Unwrap() error        { return e.Err }
