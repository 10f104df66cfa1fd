package auth

import "errors"

var (
	ErrSecretRequired     = errors.New("auth: jwt secret required")
	ErrPasswordTooLong    = errors.New("auth: password exceeds 72 bytes")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrTooManyInterests   = errors.New("auth: too many interests")
)

// ValidationError reports client input rejected before anything is persisted.
// Message is safe to return to the caller verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "auth: invalid " + e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
