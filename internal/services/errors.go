package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to
// HTTP status codes; everything else surfaces as a 500.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email is not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidOTP         = errors.New("invalid or expired verification code")
	ErrTooManyAttempts    = errors.New("too many verification attempts")
	ErrAlreadyVerified    = errors.New("email is already verified")
	ErrSessionNotFound    = errors.New("session not found")
	ErrForbidden          = errors.New("operation not permitted")
)
