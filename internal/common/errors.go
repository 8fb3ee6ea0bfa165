// Package common defines shared constants and sentinel errors used across
// the authcore server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// ErrorInvalidCredentials covers both unknown email and wrong password,
	// so a caller cannot probe which accounts exist.
	ErrorInvalidCredentials = errors.New("invalid email or password")

	// Token lifecycle errors. Malformed, tampered and expired tokens all
	// map to ErrorInvalidToken at the service boundary; the distinction
	// lives in logs only.
	ErrorInvalidToken = errors.New("invalid or expired token")

	// Two-factor errors.
	ErrorTwoFactorNotEnabled = errors.New("two-factor authentication not enabled")
	ErrorInvalidTOTPCode     = errors.New("invalid two-factor code")

	// Password reset errors.
	ErrorInvalidResetToken = errors.New("invalid or expired reset token")
)

// AccessTokenHeaderName is the HTTP header carrying the bearer access token.
const AccessTokenHeaderName = "Authorization"
