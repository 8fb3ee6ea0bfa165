// Package models defines the persistent records owned by the server.
package models

import "time"

// TwoFactorState tags the two-factor lifecycle of a user. Modelling the
// pending and confirmed secrets as one tagged value keeps the invariant
// "pending and confirmed are never both relied upon" structural instead of
// convention-based.
type TwoFactorState int

const (
	// TwoFactorOff: no secret stored, logins need only a password.
	TwoFactorOff TwoFactorState = iota
	// TwoFactorPending: an enrollment secret exists but has not been
	// confirmed with a valid code; logins still need only a password.
	TwoFactorPending
	// TwoFactorEnabled: the secret is confirmed and every login must
	// complete a TOTP challenge.
	TwoFactorEnabled
)

// TwoFactor is the tagged two-factor variant. Secret is the enrollment
// secret while Pending and the confirmed secret while Enabled; it is empty
// while Off.
type TwoFactor struct {
	State  TwoFactorState
	Secret string
}

// Enabled reports whether logins require a TOTP challenge.
func (t TwoFactor) Enabled() bool { return t.State == TwoFactorEnabled }

// User is the identity record held by the credential store.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	TwoFactor    TwoFactor

	// ResetToken and ResetTokenExpires are set while a password reset is
	// in flight and cleared by a successful reset. A nil expiry means no
	// reset is pending.
	ResetToken        string
	ResetTokenExpires *time.Time

	CreatedAt time.Time
}
