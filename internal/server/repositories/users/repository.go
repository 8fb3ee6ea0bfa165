// Package users provides the credential store: persistence for user
// records, their two-factor state, and in-flight password resets.
package users

import (
	"context"
	"time"

	"github.com/avolkovs/authcore/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// SetTwoFactorPending stores an unconfirmed enrollment secret without
	// touching login behavior.
	SetTwoFactorPending(ctx context.Context, userID, secret string) error
	// ConfirmTwoFactor promotes the pending secret: from then on logins
	// require a TOTP challenge. Returns common.ErrorNotFound when the user
	// has no pending enrollment.
	ConfirmTwoFactor(ctx context.Context, userID string) error
	DisableTwoFactor(ctx context.Context, userID string) error

	SetResetToken(ctx context.Context, userID, token string, expires time.Time) error
	// ConsumeResetToken atomically swaps the password hash and clears the
	// reset fields for the user holding an unexpired token. Returns
	// common.ErrorNotFound when no user holds the token or it has expired,
	// which also makes a second consume of the same token fail.
	ConsumeResetToken(ctx context.Context, token, newPasswordHash string) error
}
