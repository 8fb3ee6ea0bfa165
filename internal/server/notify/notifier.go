// Package notify delivers password-reset links to users. The core produces
// the raw token and link; everything about delivery lives behind
// ResetTokenNotifier.
package notify

import "context"

// ResetTokenNotifier is the sink a reset link is handed to.
type ResetTokenNotifier interface {
	SendPasswordReset(ctx context.Context, email, resetLink string) error
}
