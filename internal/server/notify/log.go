package notify

import (
	"context"

	"github.com/avolkovs/authcore/internal/logging"
)

// LogNotifier writes reset links to the log instead of sending mail.
// Intended for development only.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify")}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, email, resetLink string) error {
	n.logger.Info(ctx, "password reset link", "email", email, "link", resetLink)
	return nil
}
