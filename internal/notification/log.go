package notification

import (
	"context"
	"log/slog"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// LogNotifier writes invitations to the log instead of sending them. Used in development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) SendInvitation(ctx context.Context, msg domain.InvitationMessage) error {
	n.logger.InfoContext(ctx, "invitation email",
		slog.String("employee_id", msg.EmployeeID),
		slog.String("organization_id", msg.OrganizationID),
		slog.String("to", msg.To),
		slog.String("link", msg.Link),
		slog.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}
