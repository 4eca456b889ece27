package channel

import (
	"context"
	"log/slog"

	"github.com/txn2/helix/pkg/notify"
)

// LogSender records deliveries in the log instead of sending them. It is
// used for channels that are not configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// SendEmail logs the rendered subject.
func (l *LogSender) SendEmail(ctx context.Context, recipientID string, msg notify.Rendered) error {
	l.logger.InfoContext(ctx, "email notification",
		"recipient_id", recipientID,
		"subject", msg.Subject,
	)
	return nil
}

// SendPush logs the notification title.
func (l *LogSender) SendPush(ctx context.Context, recipientID string, n notify.Notification) error {
	l.logger.InfoContext(ctx, "push notification",
		"recipient_id", recipientID,
		"notification_id", n.ID,
		"title", n.Title,
		"priority", string(n.Priority),
	)
	return nil
}

// Verify interface compliance.
var (
	_ notify.EmailSender = (*LogSender)(nil)
	_ notify.PushSender  = (*LogSender)(nil)
)
