package notify

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleNotifier logs messages instead of delivering them. Used in
// development and whenever notifications are disabled.
type ConsoleNotifier struct {
	logger *zap.Logger
}

var _ Notifier = (*ConsoleNotifier)(nil)

// NewConsoleNotifier builds a log-only notifier.
func NewConsoleNotifier(logger *zap.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) SendEmail(_ context.Context, to, subject, body string) error {
	n.logger.Info("email (console)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

func (n *ConsoleNotifier) SendSMS(_ context.Context, to, body string) error {
	n.logger.Info("sms (console)",
		zap.String("to", to),
		zap.String("body", body),
	)
	return nil
}
