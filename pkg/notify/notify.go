package notify

import "context"

// Notifier delivers absence alerts. Both channels are fire-and-forget from
// the caller's perspective: errors are reported so they can be logged, but
// callers never fail a workflow on them.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}
