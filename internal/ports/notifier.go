package ports

import "context"

// Notifier delivers one rendered message to the chat transport. Delivery is
// fire-and-forget from the caller's perspective: a failure is reported as
// domain.ErrDelivery and never retried synchronously.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
