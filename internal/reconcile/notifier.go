package reconcile

import "context"

// Notifier delivers the outcome of an asynchronous pass through a side
// channel, typically a direct message to the member who started it.
type Notifier interface {
	Notify(ctx context.Context, recipient, message string) error
}
