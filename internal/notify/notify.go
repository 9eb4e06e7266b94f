package notify

import "context"

// Notifier dispatches a raised alert to an external channel.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans an alert out to several notifiers, returning the first
// error but attempting all of them.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, title, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
