package ports

import "context"

// Message is one record for the event bus. Messages with the same Key keep
// their relative order.
type Message struct {
	Key   string
	Value []byte
}

// Publisher pushes messages to the event bus.
type Publisher interface {
	Push(ctx context.Context, messages []Message) error
}
