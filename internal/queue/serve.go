package queue

import (
	"context"
	"log"
)

// HandlerFunc processes one message.
type HandlerFunc func(ctx context.Context, msg Message) error

// Serve consumes q until ctx is cancelled, dispatching each message to the
// handler registered for its type. Failed and unknown messages are logged
// and dropped.
func Serve(ctx context.Context, q Queue, handlers map[string]HandlerFunc) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		handle, ok := handlers[msg.Type]
		if !ok {
			log.Printf("queue: no handler for message type %q", msg.Type)
			continue
		}
		if err := handle(ctx, msg); err != nil {
			log.Printf("queue: %s failed: %v", msg.Type, err)
		}
	}
	return nil
}
