package chat

import "context"

type Store interface {
	// Append stores m on thread t and returns it with ID filled in.
	Append(ctx context.Context, t Thread, m Message) (Message, error)
	// List returns up to limit of the newest messages, oldest first.
	List(ctx context.Context, t Thread, limit int) ([]Message, error)
	// DeleteThread removes every message on t. Missing threads are not an error.
	DeleteThread(ctx context.Context, t Thread) error
}
