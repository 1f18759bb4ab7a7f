package ports

import "context"

// IdempotencyStore remembers which record a client-supplied key created.
type IdempotencyStore interface {
	// Lookup returns the user id stored under key, if any.
	Lookup(ctx context.Context, key string) (id int, found bool, err error)
	Remember(ctx context.Context, key string, id int) error
}
