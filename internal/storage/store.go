package storage

import "context"

// Store is a typed key/value map. Values are JSON-encoded records; Get
// decodes into out and reports whether the key was present. Within a
// transaction reads observe earlier writes.
type Store interface {
	// Get loads the value at key into out; ok=false on a miss.
	Get(ctx context.Context, key Key, out any) (bool, error)
	// Set writes the value at key, overwriting any prior value.
	Set(ctx context.Context, key Key, val any) error
	// Has reports key membership without decoding the value.
	Has(ctx context.Context, key Key) (bool, error)
}

// Runner executes one ledger invocation as one atomic transaction:
// if fn returns an error nothing it wrote persists.
type Runner interface {
	InTx(ctx context.Context, fn func(Store) error) error
}
