package preferences

import "context"

// Repo is the durable backend behind a Store. Each call must be atomic: a
// failed call leaves the stored values unchanged.
type Repo interface {
	// Load returns every stored key.
	Load(ctx context.Context) (map[Key]string, error)

	// Put upserts the given keys.
	Put(ctx context.Context, values map[Key]string) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...Key) error

	// Replace swaps the full contents for values. An empty map clears the repo.
	Replace(ctx context.Context, values map[Key]string) error
}
