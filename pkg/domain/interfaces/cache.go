package interfaces

import (
	"context"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// CacheRepository is the persisted layout of the memoization layer: three
// independent key→value tables with usage accounting. Entries are
// write-once per key; only their usage metadata mutates.
type CacheRepository interface {
	// Get retrieves an entry and, on hit, increments its hit counter and
	// refreshes its last-used time. Returns nil, nil on miss.
	Get(ctx context.Context, ns types.CacheNamespace, key string) (*model.CacheEntry, error)

	// Put atomically inserts a new entry. Putting an existing key with the
	// identical value is a no-op that counts as a usage touch; putting a
	// differing value fails with a conflict error and leaves the original
	// intact. The insert and the conflict check are a single atomic
	// operation: concurrent writers cannot both observe "absent".
	Put(ctx context.Context, ns types.CacheNamespace, key string, value []byte) error

	// Touch increments the usage counter and refreshes last-used without
	// reading the value.
	Touch(ctx context.Context, ns types.CacheNamespace, key string) error

	// Stats reports per-namespace entry counts and total hits so an
	// operator can apply external trimming without breaking the
	// write-once invariant.
	Stats(ctx context.Context) ([]model.CacheStats, error)
}
