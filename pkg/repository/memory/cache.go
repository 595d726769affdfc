package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

type cacheRepository struct {
	mu      sync.Mutex
	entries map[types.CacheNamespace]map[string]*model.CacheEntry
	clock   func() time.Time
}

func newCacheRepository(clock func() time.Time) *cacheRepository {
	entries := make(map[types.CacheNamespace]map[string]*model.CacheEntry)
	for _, ns := range types.AllCacheNamespaces() {
		entries[ns] = make(map[string]*model.CacheEntry)
	}
	return &cacheRepository{
		entries: entries,
		clock:   clock,
	}
}

func (r *cacheRepository) table(ns types.CacheNamespace) (map[string]*model.CacheEntry, error) {
	table, ok := r.entries[ns]
	if !ok {
		return nil, goerr.New("unknown cache namespace",
			goerr.T(types.TagValidation), goerr.V("namespace", ns))
	}
	return table, nil
}

// Get returns nil, nil on miss. A hit counts as a usage touch.
func (r *cacheRepository) Get(ctx context.Context, ns types.CacheNamespace, key string) (*model.CacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table, err := r.table(ns)
	if err != nil {
		return nil, err
	}

	entry, exists := table[key]
	if !exists {
		return nil, nil
	}

	entry.HitCount++
	entry.LastUsed = r.clock()
	return entry.Clone(), nil
}

// Put inserts atomically under the repository mutex: the conflict check
// and the write cannot interleave with another writer.
func (r *cacheRepository) Put(ctx context.Context, ns types.CacheNamespace, key string, value []byte) error {
	if key == "" {
		return goerr.New("cache key cannot be empty", goerr.T(types.TagValidation))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table, err := r.table(ns)
	if err != nil {
		return err
	}

	now := r.clock()
	if existing, exists := table[key]; exists {
		if !bytes.Equal(existing.Value, value) {
			return goerr.New("cache key holds a different value",
				goerr.T(types.TagConflict),
				goerr.V("namespace", ns), goerr.V("key", key))
		}
		// Idempotent re-put of the identical value is a usage touch.
		existing.HitCount++
		existing.LastUsed = now
		return nil
	}

	table[key] = &model.CacheEntry{
		Namespace: ns,
		Key:       key,
		Value:     append([]byte(nil), value...),
		CreatedAt: now,
		LastUsed:  now,
		HitCount:  0,
	}
	return nil
}

func (r *cacheRepository) Touch(ctx context.Context, ns types.CacheNamespace, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	table, err := r.table(ns)
	if err != nil {
		return err
	}

	entry, exists := table[key]
	if !exists {
		return goerr.Wrap(ErrNotFound, "cache entry not found",
			goerr.V("namespace", ns), goerr.V("key", key))
	}

	entry.HitCount++
	entry.LastUsed = r.clock()
	return nil
}

func (r *cacheRepository) Stats(ctx context.Context) ([]model.CacheStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]model.CacheStats, 0, len(r.entries))
	for _, ns := range types.AllCacheNamespaces() {
		var total int64
		for _, entry := range r.entries[ns] {
			total += entry.HitCount
		}
		stats = append(stats, model.CacheStats{
			Namespace: ns,
			Entries:   int64(len(r.entries[ns])),
			TotalHits: total,
		})
	}
	return stats, nil
}
