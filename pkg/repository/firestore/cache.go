package firestore

import (
	"bytes"
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type cacheDocument struct {
	Key       string    `firestore:"key"`
	Value     []byte    `firestore:"value"`
	CreatedAt time.Time `firestore:"created_at"`
	LastUsed  time.Time `firestore:"last_used"`
	HitCount  int64     `firestore:"hit_count"`
}

type cacheRepository struct {
	client           *firestore.Client
	collectionPrefix string
	clock            func() time.Time
}

func newCacheRepository(client *firestore.Client, clock func() time.Time) *cacheRepository {
	return &cacheRepository{
		client: client,
		clock:  clock,
	}
}

// collection maps each namespace to its own table.
func (r *cacheRepository) collection(ns types.CacheNamespace) string {
	name := "cache_" + ns.String()
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_" + name
	}
	return name
}

func (r *cacheRepository) Get(ctx context.Context, ns types.CacheNamespace, key string) (*model.CacheEntry, error) {
	if !ns.IsValid() {
		return nil, goerr.New("unknown cache namespace",
			goerr.T(types.TagValidation), goerr.V("namespace", ns))
	}

	docRef := r.client.Collection(r.collection(ns)).Doc(key)
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get cache entry",
			goerr.V("namespace", ns), goerr.V("key", key))
	}

	var cacheDoc cacheDocument
	if err := doc.DataTo(&cacheDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal cache entry",
			goerr.V("namespace", ns), goerr.V("key", key))
	}

	// Every hit is an implicit touch. The server-side increment keeps the
	// counter monotonic under concurrent readers.
	now := r.clock()
	if _, err := docRef.Update(ctx, []firestore.Update{
		{Path: "hit_count", Value: firestore.Increment(1)},
		{Path: "last_used", Value: now},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to touch cache entry",
			goerr.V("namespace", ns), goerr.V("key", key))
	}

	return &model.CacheEntry{
		Namespace: ns,
		Key:       cacheDoc.Key,
		Value:     cacheDoc.Value,
		CreatedAt: cacheDoc.CreatedAt,
		LastUsed:  now,
		HitCount:  cacheDoc.HitCount + 1,
	}, nil
}

// Put relies on Firestore's Create precondition for atomicity: two
// concurrent writers cannot both observe "absent" and write divergent
// values for the same key.
func (r *cacheRepository) Put(ctx context.Context, ns types.CacheNamespace, key string, value []byte) error {
	if !ns.IsValid() {
		return goerr.New("unknown cache namespace",
			goerr.T(types.TagValidation), goerr.V("namespace", ns))
	}
	if key == "" {
		return goerr.New("cache key cannot be empty", goerr.T(types.TagValidation))
	}

	now := r.clock()
	docRef := r.client.Collection(r.collection(ns)).Doc(key)
	_, err := docRef.Create(ctx, &cacheDocument{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		LastUsed:  now,
		HitCount:  0,
	})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return goerr.Wrap(err, "failed to put cache entry",
			goerr.V("namespace", ns), goerr.V("key", key))
	}

	// The key exists: an identical value makes this an idempotent re-put
	// (counted as a touch), a differing value is a conflict.
	doc, err := docRef.Get(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to get existing cache entry",
			goerr.V("namespace", ns), goerr.V("key", key))
	}

	var existing cacheDocument
	if err := doc.DataTo(&existing); err != nil {
		return goerr.Wrap(err, "failed to unmarshal cache entry",
			goerr.V("namespace", ns), goerr.V("key", key))
	}

	if !bytes.Equal(existing.Value, value) {
		return goerr.New("cache key holds a different value",
			goerr.T(types.TagConflict),
			goerr.V("namespace", ns), goerr.V("key", key))
	}

	return r.Touch(ctx, ns, key)
}

func (r *cacheRepository) Touch(ctx context.Context, ns types.CacheNamespace, key string) error {
	docRef := r.client.Collection(r.collection(ns)).Doc(key)
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "hit_count", Value: firestore.Increment(1)},
		{Path: "last_used", Value: r.clock()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "cache entry not found",
				goerr.V("namespace", ns), goerr.V("key", key))
		}
		return goerr.Wrap(err, "failed to touch cache entry",
			goerr.V("namespace", ns), goerr.V("key", key))
	}
	return nil
}

func (r *cacheRepository) Stats(ctx context.Context) ([]model.CacheStats, error) {
	stats := make([]model.CacheStats, 0, len(types.AllCacheNamespaces()))
	for _, ns := range types.AllCacheNamespaces() {
		iter := r.client.Collection(r.collection(ns)).Documents(ctx)

		var entries, hits int64
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to iterate cache entries",
					goerr.V("namespace", ns))
			}

			var cacheDoc cacheDocument
			if err := doc.DataTo(&cacheDoc); err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to unmarshal cache entry",
					goerr.V("namespace", ns))
			}
			entries++
			hits += cacheDoc.HitCount
		}
		iter.Stop()

		stats = append(stats, model.CacheStats{
			Namespace: ns,
			Entries:   entries,
			TotalHits: hits,
		})
	}
	return stats, nil
}
