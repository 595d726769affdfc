package model

import (
	"time"

	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// CacheEntry is one memoized value. Entries are write-once: the value
// never changes after creation, only the usage metadata does.
type CacheEntry struct {
	Namespace types.CacheNamespace
	Key       string
	Value     []byte
	CreatedAt time.Time
	LastUsed  time.Time
	HitCount  int64
}

// Clone returns a copy of the entry with its own value buffer.
func (e *CacheEntry) Clone() *CacheEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Value = append([]byte(nil), e.Value...)
	return &c
}

// CacheStats summarizes one namespace for operators applying external
// trimming policies.
type CacheStats struct {
	Namespace types.CacheNamespace `json:"namespace"`
	Entries   int64                `json:"entries"`
	TotalHits int64                `json:"total_hits"`
}
