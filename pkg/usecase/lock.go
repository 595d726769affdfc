package usecase

import (
	"sync"

	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// riskLocks serializes mutations per risk. Stage idempotence and the
// workflow state checks assume no concurrent writer for the same risk;
// different risks proceed in parallel.
type riskLocks struct {
	mu    sync.Mutex
	locks map[types.RiskID]*riskLock
}

type riskLock struct {
	mu   sync.Mutex
	refs int
}

func newRiskLocks() *riskLocks {
	return &riskLocks{
		locks: make(map[types.RiskID]*riskLock),
	}
}

// Lock acquires the mutex for the given risk and returns its unlock
// function. Lock entries are dropped once the last holder releases.
func (l *riskLocks) Lock(id types.RiskID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &riskLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
