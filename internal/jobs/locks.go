package jobs

import (
	"sync"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
)

// AdvisoryLocks serialises job execution per (jobName, fundId), matching
// spec.md §5's requirement that at most one instance of a given periodic
// job run for a given fund at a time. The lock table lives in process
// memory: it serialises jobs within one process only and takes no Postgres
// advisory lock, so separate processes do not exclude each other.
type AdvisoryLocks struct {
	mu      sync.Mutex
	held    map[string]struct{}
}

// NewAdvisoryLocks creates an empty lock table.
func NewAdvisoryLocks() *AdvisoryLocks {
	return &AdvisoryLocks{held: make(map[string]struct{})}
}

func lockKey(jobName string, fundID domain.ID) string {
	return jobName + "|" + fundID.String()
}

// TryAcquire attempts to take the (jobName, fundID) lock, returning false if
// it is already held.
func (l *AdvisoryLocks) TryAcquire(jobName string, fundID domain.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := lockKey(jobName, fundID)
	if _, held := l.held[key]; held {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

// Release frees the (jobName, fundID) lock.
func (l *AdvisoryLocks) Release(jobName string, fundID domain.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, lockKey(jobName, fundID))
}
