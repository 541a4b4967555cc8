package ledger

import "sync"

// keyedMutex serializes operations per key. The attendance ledger locks on
// date+userKey around its read-then-write sequences: the backing workbook has
// no transactions, so this in-process lock is what upholds the one-record-per-
// user-per-day invariant. Entries are never evicted; the key space is bounded
// by active users per day.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
