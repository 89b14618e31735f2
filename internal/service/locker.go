package service

import (
	"sync"

	"github.com/google/uuid"
)

// customerLocker serializes mutations that touch shared per-customer
// state: default-flag swaps and agreement roll-forwards. Invariants
// are scoped to a single customer, so there is no global lock.
type customerLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newCustomerLocker() *customerLocker {
	return &customerLocker{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Lock acquires the customer's mutex and returns the unlock func
func (l *customerLocker) Lock(customerID uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[customerID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[customerID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
