// internal/inventory/locks.go
package inventory

import "sync"

// productLocks serializes event application per product id. Entries are
// never evicted; there is one per product ever seen.
type productLocks struct {
	mtx   sync.Mutex
	locks map[string]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the product's lock is held and returns its release func.
func (pl *productLocks) Lock(productID string) func() {
	pl.mtx.Lock()
	l, exists := pl.locks[productID]
	if !exists {
		l = &sync.Mutex{}
		pl.locks[productID] = l
	}
	pl.mtx.Unlock()

	l.Lock()
	return l.Unlock
}
