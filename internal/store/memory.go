// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/javajoker/fifo-inventory/internal/models"
)

type batchRef struct {
	productID string
	idx       int
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu           sync.RWMutex
	products     map[string]models.Product
	batches      map[string][]models.Batch
	batchIndex   map[uuid.UUID]batchRef
	transactions []models.Transaction
	eventIDs     map[string]struct{}
	lastSequence uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:   make(map[string]models.Product),
		batches:    make(map[string][]models.Batch),
		batchIndex: make(map[uuid.UUID]batchRef),
		eventIDs:   make(map[string]struct{}),
	}
}

func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := newMemTx(s, false)
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(tx)
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newMemTx(s, true))
}

func (s *MemoryStore) LastSequence(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSequence, nil
}

func (s *MemoryStore) Close() error { return nil }

// commit applies the staged writes. Caller holds the write lock. Every check
// runs before the first write so a failed commit leaves nothing behind.
func (s *MemoryStore) commit(tx *memTx) error {
	for _, t := range tx.transactions {
		if t.EventID == nil {
			continue
		}
		if _, exists := s.eventIDs[*t.EventID]; exists {
			return ErrDuplicate
		}
	}

	for id, p := range tx.products {
		s.products[id] = p
	}

	for _, id := range tx.batchOrder {
		b := tx.batches[id]
		if ref, exists := s.batchIndex[id]; exists {
			s.batches[ref.productID][ref.idx] = b
		} else {
			s.batches[b.ProductID] = append(s.batches[b.ProductID], b)
			s.batchIndex[id] = batchRef{productID: b.ProductID, idx: len(s.batches[b.ProductID]) - 1}
		}
		if b.Sequence > s.lastSequence {
			s.lastSequence = b.Sequence
		}
	}

	for _, t := range tx.transactions {
		s.transactions = append(s.transactions, t)
		if t.EventID != nil {
			s.eventIDs[*t.EventID] = struct{}{}
		}
		if t.Sequence > s.lastSequence {
			s.lastSequence = t.Sequence
		}
	}

	return nil
}

// memTx stages writes until commit. A read-only memTx runs with the store's
// read lock already held.
type memTx struct {
	s            *MemoryStore
	readOnly     bool
	products     map[string]models.Product
	batches      map[uuid.UUID]models.Batch
	batchOrder   []uuid.UUID
	transactions []models.Transaction
	eventIDs     map[string]struct{}
}

func newMemTx(s *MemoryStore, readOnly bool) *memTx {
	return &memTx{
		s:        s,
		readOnly: readOnly,
		products: make(map[string]models.Product),
		batches:  make(map[uuid.UUID]models.Batch),
		eventIDs: make(map[string]struct{}),
	}
}

func (tx *memTx) rlock() func() {
	if tx.readOnly {
		return func() {}
	}
	tx.s.mu.RLock()
	return tx.s.mu.RUnlock
}

func (tx *memTx) GetProduct(productID string) (models.Product, error) {
	if p, exists := tx.products[productID]; exists {
		return p, nil
	}

	defer tx.rlock()()
	p, exists := tx.s.products[productID]
	if !exists {
		return models.Product{}, ErrNotFound
	}
	return p, nil
}

func (tx *memTx) PutProduct(p models.Product) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	tx.products[p.ProductID] = p
	return nil
}

func (tx *memTx) ListProducts() ([]models.Product, error) {
	unlock := tx.rlock()
	products := make([]models.Product, 0, len(tx.s.products)+len(tx.products))
	for id, p := range tx.s.products {
		if staged, exists := tx.products[id]; exists {
			p = staged
		}
		products = append(products, p)
	}
	for id, p := range tx.products {
		if _, exists := tx.s.products[id]; !exists {
			products = append(products, p)
		}
	}
	unlock()
	return products, nil
}

func (tx *memTx) ListBatches(productID string) ([]models.Batch, error) {
	unlock := tx.rlock()
	var batches []models.Batch
	if productID == "" {
		for _, bs := range tx.s.batches {
			batches = append(batches, bs...)
		}
	} else {
		batches = append(batches, tx.s.batches[productID]...)
	}
	unlock()

	for i, b := range batches {
		if staged, exists := tx.batches[b.ID]; exists {
			batches[i] = staged
		}
	}
	for _, id := range tx.batchOrder {
		b := tx.batches[id]
		if productID != "" && b.ProductID != productID {
			continue
		}
		if !tx.committedBatch(id) {
			batches = append(batches, b)
		}
	}

	models.SortFIFO(batches)
	return batches, nil
}

func (tx *memTx) committedBatch(id uuid.UUID) bool {
	defer tx.rlock()()
	_, exists := tx.s.batchIndex[id]
	return exists
}

func (tx *memTx) PutBatch(b models.Batch) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if _, exists := tx.batches[b.ID]; !exists {
		tx.batchOrder = append(tx.batchOrder, b.ID)
	}
	tx.batches[b.ID] = b
	return nil
}

func (tx *memTx) AppendTransaction(t models.Transaction) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if t.EventID != nil {
		if _, exists := tx.eventIDs[*t.EventID]; exists {
			return ErrDuplicate
		}
		tx.eventIDs[*t.EventID] = struct{}{}
	}
	tx.transactions = append(tx.transactions, t)
	return nil
}

func (tx *memTx) ListTransactions(limit int) ([]models.Transaction, error) {
	unlock := tx.rlock()
	defer unlock()

	out := make([]models.Transaction, 0, len(tx.transactions)+len(tx.s.transactions))
	out = append(out, tx.s.transactions...)
	out = append(out, tx.transactions...)

	// Newest sequence first, the same order the gorm store reads.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sequence > out[j].Sequence
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (tx *memTx) HasEvent(eventID string) (bool, error) {
	if _, exists := tx.eventIDs[eventID]; exists {
		return true, nil
	}

	defer tx.rlock()()
	_, exists := tx.s.eventIDs[eventID]
	return exists, nil
}
