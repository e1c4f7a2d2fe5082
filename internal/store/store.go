// internal/store/store.go

// Package store keeps products, batches and transactions behind a small
// get / put / list-by-key interface. Every write for one event goes through
// a single Update call so it either commits as a whole or not at all.
package store

import (
	"context"
	"errors"

	"github.com/javajoker/fifo-inventory/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrReadOnly  = errors.New("read-only transaction")
)

// Tx is one unit of work. Reads observe the writes staged earlier in the
// same unit.
type Tx interface {
	GetProduct(productID string) (models.Product, error)
	PutProduct(p models.Product) error
	ListProducts() ([]models.Product, error)

	// ListBatches returns the product's batches oldest first. An empty
	// productID lists every batch.
	ListBatches(productID string) ([]models.Batch, error)
	PutBatch(b models.Batch) error

	AppendTransaction(t models.Transaction) error
	// ListTransactions returns the most recently appended first; limit <= 0 means all.
	ListTransactions(limit int) ([]models.Transaction, error)
	HasEvent(eventID string) (bool, error)
}

type Store interface {
	// Update runs fn and commits its writes atomically when fn returns nil.
	// Callers serialize Updates that touch the same product.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent point-in-time view.
	View(ctx context.Context, fn func(tx Tx) error) error
	// LastSequence is the highest sequence number persisted so far.
	LastSequence(ctx context.Context) (uint64, error)
	Close() error
}
