// internal/inventory/ledger.go
package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/store"
)

// BatchLedger owns the cost layers of each product. Layers are consumed
// oldest first and are never removed; an exhausted layer stays as history.
type BatchLedger struct{}

func NewBatchLedger() *BatchLedger {
	return &BatchLedger{}
}

// RecordPurchase appends a layer holding the whole purchased quantity.
// CreatedAt never goes backwards within a product, and seq orders layers
// that share an instant.
func (l *BatchLedger) RecordPurchase(tx store.Tx, ev *models.Event, seq uint64, now time.Time) (models.Batch, error) {
	batches, err := tx.ListBatches(ev.ProductID)
	if err != nil {
		return models.Batch{}, fmt.Errorf("failed to load batches: %w", err)
	}

	createdAt := now.UTC()
	if n := len(batches); n > 0 && createdAt.Before(batches[n-1].CreatedAt) {
		createdAt = batches[n-1].CreatedAt
	}

	batch := models.Batch{
		ID:                uuid.New(),
		ProductID:         ev.ProductID,
		OriginalQuantity:  ev.Quantity,
		RemainingQuantity: ev.Quantity,
		UnitPrice:         ev.UnitPrice,
		AcquiredAt:        ev.Timestamp,
		CreatedAt:         createdAt,
		Sequence:          seq,
	}
	if err := tx.PutBatch(batch); err != nil {
		return models.Batch{}, err
	}
	return batch, nil
}

// ConsumeFIFO draws quantity units from the product's layers oldest first
// and returns their cost. When the layers cannot cover the whole quantity
// nothing is written and an *InsufficientStockError is returned.
func (l *BatchLedger) ConsumeFIFO(tx store.Tx, productID string, quantity int64) (decimal.Decimal, []models.BatchConsumption, error) {
	batches, err := tx.ListBatches(productID)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to load batches: %w", err)
	}

	updated, consumptions, err := planFIFO(productID, batches, quantity)
	if err != nil {
		return decimal.Zero, nil, err
	}

	cost := decimal.Zero
	for _, c := range consumptions {
		cost = cost.Add(c.Cost)
	}

	for _, b := range updated {
		if err := tx.PutBatch(b); err != nil {
			return decimal.Zero, nil, err
		}
	}
	return cost, consumptions, nil
}

// Available is the sum of remaining quantity over the product's layers.
func (l *BatchLedger) Available(tx store.Tx, productID string) (int64, error) {
	batches, err := tx.ListBatches(productID)
	if err != nil {
		return 0, fmt.Errorf("failed to load batches: %w", err)
	}
	return remaining(batches), nil
}

// planFIFO works on copies of batches (already in FIFO order) and returns
// the layers it drew down together with the per-layer breakdown.
func planFIFO(productID string, batches []models.Batch, quantity int64) ([]models.Batch, []models.BatchConsumption, error) {
	if available := remaining(batches); available < quantity {
		return nil, nil, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: available,
		}
	}

	outstanding := quantity
	var updated []models.Batch
	var consumptions []models.BatchConsumption
	for _, b := range batches {
		if outstanding == 0 {
			break
		}
		if b.RemainingQuantity == 0 {
			continue
		}

		take := min(outstanding, b.RemainingQuantity)
		b.RemainingQuantity -= take
		outstanding -= take

		updated = append(updated, b)
		consumptions = append(consumptions, models.BatchConsumption{
			BatchID:   b.ID,
			Quantity:  take,
			UnitPrice: b.UnitPrice,
			Cost:      b.UnitPrice.Mul(decimal.NewFromInt(take)),
		})
	}
	return updated, consumptions, nil
}

func remaining(batches []models.Batch) int64 {
	var total int64
	for _, b := range batches {
		total += b.RemainingQuantity
	}
	return total
}
