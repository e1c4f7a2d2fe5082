// internal/models/batch.go
package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is one cost layer created by a purchase.
type Batch struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID         string          `json:"product_id" gorm:"size:64;not null;index:idx_batches_fifo,priority:1"`
	OriginalQuantity  int64           `json:"quantity" gorm:"not null"`
	RemainingQuantity int64           `json:"remaining_quantity" gorm:"not null"`
	UnitPrice         decimal.Decimal `json:"unit_price" gorm:"type:numeric(24,4);not null"`
	AcquiredAt        time.Time       `json:"acquired_at" gorm:"not null"`
	CreatedAt         time.Time       `json:"created_at" gorm:"autoCreateTime:false;not null;index:idx_batches_fifo,priority:2"`
	Sequence          uint64          `json:"sequence" gorm:"not null;index:idx_batches_fifo,priority:3"`
}

func (b Batch) Exhausted() bool {
	return b.RemainingQuantity == 0
}

// RemainingValue is what the units left in this layer cost.
func (b Batch) RemainingValue() decimal.Decimal {
	return b.UnitPrice.Mul(decimal.NewFromInt(b.RemainingQuantity))
}

// SortFIFO orders batches oldest first; Sequence breaks CreatedAt ties.
func SortFIFO(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].CreatedAt.Equal(batches[j].CreatedAt) {
			return batches[i].CreatedAt.Before(batches[j].CreatedAt)
		}
		return batches[i].Sequence < batches[j].Sequence
	})
}
