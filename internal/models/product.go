// internal/models/product.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the derived per-product aggregate kept in step with the batch ledger.
type Product struct {
	ProductID       string          `json:"product_id" gorm:"primaryKey;size:64"`
	CurrentQuantity int64           `json:"current_quantity" gorm:"not null;default:0"`
	TotalCost       decimal.Decimal `json:"total_cost" gorm:"type:numeric(24,4);not null"`
	AverageCost     decimal.Decimal `json:"average_cost" gorm:"type:numeric;not null"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OnHandValue is the FIFO valuation of the units still held.
func (p Product) OnHandValue() decimal.Decimal {
	return p.TotalCost
}
