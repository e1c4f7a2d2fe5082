// internal/inventory/aggregate.go
package inventory

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/store"
)

// ProductAggregateStore maintains quantity, total cost and average cost per
// product. Totals are exact decimals; AverageCost is always derived from
// them and never carried forward, so repeated updates cannot drift.
type ProductAggregateStore struct{}

func NewProductAggregateStore() *ProductAggregateStore {
	return &ProductAggregateStore{}
}

func (a *ProductAggregateStore) Get(tx store.Tx, productID string) (models.Product, error) {
	p, err := tx.GetProduct(productID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Product{}, &UnknownProductError{ProductID: productID}
	}
	return p, err
}

func (a *ProductAggregateStore) ApplyPurchase(tx store.Tx, productID string, quantity int64, unitPrice decimal.Decimal, now time.Time) (models.Product, error) {
	cost := unitPrice.Mul(decimal.NewFromInt(quantity))

	p, err := tx.GetProduct(productID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p = models.Product{
			ProductID:       productID,
			CurrentQuantity: quantity,
			TotalCost:       cost,
			AverageCost:     unitPrice,
			CreatedAt:       now,
		}
	case err != nil:
		return models.Product{}, err
	default:
		if p.CurrentQuantity > math.MaxInt64-quantity {
			return models.Product{}, quantityOverflow(p.CurrentQuantity)
		}
		total := p.TotalCost.Add(cost)
		if total.GreaterThanOrEqual(MaxAmount) {
			return models.Product{}, &ValidationError{Errors: []FieldError{{
				Field:   "unit_price",
				Tag:     "max",
				Message: "total_cost of " + productID + " would reach " + MaxAmount.String(),
			}}}
		}
		p.CurrentQuantity += quantity
		p.TotalCost = total
		p.AverageCost = averageCost(p.TotalCost, p.CurrentQuantity)
	}

	p.UpdatedAt = now
	if err := tx.PutProduct(p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (a *ProductAggregateStore) ApplySale(tx store.Tx, productID string, quantity int64, cogs decimal.Decimal, now time.Time) (models.Product, error) {
	p, err := a.Get(tx, productID)
	if err != nil {
		return models.Product{}, err
	}
	if p.CurrentQuantity < quantity {
		return models.Product{}, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: p.CurrentQuantity,
		}
	}

	p.CurrentQuantity -= quantity
	p.TotalCost = p.TotalCost.Sub(cogs)
	p.AverageCost = averageCost(p.TotalCost, p.CurrentQuantity)
	p.UpdatedAt = now

	if err := tx.PutProduct(p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// quantityOverflow rejects a purchase that would push the on-hand quantity
// past what an int64 holds.
func quantityOverflow(held int64) *ValidationError {
	return &ValidationError{Errors: []FieldError{{
		Field:   "quantity",
		Tag:     "max",
		Message: fmt.Sprintf("quantity must be at most %d with %d on hand", int64(math.MaxInt64)-held, held),
	}}}
}

func averageCost(total decimal.Decimal, quantity int64) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(quantity))
}
