// internal/simulator/generator.go
package simulator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/javajoker/fifo-inventory/internal/models"
)

const (
	minQuantity = 10
	maxQuantity = 59
	minPrice    = 50
	maxPrice    = 149
)

var DefaultProducts = []string{"PRD001", "PRD002", "PRD003"}

// Generator produces inventory events the way an upstream system would.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	products []string
	now      func() time.Time
}

func NewGenerator(products []string, seed int64) *Generator {
	if len(products) == 0 {
		products = DefaultProducts
	}
	return &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		products: products,
		now:      time.Now,
	}
}

// Random returns a purchase or a sale with equal odds for a random product.
// Quantities fall in [10, 59] and purchase prices in [50, 149].
func (g *Generator) Random() models.RawEvent {
	g.mu.Lock()
	productID := g.products[g.rng.Intn(len(g.products))]
	isPurchase := g.rng.Intn(2) == 0
	quantity := int64(minQuantity + g.rng.Intn(maxQuantity-minQuantity+1))
	price := decimal.NewFromInt(int64(minPrice + g.rng.Intn(maxPrice-minPrice+1)))
	g.mu.Unlock()

	if isPurchase {
		return purchase(productID, quantity, price, g.now())
	}
	return sale(productID, quantity, g.now())
}

// Script is the fixed demo sequence: stock three products and sell two of them.
func (g *Generator) Script() []models.RawEvent {
	now := g.now()
	return []models.RawEvent{
		purchase("PRD001", 100, decimal.NewFromInt(95), now),
		sale("PRD001", 30, now),
		purchase("PRD002", 50, decimal.NewFromInt(130), now),
		sale("PRD002", 20, now),
		purchase("PRD003", 75, decimal.NewFromInt(45), now),
	}
}

func purchase(productID string, quantity int64, price decimal.Decimal, at time.Time) models.RawEvent {
	return models.RawEvent{
		ProductID: productID,
		EventType: models.EventTypePurchase.String(),
		Quantity:  &quantity,
		UnitPrice: &price,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

func sale(productID string, quantity int64, at time.Time) models.RawEvent {
	return models.RawEvent{
		ProductID: productID,
		EventType: models.EventTypeSale.String(),
		Quantity:  &quantity,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}
