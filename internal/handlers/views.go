// internal/handlers/views.go
package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

// Response views carry amounts as strings rounded to two places.

type ProductView struct {
	ProductID       string    `json:"product_id"`
	CurrentQuantity int64     `json:"current_quantity"`
	TotalCost       string    `json:"total_cost"`
	AverageCost     string    `json:"average_cost"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type BatchView struct {
	ID                uuid.UUID `json:"id"`
	ProductID         string    `json:"product_id"`
	Quantity          int64     `json:"quantity"`
	RemainingQuantity int64     `json:"remaining_quantity"`
	UnitPrice         string    `json:"unit_price"`
	RemainingValue    string    `json:"remaining_value"`
	AcquiredAt        time.Time `json:"acquired_at"`
	CreatedAt         time.Time `json:"created_at"`
	Sequence          uint64    `json:"sequence"`
}

type ConsumptionView struct {
	BatchID   uuid.UUID `json:"batch_id"`
	Quantity  int64     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Cost      string    `json:"cost"`
}

type TransactionView struct {
	ID           uuid.UUID         `json:"id"`
	EventID      *string           `json:"event_id,omitempty"`
	ProductID    string            `json:"product_id"`
	EventType    models.EventType  `json:"event_type"`
	Quantity     int64             `json:"quantity"`
	UnitPrice    *string           `json:"unit_price,omitempty"`
	TotalCost    string            `json:"total_cost"`
	Consumptions []ConsumptionView `json:"consumptions,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	ProcessedAt  time.Time         `json:"processed_at"`
	Sequence     uint64            `json:"sequence"`
}

type EventResultView struct {
	Transaction TransactionView `json:"transaction"`
	Product     ProductView     `json:"product"`
	Batch       *BatchView      `json:"batch,omitempty"`
}

type InventoryView struct {
	Products     []ProductView     `json:"products"`
	Transactions []TransactionView `json:"transactions"`
	Batches      []BatchView       `json:"batches"`
}

func newProductView(p models.Product) ProductView {
	return ProductView{
		ProductID:       p.ProductID,
		CurrentQuantity: p.CurrentQuantity,
		TotalCost:       utils.FormatMoney(p.TotalCost),
		AverageCost:     utils.FormatMoney(p.AverageCost),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func newBatchView(b models.Batch) BatchView {
	return BatchView{
		ID:                b.ID,
		ProductID:         b.ProductID,
		Quantity:          b.OriginalQuantity,
		RemainingQuantity: b.RemainingQuantity,
		UnitPrice:         utils.FormatMoney(b.UnitPrice),
		RemainingValue:    utils.FormatMoney(b.RemainingValue()),
		AcquiredAt:        b.AcquiredAt,
		CreatedAt:         b.CreatedAt,
		Sequence:          b.Sequence,
	}
}

func newTransactionView(t models.Transaction) TransactionView {
	view := TransactionView{
		ID:          t.ID,
		EventID:     t.EventID,
		ProductID:   t.ProductID,
		EventType:   t.EventType,
		Quantity:    t.Quantity,
		UnitPrice:   utils.FormatMoneyPtr(t.UnitPrice),
		TotalCost:   utils.FormatMoney(t.TotalCost),
		Timestamp:   t.Timestamp,
		ProcessedAt: t.ProcessedAt,
		Sequence:    t.Sequence,
	}
	for _, c := range t.Consumptions {
		view.Consumptions = append(view.Consumptions, ConsumptionView{
			BatchID:   c.BatchID,
			Quantity:  c.Quantity,
			UnitPrice: utils.FormatMoney(c.UnitPrice),
			Cost:      utils.FormatMoney(c.Cost),
		})
	}
	return view
}

func newEventResultView(r *inventory.Result) EventResultView {
	view := EventResultView{
		Transaction: newTransactionView(r.Transaction),
		Product:     newProductView(r.Product),
	}
	if r.Batch != nil {
		b := newBatchView(*r.Batch)
		view.Batch = &b
	}
	return view
}

func newProductViews(products []models.Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	return views
}

func newBatchViews(batches []models.Batch) []BatchView {
	views := make([]BatchView, 0, len(batches))
	for _, b := range batches {
		views = append(views, newBatchView(b))
	}
	return views
}

func newTransactionViews(transactions []models.Transaction) []TransactionView {
	views := make([]TransactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, newTransactionView(t))
	}
	return views
}
