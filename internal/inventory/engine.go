// internal/inventory/engine.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/store"
)

const tracerName = "github.com/javajoker/fifo-inventory/internal/inventory"

// Result is what one applied event produced.
type Result struct {
	Transaction  models.Transaction        `json:"transaction"`
	Product      models.Product            `json:"product"`
	Batch        *models.Batch             `json:"batch,omitempty"`
	Consumptions []models.BatchConsumption `json:"consumptions,omitempty"`
}

// Snapshot is a product together with its batches in FIFO order, read from
// one consistent view.
type Snapshot struct {
	Product models.Product `json:"product"`
	Batches []models.Batch `json:"batches"`
}

// InventoryView is the whole state as the dashboard feed shows it.
type InventoryView struct {
	Products     []models.Product     `json:"products"`
	Transactions []models.Transaction `json:"transactions"`
	Batches      []models.Batch       `json:"batches"`
}

// Discrepancy describes a product whose aggregate disagrees with its batches.
type Discrepancy struct {
	ProductID       string          `json:"product_id"`
	CurrentQuantity int64           `json:"current_quantity"`
	BatchQuantity   int64           `json:"batch_quantity"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	BatchValue      decimal.Decimal `json:"batch_value"`
}

type Option func(*Engine)

// WithClock replaces the processing-time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// Engine applies inventory events. Events for one product are applied one
// at a time in arrival order; events for different products run in parallel.
type Engine struct {
	store      store.Store
	validator  *EventValidator
	ledger     *BatchLedger
	aggregates *ProductAggregateStore
	txlog      *TransactionLog
	locks      *productLocks
	seq        Sequencer
	now        func() time.Time
	logger     logrus.FieldLogger
	tracer     trace.Tracer
}

// NewEngine builds an engine over st and moves its sequencer past every
// sequence number st already holds.
func NewEngine(ctx context.Context, st store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:      st,
		ledger:     NewBatchLedger(),
		aggregates: NewProductAggregateStore(),
		txlog:      NewTransactionLog(),
		locks:      newProductLocks(),
		now:        time.Now,
		logger:     logrus.StandardLogger(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.validator = NewEventValidator(e.now)

	last, err := st.LastSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last sequence: %w", err)
	}
	e.seq.Seed(last)

	return e, nil
}

// Apply validates raw and applies it. On error nothing has changed.
func (e *Engine) Apply(ctx context.Context, raw models.RawEvent) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "inventory.apply")
	defer span.End()

	ev, err := e.validator.Validate(raw)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("inventory.product_id", ev.ProductID),
		attribute.String("inventory.event_type", ev.Type.String()),
		attribute.Int64("inventory.quantity", ev.Quantity),
	)

	unlock := e.locks.Lock(ev.ProductID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		recordError(span, err)
		return nil, err
	}

	var result *Result
	err = e.store.Update(context.WithoutCancel(ctx), func(tx store.Tx) error {
		if ev.EventID != "" {
			seen, err := e.txlog.Seen(tx, ev.EventID)
			if err != nil {
				return fmt.Errorf("failed to check event id: %w", err)
			}
			if seen {
				return &DuplicateEventError{EventID: ev.EventID}
			}
		}

		var err error
		switch ev.Type {
		case models.EventTypePurchase:
			result, err = e.applyPurchase(tx, ev)
		case models.EventTypeSale:
			result, err = e.applySale(tx, ev)
		default:
			err = &ValidationError{Errors: []FieldError{{
				Field:   "event_type",
				Tag:     "oneof",
				Message: "event_type must be one of: purchase sale",
			}}}
		}
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) && ev.EventID != "" {
			err = &DuplicateEventError{EventID: ev.EventID}
		}
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("inventory.total_cost", result.Transaction.TotalCost.String()),
		attribute.Int64("inventory.sequence", int64(result.Transaction.Sequence)),
	)
	span.SetStatus(codes.Ok, "")

	e.logger.WithFields(logrus.Fields{
		"product_id": ev.ProductID,
		"event_type": ev.Type,
		"quantity":   ev.Quantity,
		"total_cost": result.Transaction.TotalCost.String(),
		"sequence":   result.Transaction.Sequence,
	}).Debug("Inventory event applied")

	return result, nil
}

func (e *Engine) applyPurchase(tx store.Tx, ev *models.Event) (*Result, error) {
	held, err := e.ledger.Available(tx, ev.ProductID)
	if err != nil {
		return nil, err
	}
	if held > math.MaxInt64-ev.Quantity {
		return nil, quantityOverflow(held)
	}

	now := e.now().UTC()
	product, err := e.aggregates.ApplyPurchase(tx, ev.ProductID, ev.Quantity, ev.UnitPrice, now)
	if err != nil {
		return nil, err
	}

	seq := e.seq.Next()
	batch, err := e.ledger.RecordPurchase(tx, ev, seq, now)
	if err != nil {
		return nil, err
	}

	t := newTransaction(ev, seq, now)
	price := ev.UnitPrice
	t.UnitPrice = &price
	t.TotalCost = price.Mul(decimal.NewFromInt(ev.Quantity))
	if err := e.txlog.Append(tx, t); err != nil {
		return nil, err
	}

	return &Result{Transaction: t, Product: product, Batch: &batch}, nil
}

func (e *Engine) applySale(tx store.Tx, ev *models.Event) (*Result, error) {
	if _, err := e.aggregates.Get(tx, ev.ProductID); err != nil {
		return nil, err
	}

	cogs, consumptions, err := e.ledger.ConsumeFIFO(tx, ev.ProductID, ev.Quantity)
	if err != nil {
		return nil, err
	}

	seq := e.seq.Next()
	now := e.now().UTC()

	product, err := e.aggregates.ApplySale(tx, ev.ProductID, ev.Quantity, cogs, now)
	if err != nil {
		return nil, err
	}

	t := newTransaction(ev, seq, now)
	t.TotalCost = cogs
	t.Consumptions = consumptions
	if err := e.txlog.Append(tx, t); err != nil {
		return nil, err
	}

	return &Result{Transaction: t, Product: product, Consumptions: consumptions}, nil
}

// Products returns every known product ordered by id.
func (e *Engine) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		products, err = tx.ListProducts()
		return err
	})
	if err != nil {
		return nil, err
	}
	sortProducts(products)
	return products, nil
}

func (e *Engine) Product(ctx context.Context, productID string) (models.Product, error) {
	var product models.Product
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		product, err = e.aggregates.Get(tx, productID)
		return err
	})
	return product, err
}

func (e *Engine) Snapshot(ctx context.Context, productID string) (*Snapshot, error) {
	var snap Snapshot
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		if snap.Product, err = e.aggregates.Get(tx, productID); err != nil {
			return err
		}
		snap.Batches, err = tx.ListBatches(productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Batches lists batches in FIFO order; an empty productID lists all of them.
func (e *Engine) Batches(ctx context.Context, productID string) ([]models.Batch, error) {
	var batches []models.Batch
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		batches, err = tx.ListBatches(productID)
		return err
	})
	return batches, err
}

// Transactions returns up to limit transactions, newest arrival first.
func (e *Engine) Transactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		transactions, err = e.txlog.List(tx, limit)
		return err
	})
	return transactions, err
}

func (e *Engine) Inventory(ctx context.Context, limit int) (*InventoryView, error) {
	var view InventoryView
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		if view.Products, err = tx.ListProducts(); err != nil {
			return err
		}
		if view.Transactions, err = e.txlog.List(tx, limit); err != nil {
			return err
		}
		view.Batches, err = tx.ListBatches("")
		return err
	})
	if err != nil {
		return nil, err
	}
	sortProducts(view.Products)
	return &view, nil
}

// Reconcile checks every product's aggregate against its batches and
// returns the products that disagree.
func (e *Engine) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	var discrepancies []Discrepancy
	err := e.store.View(ctx, func(tx store.Tx) error {
		products, err := tx.ListProducts()
		if err != nil {
			return err
		}
		sortProducts(products)

		for _, p := range products {
			batches, err := tx.ListBatches(p.ProductID)
			if err != nil {
				return err
			}
			qty := remaining(batches)
			value := decimal.Zero
			for _, b := range batches {
				value = value.Add(b.RemainingValue())
			}
			if qty != p.CurrentQuantity || !value.Equal(p.TotalCost) {
				discrepancies = append(discrepancies, Discrepancy{
					ProductID:       p.ProductID,
					CurrentQuantity: p.CurrentQuantity,
					BatchQuantity:   qty,
					TotalCost:       p.TotalCost,
					BatchValue:      value,
				})
			}
		}
		return nil
	})
	return discrepancies, err
}

// LastSequence is the most recent sequence number handed out.
func (e *Engine) LastSequence() uint64 {
	return e.seq.Current()
}

func sortProducts(products []models.Product) {
	sort.Slice(products, func(i, j int) bool {
		return products[i].ProductID < products[j].ProductID
	})
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
