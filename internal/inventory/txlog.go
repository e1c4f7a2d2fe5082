// internal/inventory/txlog.go
package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/store"
)

// TransactionLog is the append-only record of applied events. Entries come
// back in processing order, newest first, whatever their business timestamp.
type TransactionLog struct{}

func NewTransactionLog() *TransactionLog {
	return &TransactionLog{}
}

func (l *TransactionLog) Append(tx store.Tx, t models.Transaction) error {
	if err := tx.AppendTransaction(t); err != nil {
		if errors.Is(err, store.ErrDuplicate) && t.EventID != nil {
			return &DuplicateEventError{EventID: *t.EventID}
		}
		return err
	}
	return nil
}

func (l *TransactionLog) Seen(tx store.Tx, eventID string) (bool, error) {
	return tx.HasEvent(eventID)
}

func (l *TransactionLog) List(tx store.Tx, limit int) ([]models.Transaction, error) {
	return tx.ListTransactions(limit)
}

func newTransaction(ev *models.Event, seq uint64, processedAt time.Time) models.Transaction {
	t := models.Transaction{
		ID:          uuid.New(),
		ProductID:   ev.ProductID,
		EventType:   ev.Type,
		Quantity:    ev.Quantity,
		Timestamp:   ev.Timestamp,
		ProcessedAt: processedAt,
		Sequence:    seq,
	}
	if ev.EventID != "" {
		eventID := ev.EventID
		t.EventID = &eventID
	}
	return t
}
