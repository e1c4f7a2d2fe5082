// internal/models/event.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawEvent is the ingestion payload as producers send it, over HTTP or Kafka.
type RawEvent struct {
	EventID   string           `json:"event_id,omitempty" validate:"max=128"`
	ProductID string           `json:"product_id" validate:"required,max=64,product_id"`
	EventType string           `json:"event_type" validate:"required,oneof=purchase sale"`
	Quantity  *int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
}

// Event is a validated RawEvent.
type Event struct {
	EventID   string
	ProductID string
	Type      EventType
	Quantity  int64
	UnitPrice decimal.Decimal
	Timestamp time.Time
}
