// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID           uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	EventID      *string            `json:"event_id,omitempty" gorm:"size:128;uniqueIndex"`
	ProductID    string             `json:"product_id" gorm:"size:64;not null;index"`
	EventType    EventType          `json:"event_type" gorm:"type:varchar(16);not null;index"`
	Quantity     int64              `json:"quantity" gorm:"not null"`
	UnitPrice    *decimal.Decimal   `json:"unit_price,omitempty" gorm:"type:numeric(24,4)"`
	TotalCost    decimal.Decimal    `json:"total_cost" gorm:"type:numeric(24,4);not null"`
	Consumptions []BatchConsumption `json:"consumptions,omitempty" gorm:"serializer:json;type:jsonb"`
	Timestamp    time.Time          `json:"timestamp" gorm:"not null"`
	ProcessedAt  time.Time          `json:"processed_at" gorm:"not null"`
	Sequence     uint64             `json:"sequence" gorm:"not null;uniqueIndex"`
}

// BatchConsumption records how much of one batch a sale drew down.
type BatchConsumption struct {
	BatchID   uuid.UUID       `json:"batch_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Cost      decimal.Decimal `json:"cost"`
}
