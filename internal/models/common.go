// internal/models/common.go
package models

// Enums
type EventType string

const (
	EventTypePurchase EventType = "purchase"
	EventTypeSale     EventType = "sale"
)

func (t EventType) Valid() bool {
	return t == EventTypePurchase || t == EventTypeSale
}

func (t EventType) String() string {
	return string(t)
}
