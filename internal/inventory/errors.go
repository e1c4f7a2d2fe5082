// internal/inventory/errors.go
package inventory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("invalid event")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrDuplicateEvent    = errors.New("duplicate event")
)

// FieldError names one offending field of a rejected event.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type ValidationError struct {
	Errors []FieldError
}

// Field returns the first offending field.
func (e *ValidationError) Field() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Field
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type InsufficientStockError struct {
	ProductID string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s for product %s: requested %d, available %d",
		ErrInsufficientStock, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("%s %s: no purchase history", ErrUnknownProduct, e.ProductID)
}

func (e *UnknownProductError) Is(target error) bool { return target == ErrUnknownProduct }

type DuplicateEventError struct {
	EventID string
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("%s %s: already applied", ErrDuplicateEvent, e.EventID)
}

func (e *DuplicateEventError) Is(target error) bool { return target == ErrDuplicateEvent }

// IsRejection reports whether err is a business rejection rather than an
// infrastructure failure. Rejections must not be retried.
func IsRejection(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrDuplicateEvent)
}
