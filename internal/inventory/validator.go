// internal/inventory/validator.go
package inventory

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

// MaxPriceScale is the number of fractional digits accepted on unit prices.
const MaxPriceScale = 4

// MaxAmount bounds every stored money value: numeric(24,4) keeps 20
// integer digits.
var MaxAmount = decimal.New(1, 20)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// EventValidator normalizes raw events and rejects malformed ones.
type EventValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

func NewEventValidator(now func() time.Time) *EventValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("product_id", utils.ValidateProductID)

	if now == nil {
		now = time.Now
	}
	return &EventValidator{validate: v, now: now}
}

func (v *EventValidator) Validate(raw models.RawEvent) (*models.Event, error) {
	raw.ProductID = strings.TrimSpace(raw.ProductID)
	raw.EventType = strings.ToLower(strings.TrimSpace(raw.EventType))
	raw.EventID = strings.TrimSpace(raw.EventID)

	verr := &ValidationError{}
	if err := v.validate.Struct(raw); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			verr.Errors = append(verr.Errors, FieldError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Message: fieldMessage(fe),
			})
		}
	}

	event := &models.Event{
		EventID:   raw.EventID,
		ProductID: raw.ProductID,
		Type:      models.EventType(raw.EventType),
	}
	if raw.Quantity != nil {
		event.Quantity = *raw.Quantity
	}

	// Sales never accept a price; their cost comes from the batches consumed.
	if event.Type == models.EventTypePurchase {
		switch {
		case raw.UnitPrice == nil:
			verr.Errors = append(verr.Errors, FieldError{Field: "unit_price", Tag: "required", Message: "unit_price is required for purchases"})
		case !raw.UnitPrice.IsPositive():
			verr.Errors = append(verr.Errors, FieldError{Field: "unit_price", Tag: "gt", Message: "unit_price must be greater than 0"})
		case !raw.UnitPrice.Equal(raw.UnitPrice.Truncate(MaxPriceScale)):
			verr.Errors = append(verr.Errors, FieldError{Field: "unit_price", Tag: "scale", Message: "unit_price must have at most 4 decimal places"})
		case raw.UnitPrice.GreaterThanOrEqual(MaxAmount):
			verr.Errors = append(verr.Errors, FieldError{Field: "unit_price", Tag: "max", Message: "unit_price must be less than " + MaxAmount.String()})
		case event.Quantity > 0 && raw.UnitPrice.Mul(decimal.NewFromInt(event.Quantity)).GreaterThanOrEqual(MaxAmount):
			verr.Errors = append(verr.Errors, FieldError{Field: "unit_price", Tag: "max", Message: "quantity * unit_price must be less than " + MaxAmount.String()})
		default:
			event.UnitPrice = *raw.UnitPrice
		}
	}

	if raw.Timestamp == "" {
		event.Timestamp = v.now().UTC()
	} else if ts, ok := parseTimestamp(raw.Timestamp); ok {
		event.Timestamp = ts
	} else {
		verr.Errors = append(verr.Errors, FieldError{Field: "timestamp", Tag: "datetime", Message: "timestamp must be an RFC 3339 instant"})
	}

	if len(verr.Errors) > 0 {
		return nil, verr
	}
	return event, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "oneof":
		return e.Field() + " must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	default:
		return e.Field() + " is invalid"
	}
}
