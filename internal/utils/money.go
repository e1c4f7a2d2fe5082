// internal/utils/money.go
package utils

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places amounts are shown with.
const MoneyPlaces = 2

// FormatMoney rounds half away from zero to two places. Stored amounts keep
// full precision; only what is displayed is rounded.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// FormatMoneyPtr is FormatMoney for optional amounts.
func FormatMoneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := FormatMoney(*d)
	return &s
}
