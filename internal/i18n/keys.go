// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLoginSuccess       = "auth.login_success"

	// Events
	KeyEventApplied           = "event.applied"
	KeyEventInvalid           = "event.invalid"
	KeyEventInsufficientStock = "event.insufficient_stock"
	KeyEventUnknownProduct    = "event.unknown_product"
	KeyEventDuplicate         = "event.duplicate"
	KeyEventSimulated         = "event.simulated"

	// Products
	KeyProductNotFound = "product.not_found"

	// Reports
	KeyReportExported           = "report.exported"
	KeyReportStorageUnavailable = "report.storage_unavailable"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// System
	KeyRateLimitExceeded = "system.rate_limit_exceeded"
	KeyInternalError     = "system.internal_error"
)
