// internal/handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/fifo-inventory/internal/i18n"
	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

// respondEventError maps an Apply failure onto the API envelope.
func respondEventError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var validationErr *inventory.ValidationError
	var stockErr *inventory.InsufficientStockError
	var unknownErr *inventory.UnknownProductError
	var duplicateErr *inventory.DuplicateEventError

	switch {
	case errors.As(err, &validationErr):
		utils.ValidationErrorResponse(c, i18n.T(lang, i18n.KeyEventInvalid), validationErr.Errors)
	case errors.As(err, &stockErr):
		utils.ConflictResponse(c, "INSUFFICIENT_STOCK",
			i18n.T(lang, i18n.KeyEventInsufficientStock, stockErr.ProductID, stockErr.Requested, stockErr.Available),
			gin.H{
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			})
	case errors.As(err, &unknownErr):
		utils.NotFoundResponse(c, "UNKNOWN_PRODUCT", i18n.T(lang, i18n.KeyEventUnknownProduct, unknownErr.ProductID))
	case errors.As(err, &duplicateErr):
		utils.ConflictResponse(c, "DUPLICATE_EVENT", i18n.T(lang, i18n.KeyEventDuplicate, duplicateErr.EventID), nil)
	default:
		logrus.WithError(err).Error("Failed to apply inventory event")
		utils.InternalErrorResponse(c, "")
	}
}
