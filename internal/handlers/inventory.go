// internal/handlers/inventory.go
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/fifo-inventory/internal/i18n"
	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

// InventoryEngine is the part of inventory.Engine the HTTP API needs.
type InventoryEngine interface {
	Apply(ctx context.Context, raw models.RawEvent) (*inventory.Result, error)
	Products(ctx context.Context) ([]models.Product, error)
	Snapshot(ctx context.Context, productID string) (*inventory.Snapshot, error)
	Batches(ctx context.Context, productID string) ([]models.Batch, error)
	Transactions(ctx context.Context, limit int) ([]models.Transaction, error)
	Inventory(ctx context.Context, limit int) (*inventory.InventoryView, error)
}

type InventoryHandler struct {
	engine InventoryEngine
}

func NewInventoryHandler(engine InventoryEngine) *InventoryHandler {
	return &InventoryHandler{
		engine: engine,
	}
}

// POST /events
func (h *InventoryHandler) ApplyEvent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var raw models.RawEvent
	if err := c.ShouldBindJSON(&raw); err != nil {
		utils.ValidationErrorResponse(c, i18n.T(lang, i18n.KeyEventInvalid), []inventory.FieldError{{
			Field:   "body",
			Tag:     "json",
			Message: err.Error(),
		}})
		return
	}

	result, err := h.engine.Apply(c.Request.Context(), raw)
	if err != nil {
		respondEventError(c, err)
		return
	}

	utils.CreatedResponse(c, newEventResultView(result))
}

// GET /inventory
func (h *InventoryHandler) GetInventory(c *gin.Context) {
	view, err := h.engine.Inventory(c.Request.Context(), utils.GetLimitParam(c))
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, InventoryView{
		Products:     newProductViews(view.Products),
		Transactions: newTransactionViews(view.Transactions),
		Batches:      newBatchViews(view.Batches),
	})
}

// GET /transactions
func (h *InventoryHandler) GetTransactions(c *gin.Context) {
	limit := utils.GetLimitParam(c)
	transactions, err := h.engine.Transactions(c.Request.Context(), limit)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.ListResponse(c, newTransactionViews(transactions), len(transactions), limit)
}

// GET /batches
func (h *InventoryHandler) GetBatches(c *gin.Context) {
	batches, err := h.engine.Batches(c.Request.Context(), c.Query("product_id"))
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.ListResponse(c, newBatchViews(batches), len(batches), 0)
}
