// internal/handlers/product.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/fifo-inventory/internal/i18n"
	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

type ProductHandler struct {
	engine InventoryEngine
}

func NewProductHandler(engine InventoryEngine) *ProductHandler {
	return &ProductHandler{
		engine: engine,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	products, err := h.engine.Products(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.ListResponse(c, newProductViews(products), len(products), 0)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	productID := c.Param("id")

	snap, err := h.engine.Snapshot(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, inventory.ErrUnknownProduct) {
			utils.NotFoundResponse(c, "NOT_FOUND", i18n.T(lang, i18n.KeyProductNotFound, productID))
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": newProductView(snap.Product),
		"batches": newBatchViews(snap.Batches),
	})
}
