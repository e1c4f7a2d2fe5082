// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/fifo-inventory/internal/config"
	"github.com/javajoker/fifo-inventory/internal/consumer"
	"github.com/javajoker/fifo-inventory/internal/inventory"
)

const timeLayout = time.RFC3339

// Reconciler checks product aggregates against their batches.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]inventory.Discrepancy, error)
	LastSequence() uint64
}

type HealthHandler struct {
	reconciler  Reconciler
	consumer    *consumer.Consumer
	environment string
	now         func() time.Time
}

// NewHealthHandler builds the /health handler. consumer may be nil when
// Kafka ingestion is disabled.
func NewHealthHandler(reconciler Reconciler, c *consumer.Consumer, environment string) *HealthHandler {
	return &HealthHandler{
		reconciler:  reconciler,
		consumer:    c,
		environment: environment,
		now:         time.Now,
	}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":        "healthy",
		"version":       config.ServiceVersion,
		"timestamp":     h.now().UTC().Format(timeLayout),
		"environment":   h.environment,
		"last_sequence": h.reconciler.LastSequence(),
	}
	if h.consumer != nil {
		body["consumer"] = h.consumer.Stats()
	}

	if c.Query("reconcile") == "true" {
		discrepancies, err := h.reconciler.Reconcile(c.Request.Context())
		if err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["discrepancies"] = discrepancies
		if len(discrepancies) > 0 {
			body["status"] = "degraded"
		}
	}

	c.JSON(http.StatusOK, body)
}
