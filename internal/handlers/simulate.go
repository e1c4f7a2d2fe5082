// internal/handlers/simulate.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/fifo-inventory/internal/i18n"
	"github.com/javajoker/fifo-inventory/internal/services"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

type SimulationHandler struct {
	simulationService *services.SimulationService
}

func NewSimulationHandler(simulationService *services.SimulationService) *SimulationHandler {
	return &SimulationHandler{
		simulationService: simulationService,
	}
}

// POST /simulate
func (h *SimulationHandler) Simulate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	event, result, err := h.simulationService.Simulate(c.Request.Context())
	if err != nil {
		respondEventError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyEventSimulated),
		"event":   event,
		"result":  newEventResultView(result),
	})
}
