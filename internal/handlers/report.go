// internal/handlers/report.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/fifo-inventory/internal/i18n"
	"github.com/javajoker/fifo-inventory/internal/services"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// GET /reports/valuation
func (h *ReportHandler) GetValuation(c *gin.Context) {
	report, err := h.reportService.Valuation(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to build valuation report")
		utils.InternalErrorResponse(c, "")
		return
	}

	if c.Query("format") != "csv" {
		utils.SuccessResponse(c, newValuationView(report))
		return
	}

	body, err := h.reportService.RenderCSV(report)
	if err != nil {
		logrus.WithError(err).Error("Failed to render valuation report")
		utils.InternalErrorResponse(c, "")
		return
	}

	filename := fmt.Sprintf("valuation-%s.csv", report.GeneratedAt.UTC().Format("20060102T150405Z"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}

// POST /reports/valuation/export
func (h *ReportHandler) ExportValuation(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	result, err := h.reportService.Export(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrStorageUnavailable) {
			utils.ServiceUnavailableResponse(c, i18n.T(lang, i18n.KeyReportStorageUnavailable))
			return
		}
		logrus.WithError(err).Error("Failed to export valuation report")
		utils.InternalErrorResponse(c, "")
		return
	}

	if operator, ok := utils.GetOperatorFromContext(c); ok {
		logrus.WithFields(logrus.Fields{
			"operator": operator,
			"key":      result.Key,
		}).Info("Valuation report exported")
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReportExported),
		"export":  result,
	})
}

type ValuationLineView struct {
	ProductID       string  `json:"product_id"`
	Quantity        int64   `json:"quantity"`
	TotalCost       string  `json:"total_cost"`
	AverageCost     string  `json:"average_cost"`
	OpenBatches     int     `json:"open_batches"`
	OldestBatchCost string  `json:"oldest_batch_cost"`
	OldestBatchAt   *string `json:"oldest_batch_at,omitempty"`
}

type ValuationView struct {
	GeneratedAt   string              `json:"generated_at"`
	Lines         []ValuationLineView `json:"lines"`
	TotalQuantity int64               `json:"total_quantity"`
	TotalValue    string              `json:"total_value"`
}

func newValuationView(report *services.ValuationReport) ValuationView {
	view := ValuationView{
		GeneratedAt:   report.GeneratedAt.UTC().Format(timeLayout),
		Lines:         make([]ValuationLineView, 0, len(report.Lines)),
		TotalQuantity: report.TotalQuantity,
		TotalValue:    utils.FormatMoney(report.TotalValue),
	}
	for _, line := range report.Lines {
		lv := ValuationLineView{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			TotalCost:       utils.FormatMoney(line.TotalCost),
			AverageCost:     utils.FormatMoney(line.AverageCost),
			OpenBatches:     line.OpenBatches,
			OldestBatchCost: utils.FormatMoney(line.OldestBatchCost),
		}
		if line.OldestBatchAt != nil {
			at := line.OldestBatchAt.UTC().Format(timeLayout)
			lv.OldestBatchAt = &at
		}
		view.Lines = append(view.Lines, lv)
	}
	return view
}
