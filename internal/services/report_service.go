// internal/services/report_service.go
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

// InventoryReader is the read side of the inventory engine.
type InventoryReader interface {
	Inventory(ctx context.Context, limit int) (*inventory.InventoryView, error)
}

type ValuationLine struct {
	ProductID       string          `json:"product_id"`
	Quantity        int64           `json:"quantity"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	AverageCost     decimal.Decimal `json:"average_cost"`
	OpenBatches     int             `json:"open_batches"`
	OldestBatchCost decimal.Decimal `json:"oldest_batch_cost"`
	OldestBatchAt   *time.Time      `json:"oldest_batch_at,omitempty"`
}

type ValuationReport struct {
	GeneratedAt   time.Time       `json:"generated_at"`
	Lines         []ValuationLine `json:"lines"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

type ExportResult struct {
	*UploadResult
	Rows int `json:"rows"`
}

var valuationHeader = []string{
	"product_id", "quantity", "total_cost", "average_cost", "open_batches", "oldest_batch_cost", "oldest_batch_at",
}

// ReportService builds the inventory valuation report: per product what is
// on hand and what it cost under FIFO.
type ReportService struct {
	inventory InventoryReader
	storage   *StorageService
	prefix    string
	now       func() time.Time
}

func NewReportService(reader InventoryReader, storage *StorageService, prefix string) *ReportService {
	return &ReportService{
		inventory: reader,
		storage:   storage,
		prefix:    prefix,
		now:       time.Now,
	}
}

func (s *ReportService) Valuation(ctx context.Context) (*ValuationReport, error) {
	view, err := s.inventory.Inventory(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	open := make(map[string][]models.Batch)
	for _, b := range view.Batches {
		if !b.Exhausted() {
			open[b.ProductID] = append(open[b.ProductID], b)
		}
	}

	report := &ValuationReport{
		GeneratedAt: s.now().UTC(),
		Lines:       make([]ValuationLine, 0, len(view.Products)),
		TotalValue:  decimal.Zero,
	}
	for _, p := range view.Products {
		line := ValuationLine{
			ProductID:   p.ProductID,
			Quantity:    p.CurrentQuantity,
			TotalCost:   p.TotalCost,
			AverageCost: p.AverageCost,
			OpenBatches: len(open[p.ProductID]),
		}
		if batches := open[p.ProductID]; len(batches) > 0 {
			models.SortFIFO(batches)
			line.OldestBatchCost = batches[0].UnitPrice
			createdAt := batches[0].CreatedAt
			line.OldestBatchAt = &createdAt
		}

		report.Lines = append(report.Lines, line)
		report.TotalQuantity += p.CurrentQuantity
		report.TotalValue = report.TotalValue.Add(p.TotalCost)
	}

	return report, nil
}

// RenderCSV writes the report with display-rounded amounts and a trailing
// total row.
func (s *ReportService) RenderCSV(report *ValuationReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(valuationHeader); err != nil {
		return nil, err
	}
	for _, line := range report.Lines {
		oldestAt := ""
		if line.OldestBatchAt != nil {
			oldestAt = line.OldestBatchAt.UTC().Format(time.RFC3339)
		}
		oldestCost := ""
		if line.OpenBatches > 0 {
			oldestCost = utils.FormatMoney(line.OldestBatchCost)
		}

		record := []string{
			line.ProductID,
			strconv.FormatInt(line.Quantity, 10),
			utils.FormatMoney(line.TotalCost),
			utils.FormatMoney(line.AverageCost),
			strconv.Itoa(line.OpenBatches),
			oldestCost,
			oldestAt,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	if err := w.Write([]string{"TOTAL", strconv.FormatInt(report.TotalQuantity, 10), utils.FormatMoney(report.TotalValue), "", "", "", ""}); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Export renders the current valuation and uploads it to report storage.
func (s *ReportService) Export(ctx context.Context) (*ExportResult, error) {
	if !s.storage.Enabled() {
		return nil, ErrStorageUnavailable
	}

	report, err := s.Valuation(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.RenderCSV(report)
	if err != nil {
		return nil, err
	}

	key := path.Join(s.prefix, fmt.Sprintf("valuation-%s.csv", report.GeneratedAt.Format("20060102T150405Z")))
	upload, err := s.storage.Upload(ctx, key, body, "text/csv", utils.HashBytes(body))
	if err != nil {
		return nil, err
	}

	return &ExportResult{UploadResult: upload, Rows: len(report.Lines)}, nil
}
