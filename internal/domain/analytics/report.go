package analytics

import (
	"context"
	"fmt"
	"io"

	"github.com/tealeg/xlsx"
	"github.com/your-org/marketplace-api/internal/domain/product"
)

// InventoryReportContentType is the MIME type of the exported workbook
const InventoryReportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var inventoryHeaders = []string{"SKU", "Name", "Category", "Stock", "Low Stock Threshold", "Price", "Active"}

// InventoryRow is one product in the inventory report
type InventoryRow struct {
	SKU       string
	Name      string
	Category  string
	Stock     int
	Threshold int
	Price     string
	Active    bool
}

// InventoryRows lists every product, active or not, ordered by SKU
func (s *Service) InventoryRows(ctx context.Context) ([]InventoryRow, error) {
	var products []product.Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Order("sku").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	rows := make([]InventoryRow, 0, len(products))
	for _, p := range products {
		row := InventoryRow{
			SKU:       p.SKU,
			Name:      p.Name,
			Stock:     p.Stock,
			Threshold: p.LowStockThreshold,
			Price:     p.Price.StringFixed(2),
			Active:    p.IsActive,
		}
		if p.Category != nil {
			row.Category = p.Category.Name
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteInventoryReport writes the inventory report as an xlsx workbook
func (s *Service) WriteInventoryReport(ctx context.Context, w io.Writer) error {
	rows, err := s.InventoryRows(ctx)
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Inventory")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range inventoryHeaders {
		header.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.SKU)
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Category)
		row.AddCell().SetInt(r.Stock)
		row.AddCell().SetInt(r.Threshold)
		row.AddCell().SetString(r.Price)
		row.AddCell().SetBool(r.Active)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
