// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
	"github.com/your-org/marketplace-api/internal/pkg/metrics"
	"github.com/your-org/marketplace-api/internal/pkg/txretry"
	"gorm.io/gorm"
)

// Service owns every write to product stock
type Service struct {
	db      *gorm.DB
	config  *config.Config
	metrics *metrics.Metrics
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config, m *metrics.Metrics) *Service {
	return &Service{
		db:      db,
		config:  cfg,
		metrics: m,
	}
}

// AdjustRequest is the admin stock adjustment payload
type AdjustRequest struct {
	Type     AdjustmentType `json:"type" binding:"required,adjustment_type"`
	Quantity int            `json:"quantity" binding:"min=0"`
	Reason   string         `json:"reason" binding:"required,max=500"`
}

// Change describes one stock mutation applied inside a caller's transaction
type Change struct {
	ProductID uint
	Type      AdjustmentType
	Quantity  int
	Reason    string
	Reference string
	UserID    uint
}

// HistoryRequest pages through the ledger
type HistoryRequest struct {
	Page      int            `form:"page,default=1" binding:"min=1"`
	Limit     int            `form:"limit,default=20" binding:"min=1,max=100"`
	Type      AdjustmentType `form:"type"`
	ProductID uint           `form:"product_id"`
}

// HistoryResponse is a page of adjustments
type HistoryResponse struct {
	Adjustments []StockAdjustment  `json:"adjustments"`
	Pagination  product.Pagination `json:"pagination"`
}

// Adjust applies an admin adjustment to a product, retrying on version conflicts
func (s *Service) Adjust(ctx context.Context, productID uint, req *AdjustRequest, userID uint) (*StockAdjustment, error) {
	change := Change{
		ProductID: productID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		UserID:    userID,
	}
	if err := validateChange(change); err != nil {
		return nil, err
	}

	var adjustment *StockAdjustment
	err := txretry.Do(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			adjustment, err = s.ApplyTx(ctx, tx, change)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id": productID,
		"type":       adjustment.Type,
		"old_stock":  adjustment.OldStock,
		"new_stock":  adjustment.NewStock,
		"user_id":    userID,
	}).Info("stock adjusted")

	return adjustment, nil
}

// ApplyTx mutates a product's stock with a version-guarded update and writes
// the audit row, both inside tx. A lost race returns a retryable conflict.
func (s *Service) ApplyTx(ctx context.Context, tx *gorm.DB, change Change) (*StockAdjustment, error) {
	if err := validateChange(change); err != nil {
		return nil, err
	}

	var p product.Product
	err := tx.WithContext(ctx).
		Select("id", "name", "stock", "version", "low_stock_threshold").
		Where("id = ?", change.ProductID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product not found")
		}
		return nil, fmt.Errorf("failed to load product stock: %w", err)
	}

	newStock, err := nextStock(p, change)
	if err != nil {
		return nil, err
	}

	res := tx.WithContext(ctx).Model(&product.Product{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"stock":   newStock,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		s.metrics.IncLockConflict("product")
		return nil, txretry.Conflict("product")
	}

	adjustment := &StockAdjustment{
		ProductID: p.ID,
		Type:      change.Type,
		Quantity:  change.Quantity,
		OldStock:  p.Stock,
		NewStock:  newStock,
		UserID:    change.UserID,
		Reason:    change.Reason,
		Reference: change.Reference,
	}
	if err := tx.WithContext(ctx).Create(adjustment).Error; err != nil {
		return nil, fmt.Errorf("failed to record stock adjustment: %w", err)
	}

	if err := syncAlertTx(ctx, tx, p.ID, newStock, p.LowStockThreshold); err != nil {
		return nil, err
	}

	s.metrics.IncStockAdjustment(string(change.Type))
	return adjustment, nil
}

// RecordInitialStock writes the opening "set" entry for a new product
func (s *Service) RecordInitialStock(ctx context.Context, tx *gorm.DB, p *product.Product, userID uint) error {
	adjustment := &StockAdjustment{
		ProductID: p.ID,
		Type:      AdjustmentSet,
		Quantity:  p.Stock,
		OldStock:  0,
		NewStock:  p.Stock,
		UserID:    userID,
		Reason:    "initial stock",
	}
	if err := tx.WithContext(ctx).Create(adjustment).Error; err != nil {
		return fmt.Errorf("failed to record initial stock: %w", err)
	}
	if err := syncAlertTx(ctx, tx, p.ID, p.Stock, p.LowStockThreshold); err != nil {
		return err
	}
	s.metrics.IncStockAdjustment(string(AdjustmentSet))
	return nil
}

func validateChange(change Change) error {
	if !change.Type.Valid() {
		return apperror.Validation(fmt.Sprintf("invalid adjustment type %q", change.Type))
	}
	if change.Type == AdjustmentSet {
		if change.Quantity < 0 {
			return apperror.Validation("quantity cannot be negative")
		}
	} else if change.Quantity <= 0 {
		return apperror.Validation("quantity must be greater than zero")
	}
	return nil
}

func nextStock(p product.Product, change Change) (int, error) {
	switch change.Type {
	case AdjustmentIncrease:
		return p.Stock + change.Quantity, nil
	case AdjustmentDecrease:
		if p.Stock < change.Quantity {
			return 0, apperror.Validation(fmt.Sprintf("insufficient stock for %s", p.Name)).
				WithDetails(map[string]any{"product_id": p.ID, "available": p.Stock, "requested": change.Quantity})
		}
		return p.Stock - change.Quantity, nil
	default:
		return change.Quantity, nil
	}
}

// syncAlertTx opens, updates or resolves the product's low-stock alert
func syncAlertTx(ctx context.Context, tx *gorm.DB, productID uint, stock, threshold int) error {
	var open StockAlert
	err := tx.WithContext(ctx).
		Where("product_id = ? AND is_resolved = ?", productID, false).
		First(&open).Error
	hasOpen := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load stock alert: %w", err)
	}

	if stock > threshold {
		if !hasOpen {
			return nil
		}
		now := time.Now()
		if err := tx.WithContext(ctx).Model(&open).Updates(map[string]interface{}{
			"is_resolved": true,
			"resolved_at": &now,
			"stock":       stock,
		}).Error; err != nil {
			return fmt.Errorf("failed to resolve stock alert: %w", err)
		}
		return nil
	}

	alertType := AlertLowStock
	if stock == 0 {
		alertType = AlertOutOfStock
	}

	if hasOpen {
		if err := tx.WithContext(ctx).Model(&open).Updates(map[string]interface{}{
			"alert_type": alertType,
			"stock":      stock,
			"threshold":  threshold,
		}).Error; err != nil {
			return fmt.Errorf("failed to update stock alert: %w", err)
		}
		return nil
	}

	alert := &StockAlert{ProductID: productID, AlertType: alertType, Stock: stock, Threshold: threshold}
	if err := tx.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create stock alert: %w", err)
	}
	return nil
}

// History returns a page of adjustments, newest first
func (s *Service) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&StockAdjustment{})
	if req.ProductID > 0 {
		query = query.Where("product_id = ?", req.ProductID)
	}
	if req.Type != "" {
		if !req.Type.Valid() {
			return nil, apperror.Validation(fmt.Sprintf("invalid adjustment type %q", req.Type))
		}
		query = query.Where("type = ?", req.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count stock adjustments: %w", err)
	}

	var adjustments []StockAdjustment
	err := query.
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Select("id", "sku", "name", "slug", "price", "stock") }).
		Order("created_at DESC, id DESC").
		Offset((req.Page - 1) * req.Limit).
		Limit(req.Limit).
		Find(&adjustments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stock adjustments: %w", err)
	}

	return &HistoryResponse{
		Adjustments: adjustments,
		Pagination:  product.NewPagination(req.Page, req.Limit, total),
	}, nil
}

// LowStock lists active products at or below their threshold, emptiest first
func (s *Service) LowStock(ctx context.Context) ([]product.Product, error) {
	var products []product.Product
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND stock <= low_stock_threshold", true).
		Order("stock ASC, name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve low stock products: %w", err)
	}
	return products, nil
}

// OpenAlerts lists unresolved stock alerts
func (s *Service) OpenAlerts(ctx context.Context) ([]StockAlert, error) {
	var alerts []StockAlert
	err := s.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Select("id", "sku", "name", "slug", "price", "stock") }).
		Where("is_resolved = ?", false).
		Order("stock ASC, created_at ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stock alerts: %w", err)
	}
	return alerts, nil
}
