// internal/domain/inventory/entity.go
package inventory

import (
	"errors"
	"time"

	"github.com/your-org/marketplace-api/internal/domain/product"
	"gorm.io/gorm"
)

// AdjustmentType is the kind of stock mutation
type AdjustmentType string

const (
	AdjustmentIncrease AdjustmentType = "increase"
	AdjustmentDecrease AdjustmentType = "decrease"
	AdjustmentSet      AdjustmentType = "set"
)

// Valid reports whether t is a known adjustment type
func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjustmentIncrease, AdjustmentDecrease, AdjustmentSet:
		return true
	}
	return false
}

// AlertType classifies a stock alert
type AlertType string

const (
	AlertLowStock   AlertType = "low_stock"
	AlertOutOfStock AlertType = "out_of_stock"
)

var errAppendOnly = errors.New("stock adjustments are append-only")

// StockAdjustment is the audit row written alongside every stock mutation
type StockAdjustment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	Type      AdjustmentType `gorm:"not null;size:20" json:"type"`
	Quantity  int            `gorm:"not null" json:"quantity"`
	OldStock  int            `gorm:"not null" json:"old_stock"`
	NewStock  int            `gorm:"not null" json:"new_stock"`
	UserID    uint           `gorm:"index" json:"user_id"`
	Reason    string         `gorm:"size:500" json:"reason"`
	Reference string         `gorm:"size:100;index" json:"reference,omitempty"` // e.g. "order:ORD-20260101-ABCD1234"
	CreatedAt time.Time      `gorm:"index" json:"created_at"`

	// Relationships
	Product *product.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// StockAlert tracks products at or below their low-stock threshold. An alert
// stays open until stock climbs back above the threshold.
type StockAlert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProductID  uint       `gorm:"not null;index" json:"product_id"`
	AlertType  AlertType  `gorm:"not null;size:20" json:"alert_type"`
	Stock      int        `gorm:"not null" json:"stock"`
	Threshold  int        `gorm:"not null" json:"threshold"`
	IsResolved bool       `gorm:"default:false;index" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relationships
	Product *product.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (StockAdjustment) TableName() string { return "stock_adjustments" }
func (StockAlert) TableName() string      { return "stock_alerts" }

// BeforeUpdate keeps the ledger immutable
func (a *StockAdjustment) BeforeUpdate(tx *gorm.DB) error {
	return errAppendOnly
}

// BeforeDelete keeps the ledger immutable
func (a *StockAdjustment) BeforeDelete(tx *gorm.DB) error {
	return errAppendOnly
}

// Delta is the signed change in stock
func (a *StockAdjustment) Delta() int {
	return a.NewStock - a.OldStock
}
