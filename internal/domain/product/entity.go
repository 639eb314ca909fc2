// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product represents a sellable catalog item. Stock is only changed through
// version-guarded writes in the inventory ledger.
type Product struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	SKU               string            `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name              string            `gorm:"not null;size:255" json:"name"`
	Slug              string            `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description       string            `gorm:"type:text" json:"description"`
	Price             decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"price"`
	OriginalPrice     decimal.Decimal   `gorm:"type:numeric(12,2)" json:"original_price"`
	Stock             int               `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	MinOrderQuantity  int               `gorm:"not null;default:1" json:"min_order_quantity"`
	MaxOrderQuantity  int               `gorm:"not null;default:0" json:"max_order_quantity"` // 0 means unlimited
	LowStockThreshold int               `gorm:"not null;default:5" json:"low_stock_threshold"`
	Weight            int               `gorm:"not null;default:0" json:"weight"` // grams
	Image             string            `gorm:"size:500" json:"image"`
	CategoryID        uint              `gorm:"not null;index" json:"category_id"`
	Specifications    datatypes.JSONMap `json:"specifications"`
	IsActive          bool              `gorm:"default:true;index" json:"is_active"`
	Version           int               `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	// Relationships
	Category    *Category    `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
	PriceBreaks []PriceBreak `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"price_breaks"`
}

// PriceBreak is a quantity threshold at which a lower unit price applies
type PriceBreak struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_price_break_qty" json:"-"`
	Quantity  int             `gorm:"not null;uniqueIndex:idx_price_break_qty" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

// AttributeType is the value kind of a category attribute
type AttributeType string

const (
	AttributeText   AttributeType = "text"
	AttributeNumber AttributeType = "number"
	AttributeSelect AttributeType = "select"
)

// CategoryAttribute describes a specification key expected on products of a category
type CategoryAttribute struct {
	Name     string        `json:"name"`
	Type     AttributeType `json:"type"`
	Options  []string      `json:"options,omitempty"`
	Required bool          `json:"required"`
}

// Category represents a node of the catalog tree
type Category struct {
	ID           uint                                   `gorm:"primaryKey" json:"id"`
	Name         string                                 `gorm:"not null;size:255" json:"name"`
	Slug         string                                 `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description  string                                 `gorm:"size:500" json:"description"`
	Image        string                                 `gorm:"size:500" json:"image"`
	ParentID     *uint                                  `gorm:"index" json:"parent_id"`
	Level        int                                    `gorm:"not null;default:1" json:"level"`
	Attributes   datatypes.JSONSlice[CategoryAttribute] `json:"attributes"`
	ProductCount int                                    `gorm:"not null;default:0" json:"product_count"`
	SortOrder    int                                    `gorm:"default:0" json:"sort_order"`
	IsActive     bool                                   `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time                              `json:"created_at"`
	UpdatedAt    time.Time                              `json:"updated_at"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// TableName overrides
func (Product) TableName() string    { return "products" }
func (PriceBreak) TableName() string { return "product_price_breaks" }
func (Category) TableName() string   { return "categories" }

// Business methods for Product
func (p *Product) IsInStock() bool {
	return p.Stock > 0
}

func (p *Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

func (p *Product) GetDiscountPercentage() int {
	if p.OriginalPrice.IsPositive() && p.Price.LessThan(p.OriginalPrice) {
		return int(p.OriginalPrice.Sub(p.Price).Mul(decimal.NewFromInt(100)).Div(p.OriginalPrice).IntPart())
	}
	return 0
}
