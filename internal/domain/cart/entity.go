// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the single shopping cart a user owns. Version is bumped by every
// mutation and guards against lost updates.
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Version   int        `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

// CartItem is one line with the price, name and image captured when it was
// last written.
type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CartID    uint            `gorm:"not null;uniqueIndex:idx_cart_product" json:"-"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"` // unit price
	Name      string          `gorm:"size:255" json:"name"`
	Image     string          `gorm:"size:500" json:"image"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// LineTotal is unit price times quantity
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// CartLine is a cart item as returned to clients
type CartLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Stock     int             `json:"stock"`
	Weight    int             `json:"weight"`
}

// CartTotals summarises the lines of a cart
type CartTotals struct {
	ItemCount        int             `json:"item_count"`     // distinct products
	TotalQuantity    int             `json:"total_quantity"` // sum of quantities
	Subtotal         decimal.Decimal `json:"subtotal"`
	TotalWeightGrams int             `json:"total_weight_grams"`
}

// CartResponse is the refreshed view of a cart
type CartResponse struct {
	ID       uint       `json:"id"`
	UserID   uint       `json:"user_id"`
	Version  int        `json:"version"`
	Items    []CartLine `json:"items"`
	Totals   CartTotals `json:"totals"`
	Warnings []string   `json:"warnings,omitempty"`
}
