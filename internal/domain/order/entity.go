// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order is the snapshot of a checkout. Only status, payment and timestamps
// change after creation.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	Email       string      `gorm:"size:255" json:"email"`
	Status      OrderStatus `gorm:"not null;size:20;index" json:"status"`

	// Totals
	Subtotal     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`
	Shipping     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping"`
	Discount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
	Total        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	TaxRate      decimal.Decimal `gorm:"type:numeric(5,4)" json:"tax_rate"`
	Currency     string          `gorm:"size:3" json:"currency"`
	DiscountCode string          `gorm:"size:50" json:"discount_code,omitempty"`
	WeightGrams  int             `json:"weight_grams"`

	ShippingAddress Address     `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  Address     `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`
	Payment         PaymentInfo `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Notes           string      `gorm:"type:text" json:"notes,omitempty"`

	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	ShippedAt    *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`
	CancelReason string     `gorm:"size:500" json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"status_history,omitempty"`
}

// OrderItem is the product snapshot taken at checkout
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	SKU       string          `gorm:"not null;size:100" json:"sku"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Image     string          `gorm:"size:500" json:"image"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"size:20" json:"from_status,omitempty"`
	Status     OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment    string      `gorm:"type:text" json:"comment"`
	CreatedBy  uint        `gorm:"index" json:"created_by"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Address is a shipping or billing address embedded in Order
type Address struct {
	FullName   string `gorm:"size:200" json:"full_name" binding:"required,max=200"`
	Phone      string `gorm:"size:20" json:"phone" binding:"required,max=20"`
	Line1      string `gorm:"size:255" json:"line1" binding:"required,max=255"`
	Line2      string `gorm:"size:255" json:"line2" binding:"max=255"`
	City       string `gorm:"size:100" json:"city" binding:"required,max=100"`
	State      string `gorm:"size:100" json:"state" binding:"required,max=100"`
	PostalCode string `gorm:"size:20" json:"postal_code" binding:"required,max=20"`
	Country    string `gorm:"size:2" json:"country" binding:"omitempty,len=2"`
}

// PaymentInfo is the simulated payment attached to an order
type PaymentInfo struct {
	Method    PaymentMethod `gorm:"size:10" json:"method"`
	Status    PaymentStatus `gorm:"size:20" json:"status"`
	Reference string        `gorm:"size:100" json:"reference,omitempty"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
}

func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// IsOwnedBy reports whether userID placed the order
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

// ItemCount is the total quantity across all lines
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
