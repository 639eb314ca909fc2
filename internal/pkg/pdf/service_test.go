package pdf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/order"
)

func TestInvoiceHTML(t *testing.T) {
	svc := NewService(&config.Config{Company: config.CompanyConfig{Name: "Acme Traders", TaxID: "29ABCDE1234F1Z5"}})

	o := &order.Order{
		OrderNumber:  "ORD-20261014-1A2B3C4D",
		Status:       order.OrderStatusDelivered,
		Subtotal:     decimal.RequireFromString("200"),
		Discount:     decimal.RequireFromString("20"),
		DiscountCode: "WELCOME10",
		Shipping:     decimal.Zero,
		Tax:          decimal.RequireFromString("32.4"),
		TaxRate:      decimal.RequireFromString("0.18"),
		Total:        decimal.RequireFromString("212.4"),
		Currency:     "INR",
		Payment:      order.PaymentInfo{Method: order.PaymentMethodCOD, Status: order.PaymentStatusPaid},
		ShippingAddress: order.Address{
			FullName: "<b>Kiran</b>", Line1: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001", Country: "IN",
		},
		CreatedAt: time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC),
		Items: []order.OrderItem{{
			SKU: "LAMP-2", Name: "Desk Lamp", Quantity: 2,
			UnitPrice: decimal.RequireFromString("100"), LineTotal: decimal.RequireFromString("200"),
		}},
	}

	html, err := svc.InvoiceHTML(o)
	require.NoError(t, err)

	assert.Contains(t, html, "INV-ORD-20261014-1A2B3C4D")
	assert.Contains(t, html, "October 14, 2026")
	assert.Contains(t, html, "Tax ID: 29ABCDE1234F1Z5")
	assert.Contains(t, html, "Desk Lamp")
	assert.Contains(t, html, "INR 212.40")
	assert.Contains(t, html, "Tax (18%)")
	assert.Contains(t, html, "Discount (WELCOME10)")
	assert.Contains(t, html, "&lt;b&gt;Kiran&lt;/b&gt;")
	assert.NotContains(t, html, "Bill to", "empty billing address is omitted")
}
