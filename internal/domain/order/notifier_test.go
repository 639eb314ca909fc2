package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-api/internal/pkg/email"
	"github.com/your-org/marketplace-api/internal/testutil"
)

func TestEmailNotifierRendersOrder(t *testing.T) {
	var sent []*email.Email
	emails, err := email.NewEmailServiceWithSender(testutil.Config(t), email.SenderFunc(func(ctx context.Context, e *email.Email) error {
		sent = append(sent, e)
		return nil
	}))
	require.NoError(t, err)
	n := NewEmailNotifier(emails)

	o := &Order{
		OrderNumber:     "ORD-20261014-0000CAFE",
		Email:           "buyer@example.com",
		Status:          OrderStatusPending,
		Subtotal:        decimal.RequireFromString("200"),
		Tax:             decimal.RequireFromString("36"),
		Shipping:        decimal.Zero,
		Discount:        decimal.Zero,
		Total:           decimal.RequireFromString("236"),
		Currency:        "INR",
		ShippingAddress: Address{FullName: "Meera Iyer", Line1: "4 Lake Rd", City: "Chennai", State: "TN", PostalCode: "600001", Country: "IN"},
		Payment:         PaymentInfo{Method: PaymentMethodUPI},
		CreatedAt:       time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		Items: []OrderItem{{
			SKU: "MUG-1", Name: "Mug", Quantity: 2,
			UnitPrice: decimal.RequireFromString("100"), LineTotal: decimal.RequireFromString("200"),
		}},
	}
	require.NoError(t, n.OrderPlaced(context.Background(), o))
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"buyer@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].HTMLContent, "Hello Meera Iyer")
	assert.Contains(t, sent[0].HTMLContent, "Total: INR 236.00")
	assert.Contains(t, sent[0].HTMLContent, "14 Oct 2026")
	assert.Contains(t, sent[0].HTMLContent, "Payment: UPI")

	o.Status = OrderStatusShipped
	o.StatusHistory = []OrderStatusHistory{{Status: OrderStatusShipped, Comment: "via BlueDart"}}
	require.NoError(t, n.OrderStatusChanged(context.Background(), o, OrderStatusProcessing))
	require.Len(t, sent, 2)
	assert.Equal(t, "Order Update - ORD-20261014-0000CAFE", sent[1].Subject)
	assert.Contains(t, sent[1].HTMLContent, "Note: via BlueDart")
}
