package order

import (
	"context"
	"strings"

	"github.com/your-org/marketplace-api/internal/pkg/email"
)

// EmailNotifier sends order emails to the buyer
type EmailNotifier struct {
	emails *email.EmailService
}

// NewEmailNotifier creates a Notifier backed by the email service
func NewEmailNotifier(emails *email.EmailService) *EmailNotifier {
	return &EmailNotifier{emails: emails}
}

// OrderPlaced sends the order confirmation
func (n *EmailNotifier) OrderPlaced(ctx context.Context, o *Order) error {
	data := email.OrderConfirmationData{
		EmailTemplateData: email.EmailTemplateData{UserName: recipientName(o), UserEmail: o.Email},
		OrderNumber:       o.OrderNumber,
		OrderDate:         o.CreatedAt.Format("02 Jan 2006"),
		Currency:          o.Currency,
		Subtotal:          o.Subtotal.StringFixed(2),
		Tax:               o.Tax.StringFixed(2),
		Shipping:          o.Shipping.StringFixed(2),
		Discount:          o.Discount.StringFixed(2),
		Total:             o.Total.StringFixed(2),
		PaymentMethod:     strings.ToUpper(string(o.Payment.Method)),
		ShippingAddress: email.Address{
			FullName:   o.ShippingAddress.FullName,
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.State,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
			Phone:      o.ShippingAddress.Phone,
		},
	}
	for _, item := range o.Items {
		data.Items = append(data.Items, email.OrderItem{
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Total:     item.LineTotal.StringFixed(2),
		})
	}
	return n.emails.SendOrderConfirmationEmail(ctx, data)
}

// OrderStatusChanged tells the buyer about a new status
func (n *EmailNotifier) OrderStatusChanged(ctx context.Context, o *Order, previous OrderStatus) error {
	data := email.OrderStatusUpdateData{
		EmailTemplateData: email.EmailTemplateData{UserName: recipientName(o), UserEmail: o.Email},
		OrderNumber:       o.OrderNumber,
		PreviousStatus:    string(previous),
		Status:            string(o.Status),
	}
	if h := o.StatusHistory; len(h) > 0 && h[len(h)-1].Status == o.Status {
		data.Comment = h[len(h)-1].Comment
	}
	return n.emails.SendOrderStatusUpdateEmail(ctx, data)
}

func recipientName(o *Order) string {
	if o.ShippingAddress.FullName != "" {
		return o.ShippingAddress.FullName
	}
	return o.Email
}
