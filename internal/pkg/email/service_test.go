package email

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-api/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Email:   config.EmailConfig{Provider: "log", FromEmail: "noreply@example.com", FromName: "Marketplace"},
		Company: config.CompanyConfig{Email: "help@example.com", Website: "https://shop.example.com"},
	}
}

func recordingService(t *testing.T) (*EmailService, *[]*Email) {
	t.Helper()
	var sent []*Email
	svc, err := NewEmailServiceWithSender(testConfig(), SenderFunc(func(ctx context.Context, e *Email) error {
		sent = append(sent, e)
		return nil
	}))
	require.NoError(t, err)
	return svc, &sent
}

func TestOrderConfirmationEmail(t *testing.T) {
	svc, sent := recordingService(t)

	err := svc.SendOrderConfirmationEmail(context.Background(), OrderConfirmationData{
		EmailTemplateData: EmailTemplateData{UserName: "Asha <script>", UserEmail: "asha@example.com"},
		OrderNumber:       "ORD-20261014-ABCDEF12",
		OrderDate:         "14 Oct 2026",
		Currency:          "INR",
		Subtotal:          "200.00",
		Tax:               "36.00",
		Shipping:          "0.00",
		Discount:          "0.00",
		Total:             "236.00",
		PaymentMethod:     "card",
		Items:             []OrderItem{{Name: "Kettle", SKU: "KT-1", Quantity: 2, UnitPrice: "100.00", Total: "200.00"}},
		ShippingAddress:   Address{FullName: "Asha Rao", Line1: "1 Main St", City: "Pune", State: "MH", PostalCode: "411001", Country: "IN"},
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	msg := (*sent)[0]
	assert.Equal(t, []string{"asha@example.com"}, msg.To)
	assert.Equal(t, "Order Confirmation - ORD-20261014-ABCDEF12", msg.Subject)
	assert.Equal(t, EmailTypeOrderConfirmation, msg.Type)
	assert.Contains(t, msg.HTMLContent, "Kettle (KT-1)")
	assert.Contains(t, msg.HTMLContent, "Total: INR 236.00")
	assert.Contains(t, msg.HTMLContent, "help@example.com")
	assert.NotContains(t, msg.HTMLContent, "<script>", "user input is escaped")
}

func TestOrderStatusEmailDefaultsMessage(t *testing.T) {
	svc, sent := recordingService(t)

	err := svc.SendOrderStatusUpdateEmail(context.Background(), OrderStatusUpdateData{
		EmailTemplateData: EmailTemplateData{UserName: "Ravi", UserEmail: "ravi@example.com"},
		OrderNumber:       "ORD-1",
		PreviousStatus:    "processing",
		Status:            "shipped",
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0].HTMLContent, "Your order is on its way.")
	assert.NotContains(t, (*sent)[0].HTMLContent, "Note:")
}

func TestProviderSelection(t *testing.T) {
	cfg := testConfig()
	svc, err := NewEmailService(cfg)
	require.NoError(t, err)
	assert.IsType(t, logSender{}, svc.sender)

	cfg.Email.Provider = "pigeon"
	_, err = NewEmailService(cfg)
	assert.ErrorContains(t, err, "unsupported email provider")
}

func TestSMTPRequiresConfiguration(t *testing.T) {
	sender := newSMTPSender(config.EmailConfig{})
	err := sender.Send(context.Background(), &Email{To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "SMTP configuration incomplete")
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage(config.EmailConfig{FromEmail: "noreply@example.com", FromName: "Shop"}, &Email{
		To:          []string{"a@example.com", "b@example.com"},
		Subject:     "Hello",
		HTMLContent: "<p>hi</p>",
	}))
	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, head, "From: Shop <noreply@example.com>")
	assert.Contains(t, head, "To: a@example.com, b@example.com")
	assert.Contains(t, head, "Subject: Hello")
	assert.Equal(t, "<p>hi</p>", body)
}
