// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
)

// Sender delivers a rendered email
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, email *Email) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, email *Email) error {
	return f(ctx, email)
}

// EmailService renders templates and hands the result to a Sender
type EmailService struct {
	config    *config.Config
	templates map[EmailType]*template.Template
	sender    Sender
	now       func() time.Time
}

// NewEmailService creates an email service using the configured provider
func NewEmailService(cfg *config.Config) (*EmailService, error) {
	var sender Sender
	switch cfg.Email.Provider {
	case "smtp":
		sender = newSMTPSender(cfg.Email)
	case "log", "":
		sender = logSender{}
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Email.Provider)
	}
	return NewEmailServiceWithSender(cfg, sender)
}

// NewEmailServiceWithSender creates an email service with a custom sender
func NewEmailServiceWithSender(cfg *config.Config, sender Sender) (*EmailService, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &EmailService{
		config:    cfg,
		templates: templates,
		sender:    sender,
		now:       time.Now,
	}, nil
}

// SendOrderConfirmationEmail sends order confirmation email
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, data OrderConfirmationData) error {
	data.EmailTemplateData = s.base(data.UserName, data.UserEmail)

	htmlContent, err := s.render(EmailTypeOrderConfirmation, data)
	if err != nil {
		return err
	}

	return s.sender.Send(ctx, &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
	})
}

// SendOrderStatusUpdateEmail sends order status update notification
func (s *EmailService) SendOrderStatusUpdateEmail(ctx context.Context, data OrderStatusUpdateData) error {
	data.EmailTemplateData = s.base(data.UserName, data.UserEmail)
	if data.StatusMessage == "" {
		data.StatusMessage = statusMessage(data.Status)
	}

	htmlContent, err := s.render(EmailTypeOrderStatusUpdate, data)
	if err != nil {
		return err
	}

	return s.sender.Send(ctx, &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Update - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderStatusUpdate,
	})
}

func (s *EmailService) base(userName, userEmail string) EmailTemplateData {
	return baseTemplateData(
		s.config.Email.FromName,
		s.config.Company.Website,
		s.config.Company.Email,
		userName,
		userEmail,
		s.now(),
	)
}

// render executes the template for an email type
func (s *EmailService) render(name EmailType, data interface{}) (string, error) {
	tmpl, exists := s.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func statusMessage(status string) string {
	switch status {
	case "processing":
		return "We are preparing your order."
	case "shipped":
		return "Your order is on its way."
	case "delivered":
		return "Your order has been delivered."
	case "cancelled":
		return "Your order has been cancelled."
	case "refunded":
		return "Your payment has been refunded."
	default:
		return "Your order status has changed."
	}
}

// logSender writes emails to the log instead of delivering them
type logSender struct{}

func (logSender) Send(ctx context.Context, email *Email) error {
	logrus.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
		"type":    email.Type,
		"bytes":   len(email.HTMLContent),
	}).Info("email (log provider)")
	return nil
}
