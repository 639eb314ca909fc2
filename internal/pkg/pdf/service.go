// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/order"
)

var invoiceTmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"percent": func(d decimal.Decimal) string {
		return d.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
	},
}).Parse(invoiceTemplate))

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	Order         *order.Order
	Company       config.CompanyConfig
}

// GenerateInvoice renders an order invoice as PDF. Requires the
// wkhtmltopdf binary on PATH or at WKHTMLTOPDF_PATH.
func (s *Service) GenerateInvoice(ctx context.Context, o *order.Order) ([]byte, error) {
	htmlContent, err := s.InvoiceHTML(o)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.Title.Set("Invoice " + o.OrderNumber)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return pdfg.Bytes(), nil
}

// InvoiceHTML renders the invoice page that GenerateInvoice converts
func (s *Service) InvoiceHTML(o *order.Order) (string, error) {
	data := InvoiceData{
		InvoiceNumber: "INV-" + o.OrderNumber,
		InvoiceDate:   o.CreatedAt.Format("January 2, 2006"),
		Order:         o,
		Company:       s.config.Company,
	}

	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute invoice template: %w", err)
	}
	return buf.String(), nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { display: flex; justify-content: space-between; border-bottom: 2px solid #333; padding-bottom: 12px; }
        .addresses { display: flex; justify-content: space-between; margin: 20px 0; }
        table { width: 100%; border-collapse: collapse; margin-top: 16px; }
        th, td { border-bottom: 1px solid #ddd; padding: 8px; }
        th { background: #f4f4f4; text-align: left; }
        .num { text-align: right; }
        .totals td { border: none; }
        .grand td { font-weight: bold; border-top: 2px solid #333; }
    </style>
</head>
<body>
    <div class="header">
        <div>
            <h2>{{.Company.Name}}</h2>
            {{with .Company.Address}}<div>{{.}}</div>{{end}}
            {{with .Company.Email}}<div>{{.}}</div>{{end}}
            {{with .Company.Phone}}<div>{{.}}</div>{{end}}
            {{with .Company.TaxID}}<div>Tax ID: {{.}}</div>{{end}}
        </div>
        <div>
            <h1>INVOICE</h1>
            <div>Invoice: {{.InvoiceNumber}}</div>
            <div>Order: {{.Order.OrderNumber}}</div>
            <div>Date: {{.InvoiceDate}}</div>
            <div>Status: {{.Order.Status}}</div>
            <div>Payment: {{.Order.Payment.Method}} ({{.Order.Payment.Status}})</div>
        </div>
    </div>

    <div class="addresses">
        {{with .Order.BillingAddress}}{{if .Line1}}<div>
            <strong>Bill to</strong><br>
            {{.FullName}}<br>{{.Line1}}{{if .Line2}}, {{.Line2}}{{end}}<br>
            {{.City}}, {{.State}} {{.PostalCode}}<br>{{.Country}}<br>{{.Phone}}
        </div>{{end}}{{end}}
        {{with .Order.ShippingAddress}}{{if .Line1}}<div>
            <strong>Ship to</strong><br>
            {{.FullName}}<br>{{.Line1}}{{if .Line2}}, {{.Line2}}{{end}}<br>
            {{.City}}, {{.State}} {{.PostalCode}}<br>{{.Country}}<br>{{.Phone}}
        </div>{{end}}{{end}}
    </div>

    <table>
        <tr><th>SKU</th><th>Item</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Amount</th></tr>
        {{range .Order.Items}}<tr>
            <td>{{.SKU}}</td><td>{{.Name}}</td><td class="num">{{.Quantity}}</td>
            <td class="num">{{money .UnitPrice}}</td><td class="num">{{money .LineTotal}}</td>
        </tr>{{end}}
    </table>

    <table class="totals">
        <tr><td class="num">Subtotal</td><td class="num">{{.Order.Currency}} {{money .Order.Subtotal}}</td></tr>
        {{if .Order.Discount.IsPositive}}<tr><td class="num">Discount{{with .Order.DiscountCode}} ({{.}}){{end}}</td><td class="num">-{{.Order.Currency}} {{money .Order.Discount}}</td></tr>{{end}}
        <tr><td class="num">Shipping</td><td class="num">{{.Order.Currency}} {{money .Order.Shipping}}</td></tr>
        <tr><td class="num">Tax ({{percent .Order.TaxRate}})</td><td class="num">{{.Order.Currency}} {{money .Order.Tax}}</td></tr>
        <tr class="grand"><td class="num">Total</td><td class="num">{{.Order.Currency}} {{money .Order.Total}}</td></tr>
    </table>

    <p style="margin-top: 40px; font-size: 12px; color: #666;">Thank you for shopping with {{.Company.Name}}.</p>
</body>
</html>`
