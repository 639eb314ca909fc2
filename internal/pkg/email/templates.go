package email

import (
	"fmt"
	"html/template"
)

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
        {{template "content" .}}
        <p>Questions? Contact us at {{.SupportEmail}}.</p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
    </div>
</body>
</html>{{end}}`

var contentTemplates = map[EmailType]string{
	EmailTypeOrderConfirmation: `{{define "content"}}
        <p>Thank you for your order <strong>{{.OrderNumber}}</strong> placed on {{.OrderDate}}.</p>
        <table style="width: 100%; border-collapse: collapse;">
            <tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
            {{range .Items}}<tr><td>{{.Name}} ({{.SKU}})</td><td align="center">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.Total}}</td></tr>
            {{end}}
        </table>
        <p>Subtotal: {{.Currency}} {{.Subtotal}}<br>
        Discount: {{.Currency}} {{.Discount}}<br>
        Shipping: {{.Currency}} {{.Shipping}}<br>
        Tax: {{.Currency}} {{.Tax}}<br>
        <strong>Total: {{.Currency}} {{.Total}}</strong></p>
        <p>Payment: {{.PaymentMethod}}</p>
        {{with .ShippingAddress}}{{if .Line1}}<p>Shipping to:<br>{{.FullName}}<br>{{.Line1}}{{if .Line2}}, {{.Line2}}{{end}}<br>{{.City}}, {{.State}} {{.PostalCode}}<br>{{.Country}}</p>{{end}}{{end}}
{{end}}`,
	EmailTypeOrderStatusUpdate: `{{define "content"}}
        <p>Your order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
        <p>{{.StatusMessage}}</p>
        {{if .Comment}}<p>Note: {{.Comment}}</p>{{end}}
{{end}}`,
}

func parseTemplates() (map[EmailType]*template.Template, error) {
	out := make(map[EmailType]*template.Template, len(contentTemplates))
	for name, content := range contentTemplates {
		tmpl, err := template.New(string(name)).Parse(layoutTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email layout: %w", err)
		}
		if _, err := tmpl.Parse(content); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		out[name] = tmpl.Lookup("layout")
	}
	return out, nil
}
