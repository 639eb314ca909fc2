// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/domain/order"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
	"github.com/your-org/marketplace-api/internal/pkg/pdf"
)

// InvoiceHandler renders order invoices
type InvoiceHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orders *order.Service, pdfService *pdf.Service) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orders,
		pdfService:   pdfService,
	}
}

// GenerateInvoice handles GET /orders/:id/invoice. ?format=html returns the
// printable page instead of the PDF.
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), id, actor)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if c.Query("format") == "html" {
		page, err := h.pdfService.InvoiceHTML(o)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		return
	}

	body, err := h.pdfService.GenerateInvoice(c.Request.Context(), o)
	if err != nil {
		abortWithError(c, apperror.Wrap(apperror.CodeDependency, err, "invoice rendering is unavailable"))
		return
	}

	filename := fmt.Sprintf("invoice-%s.pdf", o.OrderNumber)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", body)
}
