// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/domain/analytics"
)

// AnalyticsHandler serves the admin dashboard and reports
type AnalyticsHandler struct {
	analyticsService *analytics.Service
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: svc}
}

// GetDashboard handles GET /admin/dashboard
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	stats, err := h.analyticsService.GetDashboardStats(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

// GetSalesReport handles GET /admin/sales?days=N
func (h *AnalyticsHandler) GetSalesReport(c *gin.Context) {
	days, ok := queryInt(c, "days", 30)
	if !ok {
		return
	}

	report, err := h.analyticsService.GetSalesReport(c.Request.Context(), days)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Sales report retrieved successfully", report)
}

// GetTopProducts handles GET /admin/top-products?days=N&limit=M
func (h *AnalyticsHandler) GetTopProducts(c *gin.Context) {
	days, ok := queryInt(c, "days", 30)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 10)
	if !ok {
		return
	}

	products, err := h.analyticsService.GetTopProducts(c.Request.Context(), days, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Top products retrieved successfully", products)
}

// ExportInventory streams the inventory workbook
func (h *AnalyticsHandler) ExportInventory(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.analyticsService.WriteInventoryReport(c.Request.Context(), &buf); err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "inventory.xlsx"))
	c.Data(http.StatusOK, analytics.InventoryReportContentType, buf.Bytes())
}
