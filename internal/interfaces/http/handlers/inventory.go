// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/domain/inventory"
)

// InventoryHandler handles the admin stock endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inv *inventory.Service) *InventoryHandler {
	return &InventoryHandler{inventoryService: inv}
}

// AdjustStock handles PATCH /stocks/adjust/:id
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req inventory.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	adjustment, err := h.inventoryService.Adjust(c.Request.Context(), productID, &req, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock adjusted successfully", adjustment)
}

// GetHistory pages through one product's stock ledger
func (h *InventoryHandler) GetHistory(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req inventory.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, err)
		return
	}
	req.ProductID = productID

	response, err := h.inventoryService.History(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock history retrieved successfully", response)
}

// GetRecentAdjustments pages through the ledger across all products
func (h *InventoryHandler) GetRecentAdjustments(c *gin.Context) {
	var req inventory.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, err)
		return
	}

	response, err := h.inventoryService.History(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock adjustments retrieved successfully", response)
}

// GetLowStock lists active products at or below their threshold
func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	products, err := h.inventoryService.LowStock(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Low stock products retrieved successfully", products)
}

// GetAlerts lists unresolved stock alerts
func (h *InventoryHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.inventoryService.OpenAlerts(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock alerts retrieved successfully", alerts)
}
