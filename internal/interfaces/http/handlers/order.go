// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/domain/order"
)

// OrderHandler handles buyer and admin order endpoints
type OrderHandler struct {
	orderService *order.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *order.Service) *OrderHandler {
	return &OrderHandler{orderService: orders}
}

// CreateOrder places an order from the current cart
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	o, err := h.orderService.CreateOrder(c.Request.Context(), actor, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Order created successfully", o)
}

// GetMyOrders lists the signed-in buyer's orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, err)
		return
	}

	response, err := h.orderService.GetUserOrders(c.Request.Context(), userID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Orders retrieved successfully", response)
}

// GetOrder gets one order visible to the caller
func (h *OrderHandler) GetOrder(c *gin.Context) {
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

	respond(c, http.StatusOK, "Order retrieved successfully", o)
}

// GetOrderByNumber resolves an order by its public number
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	o, err := h.orderService.GetOrderByNumber(c.Request.Context(), c.Param("number"), actor)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order retrieved successfully", o)
}

// CancelOrder cancels a pending or processing order and restores stock
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req order.CancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	o, err := h.orderService.Cancel(c.Request.Context(), id, &req, actor)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order cancelled successfully", o)
}

// AdminGetOrders lists all orders with filters (admin only)
func (h *OrderHandler) AdminGetOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, err)
		return
	}

	response, err := h.orderService.GetOrders(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Orders retrieved successfully", response)
}

// AdminUpdateStatus moves an order along the lifecycle (admin only)
func (h *OrderHandler) AdminUpdateStatus(c *gin.Context) {
	admin, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req order.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	o, err := h.orderService.UpdateStatus(c.Request.Context(), id, &req, admin)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order status updated successfully", o)
}

// AdminRefund marks an order refunded (admin only)
func (h *OrderHandler) AdminRefund(c *gin.Context) {
	admin, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req order.RefundRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	o, err := h.orderService.Refund(c.Request.Context(), id, &req, admin)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order refunded successfully", o)
}

// AdminDeleteOrder hard deletes a cancelled order (admin only)
func (h *OrderHandler) AdminDeleteOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Order deleted successfully", nil)
}
