// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/domain/cart"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
)

// CartHandler handles cart endpoints under /api/orders/cart
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *cart.Service) *CartHandler {
	return &CartHandler{cartService: carts}
}

// updateCartRequest addresses the line by product in the body
type updateCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  *int `json:"quantity" binding:"required,min=0"`
}

// GetCart gets the current user's reconciled cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	response, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart retrieved successfully", response)
}

// AddToCart adds a product or increases the quantity of an existing line
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	response, err := h.cartService.AddItem(c.Request.Context(), userID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Item added to cart", response)
}

// UpdateCartItem sets the absolute quantity of a line; 0 removes it
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	response, err := h.cartService.UpdateItem(c.Request.Context(), userID, req.ProductID, &cart.UpdateCartItemRequest{
		Quantity: req.Quantity,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart updated", response)
}

// RemoveFromCart removes one product line
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}

	response, err := h.cartService.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Item removed from cart", response)
}

// ClearCart empties the cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(c.Request.Context(), userID); err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart cleared", nil)
}

// Quote previews totals with an optional discount code
func (h *CartHandler) Quote(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req cart.QuoteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.DiscountCode == "" {
		req.DiscountCode = c.Query("code")
	}
	if len(req.DiscountCode) > 50 {
		abortWithError(c, apperror.Validation("discount code is too long"))
		return
	}

	quote, err := h.cartService.Quote(c.Request.Context(), userID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Quote calculated", quote)
}
