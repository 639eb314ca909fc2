// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/interfaces/http/middleware"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	productService *product.Service
}

// NewProductHandler creates a new product handler
func NewProductHandler(products *product.Service) *ProductHandler {
	return &ProductHandler{productService: products}
}

// includeInactive lets admins opt into inactive rows with ?include_inactive=true
func includeInactive(c *gin.Context) bool {
	return middleware.IsAdminFromContext(c) && c.Query("include_inactive") == "true"
}

// GetProducts lists products with filters and pagination
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req product.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, err)
		return
	}
	req.IncludeInactive = includeInactive(c)

	response, err := h.productService.GetProducts(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Products retrieved successfully", response)
}

// GetProduct gets a product by ID
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	p, err := h.productService.GetProduct(c.Request.Context(), id, includeInactive(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product retrieved successfully", p)
}

// GetProductBySlug gets a product by slug
func (h *ProductHandler) GetProductBySlug(c *gin.Context) {
	p, err := h.productService.GetProductBySlug(c.Request.Context(), c.Param("slug"), includeInactive(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product retrieved successfully", p)
}

// CreateProduct creates a new product (admin only)
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req product.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	p, err := h.productService.CreateProduct(c.Request.Context(), &req, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Product created successfully", p)
}

// UpdateProduct applies a partial update (admin only)
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req product.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	p, err := h.productService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product updated successfully", p)
}

// DeleteProduct soft deletes a product (admin only)
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product deleted successfully", nil)
}
