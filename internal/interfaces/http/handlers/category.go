// internal/interfaces/http/handlers/category.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/domain/product"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	categoryService *product.CategoryService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories *product.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categories}
}

// GetCategories lists categories flat, ordered by sort order
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.GetCategories(c.Request.Context(), includeInactive(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Categories retrieved successfully", categories)
}

// GetCategoryTree returns the nested category tree
func (h *CategoryHandler) GetCategoryTree(c *gin.Context) {
	tree, err := h.categoryService.GetCategoryTree(c.Request.Context(), includeInactive(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Category tree retrieved successfully", tree)
}

// GetCategory gets one category with its children
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.GetCategory(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Category retrieved successfully", category)
}

// GetBreadcrumbs returns the path from the root to the category
func (h *CategoryHandler) GetBreadcrumbs(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	path, err := h.categoryService.GetBreadcrumbs(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Breadcrumbs retrieved successfully", path)
}

// CreateCategory creates a category (admin only)
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req product.CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Category created successfully", category)
}

// UpdateCategory updates or moves a category (admin only)
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req product.CategoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Category updated successfully", category)
}

// DeleteCategory deletes an empty leaf category (admin only)
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.categoryService.DeleteCategory(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Category deleted successfully", nil)
}
