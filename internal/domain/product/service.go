// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StockRecorder writes the opening audit entry for a newly created product
type StockRecorder interface {
	RecordInitialStock(ctx context.Context, tx *gorm.DB, p *Product, userID uint) error
}

// Service handles product business logic
type Service struct {
	db         *gorm.DB
	config     *config.Config
	categories *CategoryService
	stock      StockRecorder
}

// NewService creates a new product service. stock may be nil, in which case
// initial stock is not recorded in the ledger.
func NewService(db *gorm.DB, cfg *config.Config, categories *CategoryService, stock StockRecorder) *Service {
	return &Service{
		db:         db,
		config:     cfg,
		categories: categories,
		stock:      stock,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page                 int     `form:"page,default=1" binding:"min=1"`
	Limit                int     `form:"limit,default=20" binding:"min=1,max=100"`
	CategoryID           uint    `form:"category_id"`
	IncludeSubcategories bool    `form:"include_subcategories"`
	Search               string  `form:"search"`
	SortBy               string  `form:"sort_by,default=created_at"`
	SortOrder            string  `form:"sort_order,default=desc"`
	MinPrice             float64 `form:"min_price" binding:"min=0"`
	MaxPrice             float64 `form:"max_price" binding:"min=0"`
	InStock              *bool   `form:"in_stock"`
	IncludeInactive      bool    `form:"-"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	SKU               string                 `json:"sku" binding:"required,sku"`
	Name              string                 `json:"name" binding:"required,max=255"`
	Description       string                 `json:"description"`
	Price             decimal.Decimal        `json:"price"`
	OriginalPrice     decimal.Decimal        `json:"original_price"`
	Stock             int                    `json:"stock" binding:"min=0"`
	MinOrderQuantity  int                    `json:"min_order_quantity" binding:"min=0"`
	MaxOrderQuantity  int                    `json:"max_order_quantity" binding:"min=0"`
	LowStockThreshold *int                   `json:"low_stock_threshold" binding:"omitempty,min=0"`
	Weight            int                    `json:"weight" binding:"min=0"`
	Image             string                 `json:"image"`
	CategoryID        uint                   `json:"category_id" binding:"required"`
	Specifications    map[string]interface{} `json:"specifications"`
	PriceBreaks       []PriceBreakInput      `json:"price_breaks" binding:"dive"`
	IsActive          *bool                  `json:"is_active"`
}

// ProductUpdateRequest represents product update data. Stock is not
// updatable here; use a stock adjustment.
type ProductUpdateRequest struct {
	Name              *string                 `json:"name" binding:"omitempty,max=255"`
	Description       *string                 `json:"description"`
	Price             *decimal.Decimal        `json:"price"`
	OriginalPrice     *decimal.Decimal        `json:"original_price"`
	MinOrderQuantity  *int                    `json:"min_order_quantity" binding:"omitempty,min=1"`
	MaxOrderQuantity  *int                    `json:"max_order_quantity" binding:"omitempty,min=0"`
	LowStockThreshold *int                    `json:"low_stock_threshold" binding:"omitempty,min=0"`
	Weight            *int                    `json:"weight" binding:"omitempty,min=0"`
	Image             *string                 `json:"image"`
	CategoryID        *uint                   `json:"category_id"`
	Specifications    *map[string]interface{} `json:"specifications"`
	PriceBreaks       *[]PriceBreakInput      `json:"price_breaks" binding:"omitempty,dive"`
	IsActive          *bool                   `json:"is_active"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPagination computes page metadata
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// GetProducts retrieves products with filtering and pagination
func (s *Service) GetProducts(ctx context.Context, req *ProductListRequest) (*ProductResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	var products []Product
	var total int64

	query := s.db.WithContext(ctx).Model(&Product{})

	if req.CategoryID > 0 {
		if req.IncludeSubcategories {
			ids, err := s.categories.DescendantIDs(ctx, req.CategoryID)
			if err != nil {
				return nil, err
			}
			query = query.Where("category_id IN ?", ids)
		} else {
			query = query.Where("category_id = ?", req.CategoryID)
		}
	}

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(description) LIKE ?", search, search, search)
	}

	if req.MinPrice > 0 {
		query = query.Where("price >= ?", req.MinPrice)
	}

	if req.MaxPrice > 0 {
		query = query.Where("price <= ?", req.MaxPrice)
	}

	if req.InStock != nil {
		if *req.InStock {
			query = query.Where("stock > 0")
		} else {
			query = query.Where("stock = 0")
		}
	}

	if !req.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	err := query.
		Preload("Category").
		Preload("PriceBreaks", func(db *gorm.DB) *gorm.DB { return db.Order("quantity ASC") }).
		Order(s.buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &ProductResponse{
		Products:   products,
		Pagination: NewPagination(req.Page, req.Limit, total),
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(ctx context.Context, id uint, includeInactive bool) (*Product, error) {
	return s.findOne(ctx, includeInactive, "id = ?", id)
}

// GetProductBySlug retrieves a single product by slug
func (s *Service) GetProductBySlug(ctx context.Context, slug string, includeInactive bool) (*Product, error) {
	return s.findOne(ctx, includeInactive, "slug = ?", slug)
}

func (s *Service) findOne(ctx context.Context, includeInactive bool, cond string, arg interface{}) (*Product, error) {
	var product Product
	query := s.db.WithContext(ctx).
		Preload("Category").
		Preload("PriceBreaks", func(db *gorm.DB) *gorm.DB { return db.Order("quantity ASC") }).
		Where(cond, arg)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product not found")
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}

	return &product, nil
}

// LoadByIDs reads products by ID inside tx with their price breaks. It takes
// no row lock; writers rely on the version guard instead.
// Missing IDs are simply absent from the result map.
func LoadByIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]*Product, error) {
	var products []Product
	if len(ids) == 0 {
		return map[uint]*Product{}, nil
	}
	if err := tx.WithContext(ctx).
		Preload("PriceBreaks").
		Where("id IN ?", ids).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[uint]*Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

// CreateProduct creates a new product and records its opening stock
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest, userID uint) (*Product, error) {
	if err := validatePrices(req.Price, req.OriginalPrice); err != nil {
		return nil, err
	}
	minQty := req.MinOrderQuantity
	if minQty == 0 {
		minQty = 1
	}
	if req.MaxOrderQuantity > 0 && req.MaxOrderQuantity < minQty {
		return nil, apperror.Validation("max_order_quantity must be 0 or at least min_order_quantity")
	}
	breaks, err := buildPriceBreaks(req.PriceBreaks, req.Price)
	if err != nil {
		return nil, err
	}

	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	var existing int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Where("sku = ?", sku).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check sku: %w", err)
	}
	if existing > 0 {
		return nil, apperror.Conflict(fmt.Sprintf("product with SKU %s already exists", sku))
	}

	category, err := s.loadCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := checkSpecifications(category, req.Specifications); err != nil {
		return nil, err
	}

	slug, err := uniqueSlug(ctx, s.db, &Product{}, req.Name, 0)
	if err != nil {
		return nil, err
	}

	threshold := 5
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}

	product := Product{
		SKU:               sku,
		Name:              strings.TrimSpace(req.Name),
		Slug:              slug,
		Description:       req.Description,
		Price:             req.Price.Round(2),
		OriginalPrice:     req.OriginalPrice.Round(2),
		Stock:             req.Stock,
		MinOrderQuantity:  minQty,
		MaxOrderQuantity:  req.MaxOrderQuantity,
		LowStockThreshold: threshold,
		Weight:            req.Weight,
		Image:             req.Image,
		CategoryID:        category.ID,
		Specifications:    datatypes.JSONMap(req.Specifications),
		IsActive:          true,
		Version:           1,
		PriceBreaks:       breaks,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		if req.IsActive != nil && !*req.IsActive {
			if err := tx.Model(&product).Update("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to create product: %w", err)
			}
			product.IsActive = false
		}
		if s.stock != nil && product.Stock > 0 {
			if err := s.stock.RecordInitialStock(ctx, tx, &product, userID); err != nil {
				return err
			}
		}
		return s.categories.RefreshProductCounts(ctx, tx, product.CategoryID)
	})
	if err != nil {
		return nil, err
	}

	s.categories.InvalidateTree(ctx)
	return s.GetProduct(ctx, product.ID, true)
}

// UpdateProduct applies a partial update. Price breaks, when given, replace the existing set.
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *ProductUpdateRequest) (*Product, error) {
	var oldCategoryID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("product not found")
			}
			return fmt.Errorf("failed to find product: %w", err)
		}
		oldCategoryID = product.CategoryID

		updates := make(map[string]interface{})

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.Validation("product name cannot be empty")
			}
			if name != product.Name {
				slug, err := uniqueSlug(ctx, tx, &Product{}, name, id)
				if err != nil {
					return err
				}
				updates["name"] = name
				updates["slug"] = slug
			}
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}

		price, original := product.Price, product.OriginalPrice
		if req.Price != nil {
			price = req.Price.Round(2)
			updates["price"] = price
		}
		if req.OriginalPrice != nil {
			original = req.OriginalPrice.Round(2)
			updates["original_price"] = original
		}
		if err := validatePrices(price, original); err != nil {
			return err
		}

		minQty, maxQty := product.MinOrderQuantity, product.MaxOrderQuantity
		if req.MinOrderQuantity != nil {
			minQty = *req.MinOrderQuantity
			updates["min_order_quantity"] = minQty
		}
		if req.MaxOrderQuantity != nil {
			maxQty = *req.MaxOrderQuantity
			updates["max_order_quantity"] = maxQty
		}
		if maxQty > 0 && maxQty < minQty {
			return apperror.Validation("max_order_quantity must be 0 or at least min_order_quantity")
		}

		if req.LowStockThreshold != nil {
			updates["low_stock_threshold"] = *req.LowStockThreshold
		}
		if req.Weight != nil {
			updates["weight"] = *req.Weight
		}
		if req.Image != nil {
			updates["image"] = *req.Image
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}

		categoryID := product.CategoryID
		if req.CategoryID != nil {
			categoryID = *req.CategoryID
			updates["category_id"] = categoryID
		}
		specs := map[string]interface{}(product.Specifications)
		if req.Specifications != nil {
			specs = *req.Specifications
			updates["specifications"] = datatypes.JSONMap(specs)
		}
		if req.CategoryID != nil || req.Specifications != nil {
			var category Category
			if err := tx.Where("id = ?", categoryID).First(&category).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.Validation("category not found")
				}
				return fmt.Errorf("failed to load category: %w", err)
			}
			if err := checkSpecifications(&category, specs); err != nil {
				return err
			}
		}

		if req.PriceBreaks != nil {
			breaks, err := buildPriceBreaks(*req.PriceBreaks, price)
			if err != nil {
				return err
			}
			if err := tx.Where("product_id = ?", id).Delete(&PriceBreak{}).Error; err != nil {
				return fmt.Errorf("failed to replace price breaks: %w", err)
			}
			for i := range breaks {
				breaks[i].ProductID = id
			}
			if len(breaks) > 0 {
				if err := tx.Create(&breaks).Error; err != nil {
					return fmt.Errorf("failed to replace price breaks: %w", err)
				}
			}
		} else if req.Price != nil {
			var above int64
			if err := tx.Model(&PriceBreak{}).Where("product_id = ? AND price > ?", id, price).Count(&above).Error; err != nil {
				return fmt.Errorf("failed to check price breaks: %w", err)
			}
			if above > 0 {
				return apperror.Validation("price break price cannot exceed the base price")
			}
		}

		if len(updates) > 0 {
			updates["version"] = gorm.Expr("version + 1")
			if err := tx.Model(&Product{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update product: %w", err)
			}
		}

		return s.categories.RefreshProductCounts(ctx, tx, oldCategoryID, categoryID)
	})
	if err != nil {
		return nil, err
	}

	s.categories.InvalidateTree(ctx)
	return s.GetProduct(ctx, id, true)
}

// DeleteProduct soft deletes a product by clearing its active flag
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.Select("id", "category_id").Where("id = ?", id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("product not found")
			}
			return fmt.Errorf("failed to find product: %w", err)
		}

		if err := tx.Model(&Product{}).Where("id = ?", id).Updates(map[string]interface{}{
			"is_active": false,
			"version":   gorm.Expr("version + 1"),
		}).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return s.categories.RefreshProductCounts(ctx, tx, product.CategoryID)
	})
	if err != nil {
		return err
	}

	s.categories.InvalidateTree(ctx)
	return nil
}

func (s *Service) loadCategory(ctx context.Context, id uint) (*Category, error) {
	var category Category
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Validation("category not found")
		}
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	return &category, nil
}

// buildOrderClause builds ORDER BY clause for sorting
func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"updated_at": true,
		"stock":      true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}

func validatePrices(price, original decimal.Decimal) error {
	if !price.IsPositive() {
		return apperror.Validation("price must be greater than zero")
	}
	if original.IsNegative() {
		return apperror.Validation("original_price cannot be negative")
	}
	return nil
}

// checkSpecifications enforces the category's required attributes and select options
func checkSpecifications(category *Category, specs map[string]interface{}) error {
	missing := []string{}
	for _, attr := range category.Attributes {
		value, ok := specs[attr.Name]
		present := ok && value != nil && strings.TrimSpace(fmt.Sprint(value)) != ""
		if attr.Required && !present {
			missing = append(missing, attr.Name)
			continue
		}
		if !present {
			continue
		}
		switch attr.Type {
		case AttributeNumber:
			if _, err := decimal.NewFromString(fmt.Sprint(value)); err != nil {
				return apperror.Validation(fmt.Sprintf("specification %q must be a number", attr.Name))
			}
		case AttributeSelect:
			if !containsFold(attr.Options, fmt.Sprint(value)) {
				return apperror.Validation(fmt.Sprintf("specification %q must be one of %s", attr.Name, strings.Join(attr.Options, ", ")))
			}
		}
	}
	if len(missing) > 0 {
		return apperror.Validation("missing required specifications").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func containsFold(options []string, v string) bool {
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return true
		}
	}
	return false
}
