// internal/domain/product/category_service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CategoryService handles category business logic
type CategoryService struct {
	db       *gorm.DB
	config   *config.Config
	cache    TreeCache
	maxDepth int
}

// NewCategoryService creates a new category service. cache may be nil.
func NewCategoryService(db *gorm.DB, cfg *config.Config, cache TreeCache) *CategoryService {
	maxDepth := cfg.Catalog.MaxCategoryDepth
	if maxDepth < 1 {
		maxDepth = 3
	}
	return &CategoryService{
		db:       db,
		config:   cfg,
		cache:    cache,
		maxDepth: maxDepth,
	}
}

// CategoryCreateRequest represents category creation data
type CategoryCreateRequest struct {
	Name        string              `json:"name" binding:"required,max=255"`
	Description string              `json:"description" binding:"max=500"`
	Image       string              `json:"image"`
	ParentID    *uint               `json:"parent_id"`
	SortOrder   int                 `json:"sort_order"`
	IsActive    *bool               `json:"is_active"`
	Attributes  []CategoryAttribute `json:"attributes"`
}

// CategoryUpdateRequest represents category update data. A ParentID of 0
// moves the category to the root.
type CategoryUpdateRequest struct {
	Name        *string              `json:"name" binding:"omitempty,max=255"`
	Description *string              `json:"description"`
	Image       *string              `json:"image"`
	ParentID    *uint                `json:"parent_id"`
	SortOrder   *int                 `json:"sort_order"`
	IsActive    *bool                `json:"is_active"`
	Attributes  *[]CategoryAttribute `json:"attributes"`
}

// CategoryTree represents hierarchical category structure
type CategoryTree struct {
	Category
	Children []CategoryTree `json:"children"`
}

// GetCategories retrieves a flat category list
func (s *CategoryService) GetCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	var categories []Category

	query := s.db.WithContext(ctx).Model(&Category{}).Order("level ASC, sort_order ASC, name ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}

	return categories, nil
}

// GetCategoryTree returns the active categories as a nested tree. The public
// tree is served from the cache when available.
func (s *CategoryService) GetCategoryTree(ctx context.Context, includeInactive bool) ([]CategoryTree, error) {
	if !includeInactive && s.cache != nil {
		if tree, ok := s.cache.GetTree(ctx); ok {
			return tree, nil
		}
	}

	categories, err := s.GetCategories(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	tree := buildTree(categories)
	if !includeInactive && s.cache != nil {
		s.cache.SetTree(ctx, tree)
	}
	return tree, nil
}

// buildTree nests categories under their parents. Categories whose parent is
// absent from the list (for example an inactive parent) are dropped.
func buildTree(categories []Category) []CategoryTree {
	byParent := make(map[uint][]Category)
	var roots []Category
	present := make(map[uint]bool, len(categories))
	for _, cat := range categories {
		present[cat.ID] = true
	}
	for _, cat := range categories {
		if cat.ParentID == nil {
			roots = append(roots, cat)
			continue
		}
		if present[*cat.ParentID] {
			byParent[*cat.ParentID] = append(byParent[*cat.ParentID], cat)
		}
	}

	var build func(nodes []Category) []CategoryTree
	build = func(nodes []Category) []CategoryTree {
		out := make([]CategoryTree, 0, len(nodes))
		for _, n := range nodes {
			n.Children = nil
			out = append(out, CategoryTree{Category: n, Children: build(byParent[n.ID])})
		}
		return out
	}
	return build(roots)
}

// GetCategory retrieves a single category by ID with its parent and active children
func (s *CategoryService) GetCategory(ctx context.Context, id uint) (*Category, error) {
	var category Category
	result := s.db.WithContext(ctx).
		Preload("Parent").
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order ASC, name ASC")
		}).
		Where("id = ?", id).
		First(&category)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("category not found")
		}
		return nil, fmt.Errorf("failed to retrieve category: %w", result.Error)
	}

	return &category, nil
}

// GetBreadcrumbs returns the path from the root down to the category
func (s *CategoryService) GetBreadcrumbs(ctx context.Context, id uint) ([]Category, error) {
	var path []Category
	currentID := id
	for depth := 0; depth <= s.maxDepth; depth++ {
		var category Category
		if err := s.db.WithContext(ctx).Where("id = ?", currentID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if depth == 0 {
					return nil, apperror.NotFound("category not found")
				}
				break
			}
			return nil, fmt.Errorf("failed to load category: %w", err)
		}
		path = append([]Category{category}, path...)
		if category.ParentID == nil {
			break
		}
		currentID = *category.ParentID
	}
	return path, nil
}

// DescendantIDs returns id together with the IDs of every category below it
func (s *CategoryService) DescendantIDs(ctx context.Context, id uint) ([]uint, error) {
	ids := []uint{id}
	frontier := []uint{id}
	for len(frontier) > 0 {
		var children []uint
		if err := s.db.WithContext(ctx).Model(&Category{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error; err != nil {
			return nil, fmt.Errorf("failed to load subcategories: %w", err)
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}

// CreateCategory creates a new category below an optional parent
func (s *CategoryService) CreateCategory(ctx context.Context, req *CategoryCreateRequest) (*Category, error) {
	if err := validateAttributes(req.Attributes); err != nil {
		return nil, err
	}

	level := 1
	if req.ParentID != nil {
		var parent Category
		if err := s.db.WithContext(ctx).Where("id = ?", *req.ParentID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.Validation("parent category not found")
			}
			return nil, fmt.Errorf("failed to load parent category: %w", err)
		}
		level = parent.Level + 1
	}
	if level > s.maxDepth {
		return nil, apperror.Validation(fmt.Sprintf("categories cannot be nested more than %d levels deep", s.maxDepth))
	}

	slug, err := uniqueSlug(ctx, s.db, &Category{}, req.Name, 0)
	if err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	category := Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Description: req.Description,
		Image:       req.Image,
		ParentID:    req.ParentID,
		Level:       level,
		Attributes:  datatypes.NewJSONSlice(req.Attributes),
		SortOrder:   req.SortOrder,
		IsActive:    true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		// gorm skips zero values that carry a default on insert
		if !isActive {
			if err := tx.Model(&category).Update("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTree(ctx)
	return s.GetCategory(ctx, category.ID)
}

// UpdateCategory updates an existing category. Reparenting recomputes the
// levels of the whole subtree and rejects cycles or trees deeper than allowed.
func (s *CategoryService) UpdateCategory(ctx context.Context, id uint, req *CategoryUpdateRequest) (*Category, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.Where("id = ?", id).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("category not found")
			}
			return fmt.Errorf("failed to find category: %w", err)
		}

		updates := make(map[string]interface{})

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.Validation("category name cannot be empty")
			}
			if name != category.Name {
				slug, err := uniqueSlug(ctx, tx, &Category{}, name, id)
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
		if req.Image != nil {
			updates["image"] = *req.Image
		}
		if req.SortOrder != nil {
			updates["sort_order"] = *req.SortOrder
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}
		if req.Attributes != nil {
			if err := validateAttributes(*req.Attributes); err != nil {
				return err
			}
			updates["attributes"] = datatypes.NewJSONSlice(*req.Attributes)
		}

		reparent := false
		newLevel := category.Level
		if req.ParentID != nil {
			newParentID := *req.ParentID
			level, err := s.checkReparent(ctx, tx, &category, newParentID)
			if err != nil {
				return err
			}
			newLevel = level
			reparent = true
			if newParentID == 0 {
				updates["parent_id"] = nil
			} else {
				updates["parent_id"] = newParentID
			}
			updates["level"] = newLevel
		}

		if len(updates) > 0 {
			if err := tx.Model(&category).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update category: %w", err)
			}
		}

		if reparent {
			return s.relevelChildren(ctx, tx, id, newLevel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTree(ctx)
	return s.GetCategory(ctx, id)
}

// checkReparent validates moving category under newParentID (0 for root) and
// returns the category's new level.
func (s *CategoryService) checkReparent(ctx context.Context, tx *gorm.DB, category *Category, newParentID uint) (int, error) {
	newLevel := 1
	if newParentID != 0 {
		if newParentID == category.ID {
			return 0, apperror.Validation("category cannot be its own parent")
		}

		var parent Category
		if err := tx.WithContext(ctx).Where("id = ?", newParentID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, apperror.Validation("parent category not found")
			}
			return 0, fmt.Errorf("failed to load parent category: %w", err)
		}

		ancestors, err := s.getAncestors(ctx, tx, newParentID)
		if err != nil {
			return 0, err
		}
		for _, ancestor := range ancestors {
			if ancestor == category.ID {
				return 0, apperror.Validation("circular reference detected")
			}
		}
		newLevel = parent.Level + 1
	}

	height, err := s.subtreeHeight(ctx, tx, category.ID)
	if err != nil {
		return 0, err
	}
	if newLevel+height-1 > s.maxDepth {
		return 0, apperror.Validation(fmt.Sprintf("categories cannot be nested more than %d levels deep", s.maxDepth))
	}
	return newLevel, nil
}

// getAncestors returns all ancestor IDs of a category, nearest first
func (s *CategoryService) getAncestors(ctx context.Context, tx *gorm.DB, categoryID uint) ([]uint, error) {
	var ancestors []uint
	currentID := categoryID
	seen := map[uint]bool{categoryID: true}

	for {
		var category Category
		err := tx.WithContext(ctx).Select("id", "parent_id").Where("id = ?", currentID).First(&category).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ancestors, nil
			}
			return nil, fmt.Errorf("failed to load category ancestry: %w", err)
		}
		if category.ParentID == nil || seen[*category.ParentID] {
			return ancestors, nil
		}
		seen[*category.ParentID] = true
		ancestors = append(ancestors, *category.ParentID)
		currentID = *category.ParentID
	}
}

// subtreeHeight counts levels in the subtree rooted at id; a leaf is 1.
func (s *CategoryService) subtreeHeight(ctx context.Context, tx *gorm.DB, id uint) (int, error) {
	height := 1
	frontier := []uint{id}
	for {
		var children []uint
		if err := tx.WithContext(ctx).Model(&Category{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return 0, fmt.Errorf("failed to load subcategories: %w", err)
		}
		if len(children) == 0 {
			return height, nil
		}
		height++
		frontier = children
	}
}

func (s *CategoryService) relevelChildren(ctx context.Context, tx *gorm.DB, parentID uint, parentLevel int) error {
	frontier := []uint{parentID}
	level := parentLevel
	for len(frontier) > 0 {
		level++
		var children []uint
		if err := tx.WithContext(ctx).Model(&Category{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return fmt.Errorf("failed to load subcategories: %w", err)
		}
		if len(children) == 0 {
			return nil
		}
		if err := tx.WithContext(ctx).Model(&Category{}).Where("id IN ?", children).Update("level", level).Error; err != nil {
			return fmt.Errorf("failed to update subcategory levels: %w", err)
		}
		frontier = children
	}
	return nil
}

// DeleteCategory hard deletes a category that has no products and no subcategories
func (s *CategoryService) DeleteCategory(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.Where("id = ?", id).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("category not found")
			}
			return fmt.Errorf("failed to find category: %w", err)
		}

		var productCount int64
		if err := tx.Model(&Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		if productCount > 0 {
			return apperror.InvalidState("cannot delete category with existing products").
				WithDetails(map[string]any{"product_count": productCount})
		}

		var childCount int64
		if err := tx.Model(&Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
			return fmt.Errorf("failed to count subcategories: %w", err)
		}
		if childCount > 0 {
			return apperror.InvalidState("cannot delete category with subcategories").
				WithDetails(map[string]any{"subcategory_count": childCount})
		}

		if err := tx.Delete(&category).Error; err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateTree(ctx)
	return nil
}

// RefreshProductCounts recomputes the cached active product count of the
// given categories inside tx.
func (s *CategoryService) RefreshProductCounts(ctx context.Context, tx *gorm.DB, ids ...uint) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	count := tx.WithContext(ctx).Model(&Product{}).
		Select("COUNT(*)").
		Where("products.category_id = categories.id AND products.is_active = ?", true)
	if err := tx.WithContext(ctx).Model(&Category{}).
		Where("id IN ?", ids).
		Update("product_count", count).Error; err != nil {
		return fmt.Errorf("failed to refresh category product counts: %w", err)
	}
	return nil
}

// InvalidateTree drops the cached tree after commits that touch categories
func (s *CategoryService) InvalidateTree(ctx context.Context) {
	s.invalidateTree(ctx)
}

// invalidateTree runs after commit, so it must not be skipped when the
// request was canceled in the meantime.
func (s *CategoryService) invalidateTree(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(context.WithoutCancel(ctx))
	}
}

func validateAttributes(attrs []CategoryAttribute) error {
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return apperror.Validation("attribute name is required")
		}
		key := strings.ToLower(name)
		if seen[key] {
			return apperror.Validation(fmt.Sprintf("duplicate attribute %q", name))
		}
		seen[key] = true

		switch a.Type {
		case AttributeText, AttributeNumber:
		case AttributeSelect:
			if len(a.Options) == 0 {
				return apperror.Validation(fmt.Sprintf("select attribute %q needs options", name))
			}
		default:
			return apperror.Validation(fmt.Sprintf("attribute %q has unsupported type %q", name, a.Type))
		}
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
