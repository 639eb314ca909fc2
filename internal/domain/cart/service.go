// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/pricing"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
	"github.com/your-org/marketplace-api/internal/pkg/metrics"
	"github.com/your-org/marketplace-api/internal/pkg/txretry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles cart business logic
type Service struct {
	db         *gorm.DB
	config     *config.Config
	calculator *pricing.Calculator
	metrics    *metrics.Metrics
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config, calculator *pricing.Calculator, m *metrics.Metrics) *Service {
	return &Service{
		db:         db,
		config:     cfg,
		calculator: calculator,
		metrics:    m,
	}
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest sets the absolute quantity of a line; 0 removes it
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// QuoteRequest previews checkout totals for the current cart
type QuoteRequest struct {
	DiscountCode string `form:"code" json:"discount_code"`
}

// GetCart returns the user's cart after reconciling it with live product
// state. Drifted lines are patched and dead lines dropped in one transaction.
func (s *Service) GetCart(ctx context.Context, userID uint) (*CartResponse, error) {
	var resp *CartResponse
	err := txretry.Do(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			resp, err = s.refreshTx(ctx, tx, userID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// AddItem merges quantity into the cart. The merged quantity is validated
// and repriced; a violation leaves the cart untouched.
func (s *Service) AddItem(ctx context.Context, userID uint, req *AddToCartRequest) (*CartResponse, error) {
	if req.Quantity < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}

	err := s.mutate(ctx, userID, func(tx *gorm.DB, cart *Cart) error {
		p, err := loadProduct(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}

		var existing CartItem
		err = tx.WithContext(ctx).
			Where("cart_id = ? AND product_id = ?", cart.ID, p.ID).
			First(&existing).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load cart item: %w", err)
		}

		quantity := req.Quantity
		if found {
			quantity += existing.Quantity
		}
		if err := p.CheckQuantity(quantity); err != nil {
			return err
		}

		if found {
			return tx.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
				"quantity": quantity,
				"price":    p.UnitPrice(quantity),
				"name":     p.Name,
				"image":    p.Image,
			}).Error
		}
		item := CartItem{
			CartID:    cart.ID,
			ProductID: p.ID,
			Quantity:  quantity,
			Price:     p.UnitPrice(quantity),
			Name:      p.Name,
			Image:     p.Image,
		}
		if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
			return fmt.Errorf("failed to add cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	}).Debug("item added to cart")

	return s.GetCart(ctx, userID)
}

// UpdateItem sets a line's quantity
func (s *Service) UpdateItem(ctx context.Context, userID, productID uint, req *UpdateCartItemRequest) (*CartResponse, error) {
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, apperror.Validation("quantity cannot be negative")
	}
	quantity := *req.Quantity

	err := s.mutate(ctx, userID, func(tx *gorm.DB, cart *Cart) error {
		var existing CartItem
		err := tx.WithContext(ctx).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("item not found in cart")
			}
			return fmt.Errorf("failed to load cart item: %w", err)
		}

		if quantity == 0 {
			return tx.WithContext(ctx).Delete(&existing).Error
		}

		p, err := loadProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if err := p.CheckQuantity(quantity); err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"quantity": quantity,
			"price":    p.UnitPrice(quantity),
			"name":     p.Name,
			"image":    p.Image,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem deletes a line from the cart
func (s *Service) RemoveItem(ctx context.Context, userID, productID uint) (*CartResponse, error) {
	err := s.mutate(ctx, userID, func(tx *gorm.DB, cart *Cart) error {
		res := tx.WithContext(ctx).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Delete(&CartItem{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("item not found in cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// ClearCart removes every line
func (s *Service) ClearCart(ctx context.Context, userID uint) error {
	return s.mutate(ctx, userID, func(tx *gorm.DB, cart *Cart) error {
		return clearItemsTx(ctx, tx, cart.ID)
	})
}

// Quote previews totals for the cart as it would be ordered now
func (s *Service) Quote(ctx context.Context, userID uint, req *QuoteRequest) (*pricing.Quote, error) {
	resp, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, apperror.Validation("cart is empty")
	}
	return s.calculator.Quote(PricingLines(resp.Items), req.DiscountCode)
}

// PricingLines converts cart lines to calculator input
func PricingLines(items []CartLine) []pricing.Line {
	lines := make([]pricing.Line, len(items))
	for i, item := range items {
		lines[i] = pricing.Line{
			UnitPrice:   item.Price,
			Quantity:    item.Quantity,
			WeightGrams: item.Weight,
		}
	}
	return lines
}

// LoadTx returns the user's cart with its items inside tx. A user without a
// cart gets an empty one with ID 0.
func LoadTx(ctx context.Context, tx *gorm.DB, userID uint) (*Cart, error) {
	var cart Cart
	err := tx.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Cart{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

// ClearTx empties cart inside a caller's transaction, guarded by the version
// the caller read.
func (s *Service) ClearTx(ctx context.Context, tx *gorm.DB, cart *Cart) error {
	if cart.ID == 0 {
		return nil
	}
	if err := s.bumpVersion(ctx, tx, cart); err != nil {
		return err
	}
	return clearItemsTx(ctx, tx, cart.ID)
}

// mutate runs fn against the user's cart in a transaction, bumping the
// version first so concurrent writers conflict and retry.
func (s *Service) mutate(ctx context.Context, userID uint, fn func(tx *gorm.DB, cart *Cart) error) error {
	return txretry.Do(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			cart, err := getOrCreateTx(ctx, tx, userID)
			if err != nil {
				return err
			}
			if err := s.bumpVersion(ctx, tx, cart); err != nil {
				return err
			}
			return fn(tx, cart)
		})
	})
}

func (s *Service) refreshTx(ctx context.Context, tx *gorm.DB, userID uint) (*CartResponse, error) {
	cart, err := LoadTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	resp := &CartResponse{
		ID:      cart.ID,
		UserID:  userID,
		Version: cart.Version,
		Items:   []CartLine{},
		Totals:  CartTotals{Subtotal: decimal.Zero},
	}
	if len(cart.Items) == 0 {
		return resp, nil
	}

	ids := make([]uint, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}
	products, err := product.LoadByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	var stale []uint
	patches := make(map[uint]map[string]interface{})
	for i := range cart.Items {
		item := &cart.Items[i]
		p, ok := products[item.ProductID]
		if !ok || !p.IsActive {
			stale = append(stale, item.ID)
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("%s is no longer available and was removed from your cart", item.Name))
			continue
		}

		price := p.UnitPrice(item.Quantity)
		if !price.Equal(item.Price) || p.Name != item.Name || p.Image != item.Image {
			if !price.Equal(item.Price) {
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("price of %s changed from %s to %s", p.Name, item.Price.StringFixed(2), price.StringFixed(2)))
			}
			patches[item.ID] = map[string]interface{}{"price": price, "name": p.Name, "image": p.Image}
			item.Price, item.Name, item.Image = price, p.Name, p.Image
		}
		if item.Quantity > p.Stock {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("only %d of %s left in stock", p.Stock, p.Name))
		}

		line := CartLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
			Stock:     p.Stock,
			Weight:    p.Weight,
		}
		resp.Items = append(resp.Items, line)
		resp.Totals.ItemCount++
		resp.Totals.TotalQuantity += line.Quantity
		resp.Totals.Subtotal = resp.Totals.Subtotal.Add(line.LineTotal)
		resp.Totals.TotalWeightGrams += line.Weight * line.Quantity
	}

	if len(stale) == 0 && len(patches) == 0 {
		return resp, nil
	}

	if err := s.bumpVersion(ctx, tx, cart); err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		if err := tx.WithContext(ctx).Where("id IN ?", stale).Delete(&CartItem{}).Error; err != nil {
			return nil, fmt.Errorf("failed to drop unavailable cart items: %w", err)
		}
	}
	for id, patch := range patches {
		if err := tx.WithContext(ctx).Model(&CartItem{}).Where("id = ?", id).Updates(patch).Error; err != nil {
			return nil, fmt.Errorf("failed to refresh cart item: %w", err)
		}
	}
	resp.Version = cart.Version

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"dropped": len(stale),
		"patched": len(patches),
	}).Info("cart refreshed against live products")

	return resp, nil
}

// bumpVersion is the compare-and-swap on the cart row
func (s *Service) bumpVersion(ctx context.Context, tx *gorm.DB, cart *Cart) error {
	res := tx.WithContext(ctx).Model(&Cart{}).
		Where("id = ? AND version = ?", cart.ID, cart.Version).
		Updates(map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update cart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		s.metrics.IncLockConflict("cart")
		return txretry.Conflict("cart")
	}
	cart.Version++
	return nil
}

func getOrCreateTx(ctx context.Context, tx *gorm.DB, userID uint) (*Cart, error) {
	var cart Cart
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	// Two first-time writers may race here; the loser's insert is a no-op.
	err = tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&Cart{UserID: userID, Version: 1}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

func loadProduct(ctx context.Context, tx *gorm.DB, id uint) (*product.Product, error) {
	products, err := product.LoadByIDs(ctx, tx, []uint{id})
	if err != nil {
		return nil, err
	}
	p, ok := products[id]
	if !ok || !p.IsActive {
		return nil, apperror.Validation("product not found or inactive").
			WithDetails(map[string]any{"product_id": id})
	}
	return p, nil
}

func clearItemsTx(ctx context.Context, tx *gorm.DB, cartID uint) error {
	if err := tx.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
