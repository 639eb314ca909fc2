// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/cart"
	"github.com/your-org/marketplace-api/internal/domain/inventory"
	"github.com/your-org/marketplace-api/internal/domain/pricing"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
	"github.com/your-org/marketplace-api/internal/pkg/metrics"
	"github.com/your-org/marketplace-api/internal/pkg/txretry"
	"gorm.io/gorm"
)

const notifyTimeout = 30 * time.Second

// Actor identifies who is acting on an order
type Actor struct {
	UserID  uint
	Email   string
	IsAdmin bool
}

// Notifier is told about committed order events. Errors are logged only.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
	OrderStatusChanged(ctx context.Context, o *Order, previous OrderStatus) error
}

// Service handles order business logic
type Service struct {
	db         *gorm.DB
	config     *config.Config
	calculator *pricing.Calculator
	inventory  *inventory.Service
	carts      *cart.Service
	notifier   Notifier
	metrics    *metrics.Metrics

	pending sync.WaitGroup
	now     func() time.Time
}

// NewService creates a new order service. notifier may be nil.
func NewService(db *gorm.DB, cfg *config.Config, calculator *pricing.Calculator, inv *inventory.Service, carts *cart.Service, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{
		db:         db,
		config:     cfg,
		calculator: calculator,
		inventory:  inv,
		carts:      carts,
		notifier:   notifier,
		metrics:    m,
		now:        time.Now,
	}
}

// CreateOrderRequest represents order creation data
type CreateOrderRequest struct {
	ShippingAddress Address       `json:"shipping_address" binding:"required"`
	BillingAddress  *Address      `json:"billing_address,omitempty"` // defaults to shipping
	PaymentMethod   PaymentMethod `json:"payment_method" binding:"required,oneof=cod card upi"`
	DiscountCode    string        `json:"discount_code" binding:"max=50"`
	Notes           string        `json:"notes" binding:"max=1000"`
}

// UpdateStatusRequest is the admin status change payload
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required"`
	Comment string      `json:"comment" binding:"max=500"`
}

// CancelRequest carries an optional cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RefundRequest carries an optional refund note
type RefundRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page     int         `form:"page,default=1" binding:"min=1"`
	Limit    int         `form:"limit,default=20" binding:"min=1,max=100"`
	Status   OrderStatus `form:"status"`
	UserID   uint        `form:"user_id"`
	DateFrom string      `form:"date_from"` // 2006-01-02
	DateTo   string      `form:"date_to"`   // inclusive
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order            `json:"orders"`
	Pagination product.Pagination `json:"pagination"`
}

// CreateOrder turns the buyer's cart into an order. Validation, stock
// decrements, the order rows and clearing the cart share one transaction,
// which is retried when a guarded write loses a race.
func (s *Service) CreateOrder(ctx context.Context, buyer Actor, req *CreateOrderRequest) (*Order, error) {
	if err := validateAddress("shipping", req.ShippingAddress); err != nil {
		return nil, err
	}
	if req.BillingAddress != nil {
		if err := validateAddress("billing", *req.BillingAddress); err != nil {
			return nil, err
		}
	}

	var order *Order
	err := txretry.Do(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			order, err = s.createTx(ctx, tx, buyer, req)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderCreated()
	logrus.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      buyer.UserID,
		"total":        order.Total.StringFixed(2),
	}).Info("order created")

	s.notify(ctx, func(ctx context.Context) error { return s.notifier.OrderPlaced(ctx, order) })
	return order, nil
}

func (s *Service) createTx(ctx context.Context, tx *gorm.DB, buyer Actor, req *CreateOrderRequest) (*Order, error) {
	c, err := cart.LoadTx(ctx, tx, buyer.UserID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, apperror.Validation("cart is empty")
	}

	ids := make([]uint, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ProductID
	}
	products, err := product.LoadByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(c.Items))
	items := make([]OrderItem, 0, len(c.Items))
	for _, ci := range c.Items {
		p, ok := products[ci.ProductID]
		if !ok {
			return nil, apperror.Validation(fmt.Sprintf("%s is no longer available", ci.Name)).
				WithDetails(map[string]any{"product_id": ci.ProductID})
		}
		if err := p.CheckQuantity(ci.Quantity); err != nil {
			return nil, err
		}
		unit := p.UnitPrice(ci.Quantity)
		lines = append(lines, pricing.Line{UnitPrice: unit, Quantity: ci.Quantity, WeightGrams: p.Weight})
		items = append(items, OrderItem{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Image:     p.Image,
			Quantity:  ci.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(ci.Quantity))).Round(2),
		})
	}

	quote, err := s.calculator.Quote(lines, req.DiscountCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	number := generateOrderNumber(now)
	for _, item := range items {
		_, err := s.inventory.ApplyTx(ctx, tx, inventory.Change{
			ProductID: item.ProductID,
			Type:      inventory.AdjustmentDecrease,
			Quantity:  item.Quantity,
			Reason:    "order " + number,
			Reference: "order:" + number,
			UserID:    buyer.UserID,
		})
		if err != nil {
			return nil, err
		}
	}

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	order := &Order{
		OrderNumber:     number,
		UserID:          buyer.UserID,
		Email:           buyer.Email,
		Status:          OrderStatusPending,
		Subtotal:        quote.Subtotal,
		Tax:             quote.Tax,
		Shipping:        quote.Shipping,
		Discount:        quote.Discount,
		Total:           quote.Total,
		TaxRate:         quote.TaxRate,
		Currency:        quote.Currency,
		WeightGrams:     quote.TotalWeightGrams,
		ShippingAddress: normalizeAddress(req.ShippingAddress),
		BillingAddress:  normalizeAddress(billing),
		Payment:         simulatePayment(req.PaymentMethod, now),
		Notes:           strings.TrimSpace(req.Notes),
		Items:           items,
		StatusHistory: []OrderStatusHistory{{
			Status:    OrderStatusPending,
			Comment:   "order placed",
			CreatedBy: buyer.UserID,
		}},
	}
	if quote.AppliedDiscount != nil {
		order.DiscountCode = quote.AppliedDiscount.Code
	}

	if err := tx.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.carts.ClearTx(ctx, tx, c); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder returns an order visible to the actor
func (s *Service) GetOrder(ctx context.Context, id uint, actor Actor) (*Order, error) {
	order, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !order.IsOwnedBy(actor.UserID) {
		return nil, apperror.NotFound("order not found")
	}
	return order, nil
}

// GetOrderByNumber resolves an order by its public number
func (s *Service) GetOrderByNumber(ctx context.Context, number string, actor Actor) (*Order, error) {
	var o Order
	err := s.db.WithContext(ctx).Select("id").Where("order_number = ?", number).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return s.GetOrder(ctx, o.ID, actor)
}

// GetUserOrders lists the buyer's own orders
func (s *Service) GetUserOrders(ctx context.Context, userID uint, req *OrderListRequest) (*OrderResponse, error) {
	scoped := *req
	scoped.UserID = userID
	return s.GetOrders(ctx, &scoped)
}

// GetOrders lists orders with filtering and pagination
func (s *Service) GetOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{})
	if req.Status != "" {
		if !req.Status.Valid() {
			return nil, apperror.Validation(fmt.Sprintf("invalid order status %q", req.Status))
		}
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.DateFrom != "" {
		from, err := time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			return nil, apperror.Validation("date_from must be YYYY-MM-DD")
		}
		query = query.Where("created_at >= ?", from)
	}
	if req.DateTo != "" {
		to, err := time.Parse("2006-01-02", req.DateTo)
		if err != nil {
			return nil, apperror.Validation("date_to must be YYYY-MM-DD")
		}
		query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	err := query.
		Preload("Items").
		Order("created_at DESC, id DESC").
		Offset((req.Page - 1) * req.Limit).
		Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return &OrderResponse{
		Orders:     orders,
		Pagination: product.NewPagination(req.Page, req.Limit, total),
	}, nil
}

// UpdateStatus moves an order along the transition table. Cancellation
// delegates to Cancel so stock is restored; refunds must use Refund.
func (s *Service) UpdateStatus(ctx context.Context, id uint, req *UpdateStatusRequest, admin Actor) (*Order, error) {
	switch req.Status {
	case OrderStatusCancelled:
		return s.Cancel(ctx, id, &CancelRequest{Reason: req.Comment}, admin)
	case OrderStatusRefunded:
		return nil, apperror.InvalidState("use the refund operation to refund an order")
	}

	var (
		order    *Order
		previous OrderStatus
	)
	err := txretry.Do(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := CheckTransition(current.Status, req.Status); err != nil {
				return err
			}
			previous = current.Status

			now := s.now()
			updates := map[string]interface{}{"status": req.Status}
			switch req.Status {
			case OrderStatusProcessing:
				updates["processed_at"] = now
			case OrderStatusShipped:
				updates["shipped_at"] = now
			case OrderStatusDelivered:
				updates["delivered_at"] = now
				if current.Payment.Method == PaymentMethodCOD && current.Payment.Status == PaymentStatusPending {
					updates["payment_status"] = PaymentStatusPaid
					updates["payment_paid_at"] = now
				}
			}

			if err := s.transitionTx(ctx, tx, current, updates, req.Comment, admin.UserID); err != nil {
				return err
			}
			order, err = s.load(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, order, previous, admin)
	return order, nil
}

// Cancel cancels a pending or processing order and restores its stock in
// the same transaction.
func (s *Service) Cancel(ctx context.Context, id uint, req *CancelRequest, actor Actor) (*Order, error) {
	var (
		order    *Order
		previous OrderStatus
	)
	err := txretry.Do(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if !actor.IsAdmin && !current.IsOwnedBy(actor.UserID) {
				return apperror.NotFound("order not found")
			}
			if !CanTransition(current.Status, OrderStatusCancelled) {
				return apperror.InvalidState(fmt.Sprintf("order cannot be cancelled once %s", current.Status)).
					WithDetails(map[string]any{"status": current.Status})
			}
			previous = current.Status

			reason := strings.TrimSpace(req.Reason)
			if reason == "" {
				reason = "cancelled by customer"
				if actor.IsAdmin {
					reason = "cancelled by admin"
				}
			}
			updates := map[string]interface{}{
				"status":        OrderStatusCancelled,
				"cancelled_at":  s.now(),
				"cancel_reason": reason,
			}
			if err := s.transitionTx(ctx, tx, current, updates, reason, actor.UserID); err != nil {
				return err
			}

			for _, item := range current.Items {
				_, err := s.inventory.ApplyTx(ctx, tx, inventory.Change{
					ProductID: item.ProductID,
					Type:      inventory.AdjustmentIncrease,
					Quantity:  item.Quantity,
					Reason:    "order " + current.OrderNumber + " cancelled",
					Reference: "order:" + current.OrderNumber,
					UserID:    actor.UserID,
				})
				if err != nil {
					return err
				}
			}

			order, err = s.load(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, order, previous, actor)
	return order, nil
}

// Refund marks a paid delivered or cancelled order as refunded
func (s *Service) Refund(ctx context.Context, id uint, req *RefundRequest, admin Actor) (*Order, error) {
	var (
		order    *Order
		previous OrderStatus
	)
	err := txretry.Do(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := CheckTransition(current.Status, OrderStatusRefunded); err != nil {
				return err
			}
			if current.Payment.Status != PaymentStatusPaid {
				return apperror.InvalidState("only paid orders can be refunded").
					WithDetails(map[string]any{"payment_status": current.Payment.Status})
			}
			previous = current.Status

			comment := strings.TrimSpace(req.Reason)
			if comment == "" {
				comment = "payment refunded"
			}
			updates := map[string]interface{}{
				"status":         OrderStatusRefunded,
				"payment_status": PaymentStatusRefunded,
				"refunded_at":    s.now(),
			}
			if err := s.transitionTx(ctx, tx, current, updates, comment, admin.UserID); err != nil {
				return err
			}
			order, err = s.load(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, order, previous, admin)
	return order, nil
}

// DeleteOrder hard-deletes a cancelled order with its items and history
func (s *Service) DeleteOrder(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := tx.Select("id", "status").First(&o, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("order not found")
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}
		if o.Status != OrderStatusCancelled {
			return apperror.InvalidState("only cancelled orders can be deleted").
				WithDetails(map[string]any{"status": o.Status})
		}

		if err := tx.Where("order_id = ?", id).Delete(&OrderItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
		if err := tx.Where("order_id = ?", id).Delete(&OrderStatusHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete order history: %w", err)
		}
		res := tx.Where("id = ? AND status = ?", id, OrderStatusCancelled).Delete(&Order{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return txretry.Conflict("order")
		}
		logrus.WithField("order_id", id).Info("order deleted")
		return nil
	})
}

// Wait blocks until in-flight notifications finish
func (s *Service) Wait() {
	s.pending.Wait()
}

// transitionTx applies updates only if the order still has the status that
// was read, then appends a history row.
func (s *Service) transitionTx(ctx context.Context, tx *gorm.DB, current *Order, updates map[string]interface{}, comment string, by uint) error {
	res := tx.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", current.ID, current.Status).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		s.metrics.IncLockConflict("order")
		return txretry.Conflict("order")
	}

	history := OrderStatusHistory{
		OrderID:    current.ID,
		FromStatus: current.Status,
		Status:     updates["status"].(OrderStatus),
		Comment:    comment,
		CreatedBy:  by,
	}
	if err := tx.WithContext(ctx).Create(&history).Error; err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}

func (s *Service) afterTransition(ctx context.Context, order *Order, previous OrderStatus, actor Actor) {
	s.metrics.IncStatusTransition(string(order.Status))
	logrus.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"from":         previous,
		"to":           order.Status,
		"by":           actor.UserID,
	}).Info("order status changed")

	s.notify(ctx, func(ctx context.Context) error { return s.notifier.OrderStatusChanged(ctx, order, previous) })
}

// notify runs fn in the background, detached from the request context
func (s *Service) notify(ctx context.Context, fn func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := fn(nctx); err != nil {
			logrus.WithError(err).Warn("order notification failed")
		}
	}()
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id uint) (*Order, error) {
	var o Order
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// generateOrderNumber returns ORD-YYYYMMDD-XXXXXXXX
func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// simulatePayment settles card and upi immediately; cod is paid on delivery
func simulatePayment(method PaymentMethod, now time.Time) PaymentInfo {
	if method == PaymentMethodCOD {
		return PaymentInfo{Method: method, Status: PaymentStatusPending}
	}
	return PaymentInfo{
		Method:    method,
		Status:    PaymentStatusPaid,
		Reference: "SIM-" + uuid.NewString(),
		PaidAt:    &now,
	}
}

func validateAddress(kind string, a Address) error {
	missing := []string{}
	for field, v := range map[string]string{
		"full_name":   a.FullName,
		"line1":       a.Line1,
		"city":        a.City,
		"postal_code": a.PostalCode,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperror.Validation(kind+" address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func normalizeAddress(a Address) Address {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "IN"
	}
	return a
}
