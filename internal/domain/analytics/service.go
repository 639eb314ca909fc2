// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/order"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/domain/user"
	"gorm.io/gorm"
)

const (
	defaultSalesDays = 30
	maxSalesDays     = 365
	defaultTopLimit  = 10
	maxTopLimit      = 100
	dateLayout       = "2006-01-02"
)

// excludedStatuses never count toward revenue
var excludedStatuses = []order.OrderStatus{order.OrderStatusCancelled, order.OrderStatusRefunded}

// Service handles admin reporting
type Service struct {
	db     *gorm.DB
	config *config.Config
	now    func() time.Time
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DashboardStats represents overall dashboard statistics
type DashboardStats struct {
	// Sales metrics
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	RevenueToday  decimal.Decimal `json:"revenue_today"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	Currency      string          `json:"currency"`

	// Order metrics
	TotalOrders    int64                       `json:"total_orders"`
	OrdersToday    int64                       `json:"orders_today"`
	OrdersByStatus map[order.OrderStatus]int64 `json:"orders_by_status"`

	// Catalog and customers
	TotalUsers         int64 `json:"total_users"`
	ActiveProducts     int64 `json:"active_products"`
	LowStockProducts   int64 `json:"low_stock_products"`
	OutOfStockProducts int64 `json:"out_of_stock_products"`
}

// DailySales is one day of revenue
type DailySales struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

// SalesReport is revenue per day over a window
type SalesReport struct {
	Days         int             `json:"days"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalOrders  int64           `json:"total_orders"`
	Daily        []DailySales    `json:"daily"`
}

// ProductSales is one row of the top products report
type ProductSales struct {
	ProductID  uint            `json:"product_id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	TotalSold  int64           `json:"total_sold"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int64           `json:"order_count"`
}

type revenueRow struct {
	Revenue decimal.Decimal
	Orders  int64
}

// GetDashboardStats retrieves overall dashboard statistics
func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		Currency:       s.config.Pricing.Currency,
		OrdersByStatus: make(map[order.OrderStatus]int64),
	}
	db := s.db.WithContext(ctx)
	today := startOfDay(s.now())

	total, err := s.revenue(db, time.Time{})
	if err != nil {
		return nil, err
	}
	stats.TotalRevenue = total.Revenue
	if total.Orders > 0 {
		stats.AvgOrderValue = total.Revenue.Div(decimal.NewFromInt(total.Orders)).Round(2)
	}

	daily, err := s.revenue(db, today)
	if err != nil {
		return nil, err
	}
	stats.RevenueToday = daily.Revenue

	for _, st := range order.Statuses() {
		stats.OrdersByStatus[st] = 0
	}
	var counts []struct {
		Status order.OrderStatus
		Count  int64
	}
	err = db.Model(&order.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	for _, c := range counts {
		stats.OrdersByStatus[c.Status] = c.Count
		stats.TotalOrders += c.Count
	}

	if err := db.Model(&order.Order{}).Where("created_at >= ?", today).Count(&stats.OrdersToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's orders: %w", err)
	}

	if err := db.Model(&user.User{}).Where("is_active = ? AND is_admin = ?", true, false).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	products := db.Model(&product.Product{}).Where("is_active = ?", true)
	if err := products.Session(&gorm.Session{}).Count(&stats.ActiveProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := products.Session(&gorm.Session{}).Where("stock = 0").Count(&stats.OutOfStockProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count out of stock products: %w", err)
	}
	err = products.Session(&gorm.Session{}).
		Where("stock > 0 AND stock <= low_stock_threshold").
		Count(&stats.LowStockProducts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}

	return stats, nil
}

// GetSalesReport returns revenue per day for the last days days, today
// included. Days without orders are reported with zero revenue.
func (s *Service) GetSalesReport(ctx context.Context, days int) (*SalesReport, error) {
	if days <= 0 {
		days = defaultSalesDays
	}
	if days > maxSalesDays {
		days = maxSalesDays
	}

	end := startOfDay(s.now())
	start := end.AddDate(0, 0, -(days - 1))

	var rows []struct {
		CreatedAt time.Time
		Total     decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&order.Order{}).
		Select("created_at, total").
		Where("created_at >= ? AND status NOT IN ?", start, excludedStatuses).
		Order("created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	report := &SalesReport{
		Days:  days,
		From:  start.Format(dateLayout),
		To:    end.Format(dateLayout),
		Daily: make([]DailySales, days),
	}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		report.Daily[i] = DailySales{Date: date, Revenue: decimal.Zero}
		index[date] = i
	}
	for _, r := range rows {
		i, ok := index[r.CreatedAt.UTC().Format(dateLayout)]
		if !ok {
			continue
		}
		report.Daily[i].Revenue = report.Daily[i].Revenue.Add(r.Total)
		report.Daily[i].Orders++
		report.TotalRevenue = report.TotalRevenue.Add(r.Total)
		report.TotalOrders++
	}
	return report, nil
}

// GetTopProducts ranks products by quantity sold in non-cancelled,
// non-refunded orders over the last days days. days <= 0 means all time.
func (s *Service) GetTopProducts(ctx context.Context, days, limit int) ([]ProductSales, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	query := s.db.WithContext(ctx).Table("order_items AS oi").
		Select(`oi.product_id, MAX(oi.sku) AS sku, MAX(oi.name) AS name,
			SUM(oi.quantity) AS total_sold, SUM(oi.line_total) AS revenue,
			COUNT(DISTINCT oi.order_id) AS order_count`).
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.status NOT IN ?", excludedStatuses)
	if days > 0 {
		query = query.Where("o.created_at >= ?", startOfDay(s.now()).AddDate(0, 0, -(days-1)))
	}

	var top []ProductSales
	err := query.
		Group("oi.product_id").
		Order("total_sold DESC, revenue DESC, oi.product_id").
		Limit(limit).
		Scan(&top).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank products: %w", err)
	}
	for i := range top {
		top[i].Revenue = top[i].Revenue.Round(2)
	}
	return top, nil
}

// revenue sums order totals created at or after since; a zero since means all time
func (s *Service) revenue(db *gorm.DB, since time.Time) (revenueRow, error) {
	var row revenueRow
	query := db.Model(&order.Order{}).
		Select("COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS orders").
		Where("status NOT IN ?", excludedStatuses)
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	err := query.Scan(&row).Error
	if err != nil {
		return row, fmt.Errorf("failed to sum revenue: %w", err)
	}
	row.Revenue = row.Revenue.Round(2)
	return row, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
