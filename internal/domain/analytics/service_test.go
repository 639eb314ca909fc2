package analytics

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/your-org/marketplace-api/internal/domain/order"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/domain/user"
	"github.com/your-org/marketplace-api/internal/testutil"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type reportFixture struct {
	db  *gorm.DB
	svc *Service
	seq int
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	db := testutil.NewDB(t,
		&user.User{},
		&product.Category{}, &product.Product{}, &product.PriceBreak{},
		&order.Order{}, &order.OrderItem{},
	)
	svc := NewService(db, testutil.Config(t))
	svc.now = func() time.Time { return fixedNow }
	return &reportFixture{db: db, svc: svc}
}

func (f *reportFixture) product(t *testing.T, sku string, categoryID uint, stock, threshold int, active bool) *product.Product {
	t.Helper()
	p := &product.Product{
		SKU:               sku,
		Name:              "Item " + sku,
		Slug:              "item-" + sku,
		Price:             decimal.RequireFromString("49.50"),
		Stock:             stock,
		LowStockThreshold: threshold,
		CategoryID:        categoryID,
		IsActive:          true,
	}
	require.NoError(t, f.db.Create(p).Error)
	if !active {
		require.NoError(t, f.db.Model(p).Update("is_active", false).Error)
	}
	return p
}

// order inserts a finished order with one line per item
func (f *reportFixture) order(t *testing.T, status order.OrderStatus, total string, at time.Time, items ...order.OrderItem) {
	t.Helper()
	f.seq++
	o := &order.Order{
		OrderNumber: "ORD-TEST-" + string(rune('A'+f.seq)),
		UserID:      1,
		Status:      status,
		Subtotal:    decimal.RequireFromString(total),
		Tax:         decimal.Zero,
		Shipping:    decimal.Zero,
		Discount:    decimal.Zero,
		Total:       decimal.RequireFromString(total),
		Currency:    "INR",
		CreatedAt:   at,
		Items:       items,
	}
	require.NoError(t, f.db.Create(o).Error)
}

func line(productID uint, sku string, qty int, total string) order.OrderItem {
	return order.OrderItem{
		ProductID: productID,
		SKU:       sku,
		Name:      "Item " + sku,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(total).Div(decimal.NewFromInt(int64(qty))),
		LineTotal: decimal.RequireFromString(total),
	}
}

func TestDashboardStats(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&user.User{Email: "a@example.com", Password: "x", IsActive: true}).Error)
	require.NoError(t, f.db.Create(&user.User{Email: "admin@example.com", Password: "x", IsActive: true, IsAdmin: true}).Error)

	f.product(t, "P-1", 1, 0, 5, true)
	f.product(t, "P-2", 1, 3, 5, true)
	f.product(t, "P-3", 1, 40, 5, true)
	f.product(t, "P-4", 1, 0, 5, false)

	yesterday := fixedNow.AddDate(0, 0, -1)
	f.order(t, order.OrderStatusDelivered, "100.00", yesterday)
	f.order(t, order.OrderStatusPending, "50.50", fixedNow.Add(-time.Hour))
	f.order(t, order.OrderStatusCancelled, "999.00", fixedNow.Add(-time.Hour))
	f.order(t, order.OrderStatusRefunded, "20.00", yesterday)

	stats, err := f.svc.GetDashboardStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, "150.5", stats.TotalRevenue.String())
	assert.Equal(t, "50.5", stats.RevenueToday.String())
	assert.Equal(t, "75.25", stats.AvgOrderValue.String())
	assert.Equal(t, int64(4), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.OrdersToday)
	assert.Equal(t, int64(1), stats.OrdersByStatus[order.OrderStatusCancelled])
	assert.Equal(t, int64(0), stats.OrdersByStatus[order.OrderStatusShipped])
	assert.Len(t, stats.OrdersByStatus, len(order.Statuses()))
	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.ActiveProducts)
	assert.Equal(t, int64(1), stats.OutOfStockProducts)
	assert.Equal(t, int64(1), stats.LowStockProducts)
}

func TestSalesReportFillsEmptyDays(t *testing.T) {
	f := newReportFixture(t)

	f.order(t, order.OrderStatusDelivered, "10.00", fixedNow.AddDate(0, 0, -2))
	f.order(t, order.OrderStatusShipped, "15.00", fixedNow.AddDate(0, 0, -2).Add(time.Hour))
	f.order(t, order.OrderStatusPending, "7.25", fixedNow)
	f.order(t, order.OrderStatusCancelled, "500.00", fixedNow)
	f.order(t, order.OrderStatusDelivered, "1000.00", fixedNow.AddDate(0, 0, -10))

	report, err := f.svc.GetSalesReport(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "2026-10-08", report.From)
	assert.Equal(t, "2026-10-14", report.To)
	require.Len(t, report.Daily, 7)
	assert.Equal(t, "2026-10-12", report.Daily[4].Date)
	assert.True(t, report.Daily[4].Revenue.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, int64(2), report.Daily[4].Orders)
	assert.True(t, report.Daily[5].Revenue.IsZero())
	assert.True(t, report.Daily[6].Revenue.Equal(decimal.RequireFromString("7.25")))
	assert.True(t, report.TotalRevenue.Equal(decimal.RequireFromString("32.25")))
	assert.Equal(t, int64(3), report.TotalOrders)

	report, err = f.svc.GetSalesReport(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, defaultSalesDays, report.Days)
}

func TestTopProductsByQuantity(t *testing.T) {
	f := newReportFixture(t)
	a := f.product(t, "A", 1, 10, 1, true)
	b := f.product(t, "B", 1, 10, 1, true)
	c := f.product(t, "C", 1, 10, 1, true)

	f.order(t, order.OrderStatusDelivered, "300.00", fixedNow, line(a.ID, "A", 1, "200.00"), line(b.ID, "B", 2, "100.00"))
	f.order(t, order.OrderStatusPending, "150.00", fixedNow, line(b.ID, "B", 3, "150.00"))
	f.order(t, order.OrderStatusCancelled, "900.00", fixedNow, line(c.ID, "C", 9, "900.00"))

	top, err := f.svc.GetTopProducts(context.Background(), 30, 5)
	require.NoError(t, err)
	require.Len(t, top, 2, "cancelled order lines are excluded")

	assert.Equal(t, b.ID, top[0].ProductID)
	assert.Equal(t, int64(5), top[0].TotalSold)
	assert.Equal(t, int64(2), top[0].OrderCount)
	assert.True(t, top[0].Revenue.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "A", top[1].SKU)

	top, err = f.svc.GetTopProducts(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestInventoryReportWorkbook(t *testing.T) {
	f := newReportFixture(t)
	cat := &product.Category{Name: "Tools", Slug: "tools", Level: 1, IsActive: true}
	require.NoError(t, f.db.Create(cat).Error)
	f.product(t, "Z-9", cat.ID, 2, 5, false)
	f.product(t, "A-1", cat.ID, 25, 5, true)

	var buf bytes.Buffer
	require.NoError(t, f.svc.WriteInventoryReport(context.Background(), &buf))

	wb, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	rows := wb.Sheets[0].Rows
	require.Len(t, rows, 3)

	assert.Equal(t, "SKU", rows[0].Cells[0].Value)
	assert.Equal(t, "Low Stock Threshold", rows[0].Cells[4].Value)
	assert.Equal(t, "A-1", rows[1].Cells[0].Value)
	assert.Equal(t, "Tools", rows[1].Cells[2].Value)
	stock, err := rows[1].Cells[3].Int()
	require.NoError(t, err)
	assert.Equal(t, 25, stock)
	assert.Equal(t, "49.50", rows[1].Cells[5].Value)
	assert.True(t, rows[1].Cells[6].Bool())
	assert.Equal(t, "Z-9", rows[2].Cells[0].Value)
	assert.False(t, rows[2].Cells[6].Bool())
}
