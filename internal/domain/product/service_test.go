package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
	"github.com/your-org/marketplace-api/internal/testutil"
	"gorm.io/gorm"
)

type recordedStock struct {
	productID uint
	stock     int
	userID    uint
}

type fakeStockRecorder struct {
	calls []recordedStock
}

func (f *fakeStockRecorder) RecordInitialStock(_ context.Context, _ *gorm.DB, p *Product, userID uint) error {
	f.calls = append(f.calls, recordedStock{productID: p.ID, stock: p.Stock, userID: userID})
	return nil
}

type productFixture struct {
	db         *gorm.DB
	svc        *Service
	categories *CategoryService
	stock      *fakeStockRecorder
	category   *Category
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	db := testutil.NewDB(t, &Category{}, &Product{}, &PriceBreak{})
	cfg := testutil.Config(t)
	categories := NewCategoryService(db, cfg, nil)
	stock := &fakeStockRecorder{}
	cat, err := categories.CreateCategory(context.Background(), &CategoryCreateRequest{Name: "Gadgets"})
	require.NoError(t, err)
	return &productFixture{
		db:         db,
		svc:        NewService(db, cfg, categories, stock),
		categories: categories,
		stock:      stock,
		category:   cat,
	}
}

func (f *productFixture) create(t *testing.T, sku, name string, price string, stock int) *Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), &ProductCreateRequest{
		SKU:        sku,
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: f.category.ID,
	}, 1)
	require.NoError(t, err)
	return p
}

func TestCreateProductRecordsStockAndRefreshesCount(t *testing.T) {
	f := newProductFixture(t)

	p := f.create(t, "gad-001", "Smart Plug", "24.99", 12)
	assert.Equal(t, "GAD-001", p.SKU)
	assert.Equal(t, "smart-plug", p.Slug)
	assert.Equal(t, 1, p.MinOrderQuantity)
	assert.True(t, p.IsActive)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("24.99")))

	require.Len(t, f.stock.calls, 1)
	assert.Equal(t, recordedStock{productID: p.ID, stock: 12, userID: 1}, f.stock.calls[0])

	cat, err := f.categories.GetCategory(context.Background(), f.category.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.ProductCount)

	f.create(t, "GAD-002", "Empty Box", "5", 0)
	assert.Len(t, f.stock.calls, 1, "zero opening stock writes no ledger entry")
}

func TestCreateProductDuplicateSKUConflicts(t *testing.T) {
	f := newProductFixture(t)
	f.create(t, "GAD-001", "Smart Plug", "24.99", 1)

	_, err := f.svc.CreateProduct(context.Background(), &ProductCreateRequest{
		SKU: "gad-001", Name: "Other", Price: decimal.NewFromInt(3), CategoryID: f.category.ID,
	}, 1)
	require.Error(t, err)
	assert.Equal(t, 409, apperror.As(err).HTTPStatus())
}

func TestCreateProductValidation(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProduct(ctx, &ProductCreateRequest{
		SKU: "X-1", Name: "Free", Price: decimal.Zero, CategoryID: f.category.ID,
	}, 1)
	assert.ErrorContains(t, err, "price must be greater than zero")

	_, err = f.svc.CreateProduct(ctx, &ProductCreateRequest{
		SKU: "X-2", Name: "Limits", Price: decimal.NewFromInt(5), CategoryID: f.category.ID,
		MinOrderQuantity: 5, MaxOrderQuantity: 2,
	}, 1)
	assert.ErrorContains(t, err, "max_order_quantity")

	_, err = f.svc.CreateProduct(ctx, &ProductCreateRequest{
		SKU: "X-3", Name: "Nowhere", Price: decimal.NewFromInt(5), CategoryID: 999,
	}, 1)
	assert.ErrorContains(t, err, "category not found")

	_, err = f.svc.CreateProduct(ctx, &ProductCreateRequest{
		SKU: "X-4", Name: "Bulk", Price: decimal.NewFromInt(5), CategoryID: f.category.ID,
		PriceBreaks: []PriceBreakInput{{Quantity: 10, Price: decimal.NewFromInt(6)}},
	}, 1)
	assert.ErrorContains(t, err, "cannot exceed the base price")
}

func TestCreateProductRequiresCategoryAttributes(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	shirts, err := f.categories.CreateCategory(ctx, &CategoryCreateRequest{
		Name: "Shirts",
		Attributes: []CategoryAttribute{
			{Name: "size", Type: AttributeSelect, Options: []string{"S", "M", "L"}, Required: true},
			{Name: "chest_cm", Type: AttributeNumber},
		},
	})
	require.NoError(t, err)

	req := &ProductCreateRequest{SKU: "TEE-1", Name: "Tee", Price: decimal.NewFromInt(15), CategoryID: shirts.ID}
	_, err = f.svc.CreateProduct(ctx, req, 1)
	require.Error(t, err)
	assert.Equal(t, map[string]any{"missing": []string{"size"}}, apperror.As(err).Details())

	req.Specifications = map[string]interface{}{"size": "XL"}
	_, err = f.svc.CreateProduct(ctx, req, 1)
	assert.ErrorContains(t, err, "must be one of")

	req.Specifications = map[string]interface{}{"size": "m", "chest_cm": "wide"}
	_, err = f.svc.CreateProduct(ctx, req, 1)
	assert.ErrorContains(t, err, "must be a number")

	req.Specifications = map[string]interface{}{"size": "m", "chest_cm": 102.5}
	p, err := f.svc.CreateProduct(ctx, req, 1)
	require.NoError(t, err)
	assert.Equal(t, "m", p.Specifications["size"])
}

func TestUnitPriceUsesLargestApplicableBreak(t *testing.T) {
	p := &Product{
		Price: decimal.NewFromInt(100),
		PriceBreaks: []PriceBreak{
			{Quantity: 10, Price: decimal.NewFromInt(80)},
			{Quantity: 5, Price: decimal.NewFromInt(90)},
		},
	}

	assert.True(t, p.UnitPrice(1).Equal(decimal.NewFromInt(100)))
	assert.True(t, p.UnitPrice(4).Equal(decimal.NewFromInt(100)))
	assert.True(t, p.UnitPrice(5).Equal(decimal.NewFromInt(90)))
	assert.True(t, p.UnitPrice(9).Equal(decimal.NewFromInt(90)))
	assert.True(t, p.UnitPrice(10).Equal(decimal.NewFromInt(80)))
	assert.True(t, p.UnitPrice(250).Equal(decimal.NewFromInt(80)))
}

func TestCheckQuantity(t *testing.T) {
	p := &Product{ID: 7, Name: "Widget", IsActive: true, Stock: 10, MinOrderQuantity: 2, MaxOrderQuantity: 6}

	assert.NoError(t, p.CheckQuantity(2))
	assert.NoError(t, p.CheckQuantity(6))
	assert.ErrorContains(t, p.CheckQuantity(1), "minimum order quantity")
	assert.ErrorContains(t, p.CheckQuantity(7), "maximum order quantity")

	p.MaxOrderQuantity = 0
	err := p.CheckQuantity(11)
	assert.ErrorContains(t, err, "insufficient stock")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	p.IsActive = false
	assert.ErrorContains(t, p.CheckQuantity(2), "no longer available")
}

func TestUpdateProductReplacesPriceBreaksAndKeepsStock(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreateProduct(ctx, &ProductCreateRequest{
		SKU: "CBL-1", Name: "USB Cable", Price: decimal.NewFromInt(10), Stock: 40, CategoryID: f.category.ID,
		PriceBreaks: []PriceBreakInput{{Quantity: 10, Price: decimal.NewFromInt(8)}},
	}, 1)
	require.NoError(t, err)
	require.Len(t, p.PriceBreaks, 1)

	name := "USB-C Cable"
	breaks := []PriceBreakInput{
		{Quantity: 20, Price: decimal.NewFromInt(7)},
		{Quantity: 5, Price: decimal.NewFromInt(9)},
	}
	updated, err := f.svc.UpdateProduct(ctx, p.ID, &ProductUpdateRequest{Name: &name, PriceBreaks: &breaks})
	require.NoError(t, err)

	assert.Equal(t, "usb-c-cable", updated.Slug)
	assert.Equal(t, 40, updated.Stock)
	assert.Equal(t, p.Version+1, updated.Version)
	require.Len(t, updated.PriceBreaks, 2)
	assert.Equal(t, 5, updated.PriceBreaks[0].Quantity)
	assert.True(t, updated.UnitPrice(25).Equal(decimal.NewFromInt(7)))

	cheaper := decimal.NewFromInt(6)
	_, err = f.svc.UpdateProduct(ctx, p.ID, &ProductUpdateRequest{Price: &cheaper})
	assert.ErrorContains(t, err, "cannot exceed the base price")
}

func TestUpdateProductMovesCategoryCounts(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	other, err := f.categories.CreateCategory(ctx, &CategoryCreateRequest{Name: "Audio"})
	require.NoError(t, err)
	p := f.create(t, "SPK-1", "Speaker", "50", 3)

	_, err = f.svc.UpdateProduct(ctx, p.ID, &ProductUpdateRequest{CategoryID: &other.ID})
	require.NoError(t, err)

	from, err := f.categories.GetCategory(ctx, f.category.ID)
	require.NoError(t, err)
	to, err := f.categories.GetCategory(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, from.ProductCount)
	assert.Equal(t, 1, to.ProductCount)
}

func TestDeleteProductIsSoft(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	p := f.create(t, "LMP-1", "Desk Lamp", "30", 2)

	require.NoError(t, f.svc.DeleteProduct(ctx, p.ID))

	_, err := f.svc.GetProduct(ctx, p.ID, false)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	still, err := f.svc.GetProduct(ctx, p.ID, true)
	require.NoError(t, err)
	assert.False(t, still.IsActive)

	cat, err := f.categories.GetCategory(ctx, f.category.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cat.ProductCount)

	assert.True(t, apperror.IsCode(f.svc.DeleteProduct(ctx, 999), apperror.CodeNotFound))
}

func TestGetProductsFilters(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	sub, err := f.categories.CreateCategory(ctx, &CategoryCreateRequest{Name: "Wearables", ParentID: &f.category.ID})
	require.NoError(t, err)

	f.create(t, "A-1", "Alpha Watch", "120", 4)
	f.create(t, "A-2", "Beta Hub", "40", 0)
	_, err = f.svc.CreateProduct(ctx, &ProductCreateRequest{
		SKU: "A-3", Name: "Gamma Band", Price: decimal.NewFromInt(60), Stock: 9, CategoryID: sub.ID,
	}, 1)
	require.NoError(t, err)
	hidden := f.create(t, "A-4", "Hidden Watch", "10", 1)
	require.NoError(t, f.svc.DeleteProduct(ctx, hidden.ID))

	res, err := f.svc.GetProducts(ctx, &ProductListRequest{Page: 1, Limit: 10, Search: "watch"})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "Alpha Watch", res.Products[0].Name)

	res, err = f.svc.GetProducts(ctx, &ProductListRequest{Page: 1, Limit: 10, Search: "watch", IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, res.Products, 2)

	res, err = f.svc.GetProducts(ctx, &ProductListRequest{Page: 1, Limit: 10, CategoryID: f.category.ID})
	require.NoError(t, err)
	assert.Len(t, res.Products, 2)

	res, err = f.svc.GetProducts(ctx, &ProductListRequest{Page: 1, Limit: 10, CategoryID: f.category.ID, IncludeSubcategories: true})
	require.NoError(t, err)
	assert.Len(t, res.Products, 3)

	inStock := true
	res, err = f.svc.GetProducts(ctx, &ProductListRequest{Page: 1, Limit: 10, InStock: &inStock, MinPrice: 50})
	require.NoError(t, err)
	assert.Len(t, res.Products, 2)

	res, err = f.svc.GetProducts(ctx, &ProductListRequest{Page: 2, Limit: 2, SortBy: "price", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Pagination.Total)
	assert.Equal(t, 2, res.Pagination.TotalPages)
	assert.True(t, res.Pagination.HasPrev)
	assert.False(t, res.Pagination.HasNext)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "Alpha Watch", res.Products[0].Name)
}
