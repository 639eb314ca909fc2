package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/order"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/infrastructure/database/postgres"
	"github.com/your-org/marketplace-api/internal/pkg/email"
	"github.com/your-org/marketplace-api/internal/testutil"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type outbox struct {
	mu   sync.Mutex
	sent []*email.Email
}

func (o *outbox) Send(_ context.Context, e *email.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, e)
	return nil
}

func (o *outbox) subjects() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.sent))
	for _, e := range o.sent {
		out = append(out, e.Subject)
	}
	return out
}

type apiFixture struct {
	t      *testing.T
	cfg    *config.Config
	db     *gorm.DB
	server *Server
	outbox *outbox
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)

	db := testutil.NewDB(t)
	cfg := testutil.Config(t)

	migration := postgres.NewMigration(db, log)
	require.NoError(t, migration.RunAutoMigrations(ctx))
	require.NoError(t, migration.CreateIndexes(ctx))

	box := &outbox{}
	emails, err := email.NewEmailServiceWithSender(cfg, box)
	require.NoError(t, err)

	srv, err := NewServer(cfg, Dependencies{
		DB:       db,
		Registry: prometheus.NewRegistry(),
		Log:      log,
		Email:    emails,
	})
	require.NoError(t, err)

	svc := srv.Services()
	seeder := postgres.NewSeeder(db, cfg, log, svc.Categories, svc.Products)
	require.NoError(t, seeder.SeedInitialData(ctx))

	return &apiFixture{t: t, cfg: cfg, db: db, server: srv, outbox: box}
}

type apiResponse struct {
	*httptest.ResponseRecorder
}

func (r apiResponse) decode(t *testing.T, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), dest), r.Body.String())
}

func (r apiResponse) cookie(name string) *http.Cookie {
	for _, c := range r.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (f *apiFixture) call(method, path string, body any, cookies ...*http.Cookie) apiResponse {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return apiResponse{w}
}

func (f *apiFixture) productBySKU(sku string) product.Product {
	f.t.Helper()
	var p product.Product
	require.NoError(f.t, f.db.Where("sku = ?", sku).First(&p).Error)
	return p
}

func (f *apiFixture) registerCustomer(email string) *http.Cookie {
	f.t.Helper()
	resp := f.call(http.MethodPost, "/api/auth/register", gin.H{
		"email":            email,
		"password":         "Sunrise#4821",
		"confirm_password": "Sunrise#4821",
		"first_name":       "Asha",
		"last_name":        "Buyer",
	})
	require.Equal(f.t, http.StatusCreated, resp.Code, resp.Body.String())
	cookie := resp.cookie("userToken")
	require.NotNil(f.t, cookie)
	assert.True(f.t, cookie.HttpOnly)
	return cookie
}

func (f *apiFixture) loginAdmin() *http.Cookie {
	f.t.Helper()
	resp := f.call(http.MethodPost, "/api/admin/login", gin.H{
		"email":    f.cfg.App.SeedAdminEmail,
		"password": f.cfg.App.SeedAdminPassword,
	})
	require.Equal(f.t, http.StatusOK, resp.Code, resp.Body.String())
	cookie := resp.cookie("adminToken")
	require.NotNil(f.t, cookie)
	return cookie
}

var shippingAddress = gin.H{
	"full_name":   "Asha Buyer",
	"phone":       "9876543210",
	"line1":       "12 MG Road",
	"city":        "Bengaluru",
	"state":       "KA",
	"postal_code": "560001",
	"country":     "IN",
}

func TestHealthReadyAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.call(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"healthy"`)

	resp = f.call(http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	resp.decode(t, &ready)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "ok", ready.Checks["database"])
	assert.Equal(t, "disabled", ready.Checks["redis"])

	f.call(http.MethodGet, "/api/products", nil)
	resp = f.call(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `http_requests_total{method="GET",route="/api/products",status="200"}`)
}

func TestUnknownRoutesAndMethodsRenderJSON(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.call(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"route not found","code":"NOT_FOUND"}`, resp.Body.String())

	resp = f.call(http.MethodPatch, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "application/json")
}

func TestRegisterValidationErrors(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.call(http.MethodPost, "/api/auth/register", gin.H{"email": "not-an-email", "password": "x"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	var body struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	resp.decode(t, &body)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "must be a valid email", body.Details["email"])
	assert.Equal(t, "is required", body.Details["first_name"])

	f.registerCustomer("dup@example.com")
	resp = f.call(http.MethodPost, "/api/auth/register", gin.H{
		"email": "dup@example.com", "password": "Sunrise#4821", "confirm_password": "Sunrise#4821",
		"first_name": "A", "last_name": "B",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestAuthProfileAndLogout(t *testing.T) {
	f := newAPIFixture(t)
	session := f.registerCustomer("profile@example.com")

	assert.Equal(t, http.StatusUnauthorized, f.call(http.MethodGet, "/api/auth/profile", nil).Code)

	resp := f.call(http.MethodPut, "/api/auth/profile", gin.H{"first_name": "Meera"}, session)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"first_name":"Meera"`)

	resp = f.call(http.MethodPost, "/api/auth/login", gin.H{"email": "profile@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.call(http.MethodPost, "/api/admin/login", gin.H{"email": "profile@example.com", "password": "Sunrise#4821"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.call(http.MethodPost, "/api/auth/logout", nil, session)
	require.Equal(t, http.StatusOK, resp.Code)
	cleared := resp.cookie("userToken")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestCatalogVisibility(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.loginAdmin()
	customer := f.registerCustomer("browser@example.com")

	resp := f.call(http.MethodGet, "/api/products?limit=50", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Data product.ProductResponse `json:"data"`
	}
	resp.decode(t, &list)
	assert.Equal(t, int64(6), list.Data.Pagination.Total)

	kettle := f.productBySKU("HOME-KETTLE-01")
	resp = f.call(http.MethodDelete, "/api/products/"+strconv.Itoa(int(kettle.ID)), nil, customer)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = f.call(http.MethodDelete, "/api/products/"+strconv.Itoa(int(kettle.ID)), nil, admin)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	assert.Equal(t, http.StatusNotFound, f.call(http.MethodGet, "/api/products/"+strconv.Itoa(int(kettle.ID)), nil).Code)
	assert.Equal(t, http.StatusOK,
		f.call(http.MethodGet, "/api/products/"+strconv.Itoa(int(kettle.ID))+"?include_inactive=true", nil, admin).Code)
	assert.Equal(t, http.StatusNotFound,
		f.call(http.MethodGet, "/api/products/"+strconv.Itoa(int(kettle.ID))+"?include_inactive=true", nil, customer).Code,
		"only admins may see inactive products")

	resp = f.call(http.MethodGet, "/api/products/slug/wireless-earbuds", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.call(http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.call(http.MethodGet, "/api/categories/tree", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var tree struct {
		Data []product.CategoryTree `json:"data"`
	}
	resp.decode(t, &tree)
	assert.Len(t, tree.Data, 3)

	resp = f.call(http.MethodPost, "/api/products", gin.H{
		"sku": "bad sku!", "name": "Broken", "price": "10", "category_id": 1,
	}, admin)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"sku"`)
}

func TestCheckoutLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.loginAdmin()
	customer := f.registerCustomer("checkout@example.com")
	earbuds := f.productBySKU("AUD-EARBUDS-01")
	require.Equal(t, 40, earbuds.Stock)

	resp := f.call(http.MethodPost, "/api/orders/cart/add", gin.H{"product_id": earbuds.ID, "quantity": 2}, customer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = f.call(http.MethodPut, "/api/orders/cart/update", gin.H{"product_id": earbuds.ID, "quantity": 3}, customer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = f.call(http.MethodPost, "/api/orders/cart/add", gin.H{"product_id": earbuds.ID, "quantity": 500}, customer)
	assert.Equal(t, http.StatusBadRequest, resp.Code, "cannot exceed stock")

	resp = f.call(http.MethodPost, "/api/orders/quote", nil, customer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"subtotal":"7497"`)

	resp = f.call(http.MethodPost, "/api/orders/create", gin.H{
		"shipping_address": shippingAddress,
		"payment_method":   "cod",
	}, customer)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created struct {
		Data order.Order `json:"data"`
	}
	resp.decode(t, &created)
	orderPath := "/api/orders/" + strconv.Itoa(int(created.Data.ID))
	assert.Equal(t, order.OrderStatusPending, created.Data.Status)
	assert.Equal(t, 37, f.productBySKU("AUD-EARBUDS-01").Stock)

	resp = f.call(http.MethodGet, "/api/orders/cart", nil, customer)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"items":[]`)

	resp = f.call(http.MethodGet, "/api/orders/my", nil, customer)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), created.Data.OrderNumber)

	resp = f.call(http.MethodGet, orderPath+"/invoice?format=html", nil, customer)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "INV-"+created.Data.OrderNumber)

	stranger := f.registerCustomer("stranger@example.com")
	assert.Equal(t, http.StatusNotFound, f.call(http.MethodGet, orderPath, nil, stranger).Code)
	assert.Equal(t, http.StatusForbidden, f.call(http.MethodGet, "/api/admin/dashboard", nil, customer).Code)

	resp = f.call(http.MethodPatch, "/api/admin/orders/"+strconv.Itoa(int(created.Data.ID))+"/status",
		gin.H{"status": "processing", "comment": "packing"}, admin)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = f.call(http.MethodDelete, "/api/admin/orders/"+strconv.Itoa(int(created.Data.ID)), nil, admin)
	assert.Equal(t, http.StatusBadRequest, resp.Code, "only cancelled orders can be deleted")

	resp = f.call(http.MethodPut, orderPath+"/cancel", nil, customer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 40, f.productBySKU("AUD-EARBUDS-01").Stock)

	resp = f.call(http.MethodPut, orderPath+"/cancel", gin.H{"reason": "again"}, customer)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "INVALID_STATE")

	resp = f.call(http.MethodDelete, "/api/admin/orders/"+strconv.Itoa(int(created.Data.ID)), nil, admin)
	assert.Equal(t, http.StatusOK, resp.Code)

	f.server.Services().Orders.Wait()
	subjects := f.outbox.subjects()
	assert.Contains(t, subjects, "Order Confirmation - "+created.Data.OrderNumber)
	assert.Contains(t, subjects, "Order Update - "+created.Data.OrderNumber)
}

func TestAdminStockAndReports(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.loginAdmin()
	speaker := f.productBySKU("AUD-SPEAKER-01")
	stockPath := strconv.Itoa(int(speaker.ID))

	resp := f.call(http.MethodPatch, "/api/stocks/adjust/"+stockPath,
		gin.H{"type": "shrink", "quantity": 1, "reason": "typo"}, admin)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"type"`)

	resp = f.call(http.MethodPatch, "/api/stocks/adjust/"+stockPath,
		gin.H{"type": "set", "quantity": 12, "reason": "recount"}, admin)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 12, f.productBySKU("AUD-SPEAKER-01").Stock)

	resp = f.call(http.MethodGet, "/api/stocks/history/"+stockPath, nil, admin)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "recount")

	resp = f.call(http.MethodGet, "/api/stocks/history?type=set&limit=1", nil, admin)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "recount")
	assert.Contains(t, resp.Body.String(), `"limit":1`)

	resp = f.call(http.MethodGet, "/api/stocks/low", nil, admin)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "HOME-JAR-SET")

	resp = f.call(http.MethodGet, "/api/admin/dashboard", nil, admin)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"out_of_stock_products":1`)

	resp = f.call(http.MethodGet, "/api/admin/sales?days=7", nil, admin)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = f.call(http.MethodGet, "/api/admin/sales?days=abc", nil, admin)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.call(http.MethodGet, "/api/admin/reports/inventory", nil, admin)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	book, err := xlsx.OpenBinary(resp.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, book.Sheets[0].Rows, 7, "header plus six products")

	resp = f.call(http.MethodGet, "/api/admin/users", nil, admin)
	require.Equal(t, http.StatusOK, resp.Code)

	customer := f.registerCustomer("target@example.com")
	var target struct {
		ID uint
	}
	require.NoError(t, f.db.Table("users").Select("id").Where("email = ?", "target@example.com").Scan(&target).Error)
	resp = f.call(http.MethodPatch, "/api/admin/users/"+strconv.Itoa(int(target.ID))+"/status",
		gin.H{"is_active": false, "reason": "fraud"}, admin)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, http.StatusUnauthorized, f.call(http.MethodGet, "/api/orders/cart", nil, customer).Code,
		"deactivated users lose their session")
}
