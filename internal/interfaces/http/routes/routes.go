// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/interfaces/http/handlers"
	"github.com/your-org/marketplace-api/internal/interfaces/http/middleware"
)

// Handlers bundles everything the /api routes dispatch to
type Handlers struct {
	Auth      *handlers.AuthHandler
	Products  *handlers.ProductHandler
	Category  *handlers.CategoryHandler
	Cart      *handlers.CartHandler
	Orders    *handlers.OrderHandler
	Invoice   *handlers.InvoiceHandler
	Inventory *handlers.InventoryHandler
	Analytics *handlers.AnalyticsHandler
	Users     *handlers.UserAdminHandler
	Sessions  *middleware.Authenticator
}

// SetupRoutes registers every /api route on rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers) {
	SetupAuthRoutes(rg, h)
	SetupProductRoutes(rg, h)
	SetupCategoryRoutes(rg, h)
	SetupOrderRoutes(rg, h)
	SetupStockRoutes(rg, h)
	SetupAdminRoutes(rg, h)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h *Handlers) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.POST("/refresh", h.Auth.RefreshToken)

		protected := auth.Group("")
		protected.Use(h.Sessions.RequireUser())
		{
			protected.GET("/profile", h.Auth.GetProfile)
			protected.PUT("/profile", h.Auth.UpdateProfile)
			protected.PUT("/password", h.Auth.ChangePassword)
		}
	}
}

// SetupProductRoutes sets up product related routes
func SetupProductRoutes(rg *gin.RouterGroup, h *Handlers) {
	products := rg.Group("/products")
	{
		// Optional auth lets admins ask for inactive products
		public := products.Group("")
		public.Use(h.Sessions.Optional())
		{
			public.GET("", h.Products.GetProducts)
			public.GET("/:id", h.Products.GetProduct)
			public.GET("/slug/:slug", h.Products.GetProductBySlug)
		}

		admin := products.Group("")
		admin.Use(h.Sessions.RequireAdmin())
		{
			admin.POST("", h.Products.CreateProduct)
			admin.PUT("/:id", h.Products.UpdateProduct)
			admin.DELETE("/:id", h.Products.DeleteProduct)
		}
	}
}

// SetupCategoryRoutes sets up category related routes
func SetupCategoryRoutes(rg *gin.RouterGroup, h *Handlers) {
	categories := rg.Group("/categories")
	{
		public := categories.Group("")
		public.Use(h.Sessions.Optional())
		{
			public.GET("", h.Category.GetCategories)
			public.GET("/tree", h.Category.GetCategoryTree)
			public.GET("/:id", h.Category.GetCategory)
			public.GET("/:id/breadcrumbs", h.Category.GetBreadcrumbs)
		}

		admin := categories.Group("")
		admin.Use(h.Sessions.RequireAdmin())
		{
			admin.POST("", h.Category.CreateCategory)
			admin.PUT("/:id", h.Category.UpdateCategory)
			admin.DELETE("/:id", h.Category.DeleteCategory)
		}
	}
}

// SetupOrderRoutes sets up cart and order routes; all require a session
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers) {
	orders := rg.Group("/orders")
	orders.Use(h.Sessions.RequireUser())
	{
		cart := orders.Group("/cart")
		{
			cart.GET("", h.Cart.GetCart)
			cart.POST("/add", h.Cart.AddToCart)
			cart.PUT("/update", h.Cart.UpdateCartItem)
			cart.DELETE("/remove/:productId", h.Cart.RemoveFromCart)
			cart.DELETE("/clear", h.Cart.ClearCart)
		}

		orders.POST("/quote", h.Cart.Quote)
		orders.POST("/create", h.Orders.CreateOrder)
		orders.GET("/my", h.Orders.GetMyOrders)
		orders.GET("/number/:number", h.Orders.GetOrderByNumber)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.PUT("/:id/cancel", h.Orders.CancelOrder)
		orders.GET("/:id/invoice", h.Invoice.GenerateInvoice)
	}
}

// SetupStockRoutes sets up the admin stock ledger routes
func SetupStockRoutes(rg *gin.RouterGroup, h *Handlers) {
	stocks := rg.Group("/stocks")
	stocks.Use(h.Sessions.RequireAdmin())
	{
		stocks.PATCH("/adjust/:id", h.Inventory.AdjustStock)
		stocks.GET("/history", h.Inventory.GetRecentAdjustments)
		stocks.GET("/history/:id", h.Inventory.GetHistory)
		stocks.GET("/low", h.Inventory.GetLowStock)
		stocks.GET("/alerts", h.Inventory.GetAlerts)
	}
}

// SetupAdminRoutes sets up admin login, reporting, order and user management
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers) {
	admin := rg.Group("/admin")
	admin.POST("/login", h.Auth.AdminLogin)

	protected := admin.Group("")
	protected.Use(h.Sessions.RequireAdmin())
	{
		protected.GET("/dashboard", h.Analytics.GetDashboard)
		protected.GET("/sales", h.Analytics.GetSalesReport)
		protected.GET("/top-products", h.Analytics.GetTopProducts)
		protected.GET("/reports/inventory", h.Analytics.ExportInventory)

		protected.GET("/orders", h.Orders.AdminGetOrders)
		protected.PATCH("/orders/:id/status", h.Orders.AdminUpdateStatus)
		protected.POST("/orders/:id/refund", h.Orders.AdminRefund)
		protected.DELETE("/orders/:id", h.Orders.AdminDeleteOrder)

		protected.GET("/users", h.Users.GetUsers)
		protected.PATCH("/users/:id/status", h.Users.UpdateUserStatus)
	}
}
