package http

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/analytics"
	"github.com/your-org/marketplace-api/internal/domain/cart"
	"github.com/your-org/marketplace-api/internal/domain/inventory"
	"github.com/your-org/marketplace-api/internal/domain/order"
	"github.com/your-org/marketplace-api/internal/domain/pricing"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/domain/user"
	"github.com/your-org/marketplace-api/internal/pkg/auth"
	"github.com/your-org/marketplace-api/internal/pkg/email"
	"github.com/your-org/marketplace-api/internal/pkg/metrics"
	"github.com/your-org/marketplace-api/internal/pkg/pdf"
	"gorm.io/gorm"
)

// Dependencies are the shared clients the server is built from. Redis and
// Registry may be nil.
type Dependencies struct {
	DB       *gorm.DB
	Redis    redis.Cmdable
	Registry *prometheus.Registry
	Log      *logrus.Logger
	// Email overrides the configured email provider, mainly for tests
	Email *email.EmailService
}

// Services holds the wired domain services
type Services struct {
	JWT        *auth.JWTManager
	Metrics    *metrics.Metrics
	Users      *user.Service
	UserAdmin  *user.AdminService
	Categories *product.CategoryService
	Products   *product.Service
	Inventory  *inventory.Service
	Carts      *cart.Service
	Orders     *order.Service
	Analytics  *analytics.Service
	Invoices   *pdf.Service
}

// NewServices wires the domain services over one database handle
func NewServices(cfg *config.Config, deps Dependencies) (*Services, error) {
	emails := deps.Email
	if emails == nil {
		var err error
		emails, err = email.NewEmailService(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create email service: %w", err)
		}
	}

	var reg prometheus.Registerer
	if deps.Registry != nil {
		reg = deps.Registry
	}
	m := metrics.New(reg)

	jwtManager := auth.NewJWTManager(cfg)
	calculator := pricing.NewCalculator(cfg.Pricing)
	categories := product.NewCategoryService(deps.DB, cfg, product.NewRedisTreeCache(deps.Redis, cfg.Catalog.TreeCacheTTL))
	inv := inventory.NewService(deps.DB, cfg, m)
	carts := cart.NewService(deps.DB, cfg, calculator, m)

	return &Services{
		JWT:        jwtManager,
		Metrics:    m,
		Users:      user.NewService(deps.DB, cfg, jwtManager),
		UserAdmin:  user.NewAdminService(deps.DB, cfg),
		Categories: categories,
		Products:   product.NewService(deps.DB, cfg, categories, inv),
		Inventory:  inv,
		Carts:      carts,
		Orders:     order.NewService(deps.DB, cfg, calculator, inv, carts, order.NewEmailNotifier(emails), m),
		Analytics:  analytics.NewService(deps.DB, cfg),
		Invoices:   pdf.NewService(cfg),
	}, nil
}
