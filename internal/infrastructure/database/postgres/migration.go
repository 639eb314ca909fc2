// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/domain/cart"
	"github.com/your-org/marketplace-api/internal/domain/inventory"
	"github.com/your-org/marketplace-api/internal/domain/order"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/domain/user"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// User domain
		&user.User{},

		// Catalog
		&product.Category{},
		&product.Product{},
		&product.PriceBreak{},

		// Stock ledger
		&inventory.StockAdjustment{},
		&inventory.StockAlert{},

		// Cart
		&cart.Cart{},
		&cart.CartItem{},

		// Orders
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
	}
}

// indexes are composite indexes the struct tags do not express
var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",

	"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
	"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
	"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_products_stock_threshold ON products(stock, low_stock_threshold)",

	"CREATE INDEX IF NOT EXISTS idx_categories_parent_active ON categories(parent_id, is_active)",
	"CREATE INDEX IF NOT EXISTS idx_categories_sort_order ON categories(sort_order)",

	"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
	"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

	"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at)",

	"CREATE INDEX IF NOT EXISTS idx_stock_adjustments_product_created ON stock_adjustments(product_id, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_stock_adjustments_type ON stock_adjustments(type)",
	"CREATE INDEX IF NOT EXISTS idx_stock_alerts_open ON stock_alerts(product_id, is_resolved)",
}

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations(ctx context.Context) error {
	m.log.Info("running database auto-migrations")

	db := m.db.WithContext(ctx)
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes. A failing index is logged and
// skipped so one bad statement does not block startup.
func (m *Migration) CreateIndexes(ctx context.Context) error {
	db := m.db.WithContext(ctx)
	created, failed := 0, 0
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			m.log.WithError(err).WithField("statement", stmt).Warn("failed to create index")
			failed++
			continue
		}
		created++
	}

	m.log.WithFields(logrus.Fields{"created": created, "failed": failed}).Info("indexes ensured")
	return ctx.Err()
}
