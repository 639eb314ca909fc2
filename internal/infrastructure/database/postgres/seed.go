package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/domain/user"
	"github.com/your-org/marketplace-api/internal/pkg/auth"
	"gorm.io/gorm"
)

// Seeder inserts development data through the domain services so the seeded
// catalog obeys the same rules as one built through the API
type Seeder struct {
	db         *gorm.DB
	config     *config.Config
	log        *logrus.Logger
	categories *product.CategoryService
	products   *product.Service
	passwords  *auth.PasswordManager
}

// NewSeeder creates a seeder
func NewSeeder(db *gorm.DB, cfg *config.Config, log *logrus.Logger, categories *product.CategoryService, products *product.Service) *Seeder {
	return &Seeder{
		db:         db,
		config:     cfg,
		log:        log,
		categories: categories,
		products:   products,
		passwords:  auth.NewPasswordManager(cfg),
	}
}

type seedProduct struct {
	sku, name, price string
	stock, weight    int
	breaks           []product.PriceBreakInput
}

type seedCategory struct {
	name, description string
	children          []seedCategory
	products          []seedProduct
}

var seedCatalog = []seedCategory{
	{
		name:        "Electronics",
		description: "Electronic devices, gadgets, and accessories",
		children: []seedCategory{
			{
				name: "Audio",
				products: []seedProduct{
					{sku: "AUD-EARBUDS-01", name: "Wireless Earbuds", price: "2499.00", stock: 40, weight: 120},
					{sku: "AUD-SPEAKER-01", name: "Bluetooth Speaker", price: "3999.00", stock: 3, weight: 650},
				},
			},
			{
				name: "Accessories",
				products: []seedProduct{
					{sku: "ACC-CABLE-USBC", name: "USB-C Cable 1m", price: "299.00", stock: 200, weight: 40,
						breaks: []product.PriceBreakInput{
							{Quantity: 10, Price: decimal.RequireFromString("249.00")},
							{Quantity: 50, Price: decimal.RequireFromString("199.00")},
						}},
				},
			},
		},
	},
	{
		name:        "Home & Kitchen",
		description: "Cookware, storage, and home essentials",
		products: []seedProduct{
			{sku: "HOME-KETTLE-01", name: "Electric Kettle", price: "1299.00", stock: 25, weight: 1100},
			{sku: "HOME-JAR-SET", name: "Glass Jar Set", price: "799.00", stock: 0, weight: 2400},
		},
	},
	{
		name:        "Books",
		description: "Books and educational materials",
		products: []seedProduct{
			{sku: "BOOK-GO-101", name: "Learning Go", price: "599.00", stock: 60, weight: 450},
		},
	},
}

// SeedInitialData seeds the admin account and a small catalog. It is
// idempotent: existing rows are left alone.
func (s *Seeder) SeedInitialData(ctx context.Context) error {
	admin, err := s.seedAdminUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&product.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		s.log.Info("catalog already present, skipping catalog seed")
		return nil
	}

	for _, c := range seedCatalog {
		if err := s.seedCategory(ctx, c, nil, admin.ID); err != nil {
			return err
		}
	}

	s.log.Info("initial data seeded")
	return nil
}

func (s *Seeder) seedAdminUser(ctx context.Context) (*user.User, error) {
	email := s.config.App.SeedAdminEmail

	var existing user.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := s.passwords.Hash(s.config.App.SeedAdminPassword)
	if err != nil {
		return nil, err
	}
	admin := user.User{
		Email:     email,
		Password:  hashed,
		FirstName: "Admin",
		LastName:  "User",
		IsActive:  true,
		IsAdmin:   true,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, err
	}

	s.log.WithField("email", email).Info("created admin user")
	return &admin, nil
}

func (s *Seeder) seedCategory(ctx context.Context, c seedCategory, parentID *uint, adminID uint) error {
	category, err := s.categories.CreateCategory(ctx, &product.CategoryCreateRequest{
		Name:        c.name,
		Description: c.description,
		ParentID:    parentID,
	})
	if err != nil {
		return fmt.Errorf("failed to seed category %s: %w", c.name, err)
	}

	for _, p := range c.products {
		_, err := s.products.CreateProduct(ctx, &product.ProductCreateRequest{
			SKU:         p.sku,
			Name:        p.name,
			Description: p.name,
			Price:       decimal.RequireFromString(p.price),
			Stock:       p.stock,
			Weight:      p.weight,
			CategoryID:  category.ID,
			PriceBreaks: p.breaks,
		}, adminID)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.sku, err)
		}
	}

	for _, child := range c.children {
		if err := s.seedCategory(ctx, child, &category.ID, adminID); err != nil {
			return err
		}
	}
	return nil
}
