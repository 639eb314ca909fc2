// Package testutil provides sqlite-backed databases and configuration for tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-api/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestJWTSecret is long enough to pass config validation
const TestJWTSecret = "test-secret-0123456789abcdefghijklmnop"

// NewDB opens an isolated in-memory sqlite database and migrates models.
// A single connection keeps every statement on the same in-memory database.
func NewDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...), "migrate")
	}
	return db
}

// Config returns the default configuration with test-friendly overrides
func Config(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("JWT_SECRET", TestJWTSecret)
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("APP_ENV", "test")
	t.Setenv("EMAIL_PROVIDER", "log")

	cfg, err := config.New()
	require.NoError(t, err)
	return cfg
}
