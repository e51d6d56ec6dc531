package testutil

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// NewTestDB opens a private in-memory SQLite database with the full schema
// and installs it as the shared config.DB for the duration of the test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_foreign_keys=1", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every statement on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateDatabase(db), "failed to migrate test database")

	previous := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() {
		config.SetDB(previous)
		_ = sqlDB.Close()
	})

	return db
}

// CreateUser inserts a local user
func CreateUser(t *testing.T, db *gorm.DB, username string, admin bool) *models.User {
	t.Helper()

	user := models.User{
		Subject:  models.LocalSubject(username),
		Username: username,
		Email:    username + "@example.com",
		IsAdmin:  admin,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// CreateCategory inserts a category
func CreateCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	category := models.Category{Name: name}
	require.NoError(t, db.Create(&category).Error)
	return &category
}

// CreateSticker inserts an active sticker with the given price and stock
func CreateSticker(t *testing.T, db *gorm.DB, category *models.Category, name, price string, stock int) *models.Sticker {
	t.Helper()

	sticker := models.Sticker{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: category.ID,
		Stock:      stock,
		IsActive:   true,
		ImageKey:   "stickers/" + name + ".png",
	}
	require.NoError(t, db.Create(&sticker).Error)
	return &sticker
}

// ReloadSticker reads a sticker's current row
func ReloadSticker(t *testing.T, db *gorm.DB, id uint) *models.Sticker {
	t.Helper()

	var sticker models.Sticker
	require.NoError(t, db.First(&sticker, id).Error)
	return &sticker
}

// TestConfig returns a configuration for tests: local HS256 tokens and custom
// stickers promoted at 2.50 into an active "Custom" category
func TestConfig() *config.Config {
	return &config.Config{
		DBDriver:              config.DriverSQLite,
		GoEnv:                 "test",
		Auth0Audience:         "sticker-shop-api",
		JWTSecret:             "test-secret",
		JWTIssuer:             "sticker-shop-api",
		TokenTTL:              time.Hour,
		UploadDir:             os.TempDir(),
		Currency:              "eur",
		PublicBaseURL:         "https://shop.example.com",
		CORSOrigins:           []string{"http://localhost:3000"},
		CustomStickerPrice:    decimal.RequireFromString("2.50"),
		CustomStickerCategory: "Custom",
		CustomStickerActive:   true,
	}
}

// UseConfig installs cfg as the shared configuration for the duration of the test
func UseConfig(t *testing.T, cfg *config.Config) {
	t.Helper()

	previous := config.GetConfig()
	config.SetConfig(cfg)
	t.Cleanup(func() { config.SetConfig(previous) })
}
