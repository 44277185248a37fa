// Package integration exercises the persistence layer against a real
// PostgreSQL instance. Each test gets its own testcontainers database with
// the full migration set applied.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB is a migrated PostgreSQL database backed by a throwaway container.
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// NewTestDB starts a fresh PostgreSQL container, applies all migrations and
// registers cleanup. Fresh containers keep tests fully isolated at the cost
// of startup time.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("taic_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			// The entrypoint restarts postgres once during init, hence the
			// second occurrence.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		termCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(termCtx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "container connection string")

	db := openGorm(t, dsn)
	applyMigrations(t, db)

	return &TestDB{DB: db, t: t}
}

func openGorm(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	logMode := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		logMode = logger.Info
	}
	// TranslateError matches the production setup: unique violations
	// surface as gorm.ErrDuplicatedKey.
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
	})
	require.NoError(t, err, "open gorm connection")

	sqlDB, err := db.DB()
	require.NoError(t, err, "unwrap sql.DB")
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

func applyMigrations(t *testing.T, db *gorm.DB) {
	t.Helper()

	migrationsPath := findMigrationsPath()
	require.NotEmpty(t, migrationsPath, "migrations directory not found")

	sqlDB, err := db.DB()
	require.NoError(t, err, "unwrap sql.DB")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "create migration driver")

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	require.NoError(t, err, "create migrate instance")

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "apply migrations")
	}
}

// findMigrationsPath walks up from this file until it finds the repository's
// migrations directory.
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return ""
}

// SeedUser inserts a user row and returns its ID. Orders and merchants
// reference users, so most scenarios start here.
func (tdb *TestDB) SeedUser(email, role string) uuid.UUID {
	tdb.t.Helper()

	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO users (id, email, password_hash, display_name, role, status, version)
		VALUES (?, ?, '$2a$10$test.hash.not.a.real.password.hash', ?, ?, 'active', 1)
	`, id, email, email, role).Error
	require.NoError(tdb.t, err, "seed user")
	return id
}

// SeedMerchant inserts an approved merchant owned by the given user and
// returns its ID.
func (tdb *TestDB) SeedMerchant(ownerUserID uuid.UUID, slug string, commissionRate decimal.Decimal) uuid.UUID {
	tdb.t.Helper()

	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO merchants (id, owner_user_id, business_name, slug, contact_email, status, commission_rate, payout_currency, payout_min_payout_amount, version)
		VALUES (?, ?, ?, ?, ?, 'approved', ?, 'USDC', 0, 1)
	`, id, ownerUserID, "Shop "+slug, slug, slug+"@example.com", commissionRate).Error
	require.NoError(tdb.t, err, "seed merchant")
	return id
}

// SeedProduct inserts an active product for the merchant and returns its ID.
func (tdb *TestDB) SeedProduct(merchantID uuid.UUID, slug string, price decimal.Decimal) uuid.UUID {
	tdb.t.Helper()

	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO products (id, merchant_id, name, slug, sku, price, status, ai_generated, version)
		VALUES (?, ?, ?, ?, ?, ?, 'active', FALSE, 1)
	`, id, merchantID, "Product "+slug, slug, "SKU-"+slug, price).Error
	require.NoError(tdb.t, err, "seed product")
	return id
}

// SeedInventory inserts an inventory row for the product and returns its ID.
func (tdb *TestDB) SeedInventory(merchantID, productID uuid.UUID, onHand int) uuid.UUID {
	tdb.t.Helper()

	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO inventory_items (id, merchant_id, product_id, on_hand, reserved, low_stock_threshold, version)
		VALUES (?, ?, ?, ?, 0, 0, 1)
	`, id, merchantID, productID, onHand).Error
	require.NoError(tdb.t, err, "seed inventory item")
	return id
}
