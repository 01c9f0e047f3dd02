package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/migrations"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
)

// setupTestDatabase starts a throwaway postgres container with the real
// migrations applied.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db, migrationsPath))

	storage := &Storage{DB: db}
	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory creates rows directly, bypassing the repository methods
// under test.
type TestDataFactory struct {
	storage *Storage
}

func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

func (f *TestDataFactory) CreateUser(t *testing.T, telegramID int64, name, status string) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO users (telegram_id, name, status)
		VALUES ($1, $2, $3) RETURNING id`,
		telegramID, name, status).Scan(&id)
	require.NoError(t, err)
	return id
}

func (f *TestDataFactory) CreatePremiumUser(t *testing.T, telegramID int64, name string, start, end time.Time) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO users
		(telegram_id, name, status, subscription_start, subscription_end)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		telegramID, name, models.StatusPremium, start, end).Scan(&id)
	require.NoError(t, err)
	return id
}

func (f *TestDataFactory) CreateTransaction(t *testing.T, userID int64, kind, amount, category string, createdAt time.Time) int64 {
	t.Helper()
	var categoryArg any
	if category != "" {
		categoryArg = category
	}
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO transactions
		(user_id, kind, amount, category, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		userID, kind, decimal.RequireFromString(amount), categoryArg, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}
