package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
)

func TestStorage_GetOrCreateUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	first, err := storage.GetOrCreateUser(ctx, 500, "Aina")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFree, first.Status)
	assert.Equal(t, "Aina", first.Name)

	// Second call returns the existing row; the stored name is kept.
	again, err := storage.GetOrCreateUser(ctx, 500, "Aina Binti")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Aina", again.Name)
}

func TestStorage_GetUserByTelegramID_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, err := storage.GetUserByTelegramID(context.Background(), 999999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_Transactions(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userID := factory.CreateUser(t, 500, "Aina", models.StatusFree)

	created, err := storage.AddTransaction(ctx, models.Transaction{
		UserID:    userID,
		Kind:      models.KindIn,
		Amount:    decimal.RequireFromString("100.00"),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = storage.AddTransaction(ctx, models.Transaction{
		UserID:    userID,
		Kind:      models.KindOut,
		Amount:    decimal.RequireFromString("37.50"),
		Category:  "makanan",
		Note:      "nasi lemak",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	balance, err := storage.Balance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("62.50")),
		"want balance 62.50, got %s", balance)

	count, err := storage.CountTransactions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	categories, err := storage.DistinctCategories(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"makanan"}, categories)
}

func TestStorage_ListTransactionsSince(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userID := factory.CreateUser(t, 500, "Aina", models.StatusFree)
	otherID := factory.CreateUser(t, 501, "Borhan", models.StatusFree)

	now := time.Now().UTC()
	factory.CreateTransaction(t, userID, models.KindOut, "10.00", "makanan", now.Add(-48*time.Hour))
	inWindow := factory.CreateTransaction(t, userID, models.KindOut, "20.00", "makanan", now.Add(-time.Hour))
	factory.CreateTransaction(t, otherID, models.KindOut, "30.00", "makanan", now.Add(-time.Hour))

	got, err := storage.ListTransactionsSince(ctx, userID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inWindow, got[0].ID)
}

func TestStorage_DeleteTransaction(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	ownerID := factory.CreateUser(t, 500, "Aina", models.StatusFree)
	otherID := factory.CreateUser(t, 501, "Borhan", models.StatusFree)
	txID := factory.CreateTransaction(t, ownerID, models.KindOut, "10.00", "", time.Now())

	// Another user cannot delete the row.
	err := storage.DeleteTransaction(ctx, otherID, txID)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, storage.DeleteTransaction(ctx, ownerID, txID))

	err = storage.DeleteTransaction(ctx, ownerID, txID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_SubscriptionLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userID := factory.CreateUser(t, 500, "Aina", models.StatusFree)

	now := time.Now().UTC()
	require.NoError(t, storage.ActivateSubscription(ctx, userID, now.Add(-31*24*time.Hour), now.Add(-24*time.Hour)))

	expired, err := storage.FindExpiredPremium(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, userID, expired[0].ID)

	require.NoError(t, storage.DowngradeUser(ctx, userID))

	// Idempotent: the user is no longer premium-flagged.
	expired, err = storage.FindExpiredPremium(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, expired)

	u, err := storage.GetUserByTelegramID(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFree, u.Status)
	// Window columns are kept for history.
	assert.NotNil(t, u.SubscriptionEnd)
}

func TestStorage_FindExpiredPremium_SkipsActiveWindows(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	now := time.Now().UTC()
	factory.CreatePremiumUser(t, 500, "Aina", now.Add(-24*time.Hour), now.Add(24*time.Hour))

	expired, err := storage.FindExpiredPremium(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestStorage_AutoReportUsers(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	enabledID := factory.CreateUser(t, 500, "Aina", models.StatusFree)
	factory.CreateUser(t, 501, "Borhan", models.StatusFree)

	require.NoError(t, storage.SetAutoReport(ctx, enabledID, true))

	users, err := storage.ListAutoReportUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, enabledID, users[0].ID)

	require.NoError(t, storage.SetAutoReport(ctx, enabledID, false))
	users, err = storage.ListAutoReportUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
