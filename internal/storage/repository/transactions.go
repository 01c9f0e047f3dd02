package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
)

// AddTransaction inserts a ledger entry and returns it with the generated id.
// The amount is stored as a non-negative magnitude; direction lives in kind.
func (s *Storage) AddTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	const op = "storage.AddTransaction"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO transactions (user_id, kind, amount, category, note, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id;`
	var category, note sql.NullString
	if tx.Category != "" {
		category = sql.NullString{String: tx.Category, Valid: true}
	}
	if tx.Note != "" {
		note = sql.NullString{String: tx.Note, Valid: true}
	}
	if err := s.DB.QueryRowContext(ctx, query,
		tx.UserID, tx.Kind, tx.Amount, category, note, tx.CreatedAt).Scan(&tx.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &tx, nil
}

// ListTransactionsSince returns the user's transactions with a timestamp at
// or after since, newest first. The ordering only affects display.
func (s *Storage) ListTransactionsSince(ctx context.Context, userID int64, since time.Time) ([]*models.Transaction, error) {
	const op = "storage.ListTransactionsSince"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, kind, amount, category, note, created_at
			  FROM transactions
			  WHERE user_id = $1 AND created_at >= $2
			  ORDER BY created_at DESC`
	return s.queryTransactions(ctx, op, query, userID, since)
}

// ListAllTransactions returns every transaction of the user, newest first.
func (s *Storage) ListAllTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	const op = "storage.ListAllTransactions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, kind, amount, category, note, created_at
			  FROM transactions
			  WHERE user_id = $1
			  ORDER BY created_at DESC`
	return s.queryTransactions(ctx, op, query, userID)
}

func (s *Storage) queryTransactions(ctx context.Context, op, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var category, note sql.NullString
		if err = rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount,
			&category, &note, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		t.Category = category.String
		t.Note = note.String
		result = append(result, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Balance returns the user's all-time balance: the sum of inflows minus the
// sum of outflows over every transaction, never scoped to a period.
func (s *Storage) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	const op = "storage.Balance"
	select {
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COALESCE(SUM(CASE WHEN kind = $1 THEN amount ELSE -amount END), 0)
			  FROM transactions
			  WHERE user_id = $2`
	var balance decimal.Decimal
	if err := s.DB.QueryRowContext(ctx, query, models.KindIn, userID).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// DeleteTransaction removes one transaction by id, scoped to the owning
// user. Returns ErrNotFound when no such row exists for that user.
func (s *Storage) DeleteTransaction(ctx context.Context, userID, transactionID int64) error {
	const op = "storage.DeleteTransaction"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM transactions
			  WHERE id = $1 AND user_id = $2`
	res, err := s.DB.ExecContext(ctx, query, transactionID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// DistinctCategories returns the set of category names the user has used.
func (s *Storage) DistinctCategories(ctx context.Context, userID int64) ([]string, error) {
	const op = "storage.DistinctCategories"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT DISTINCT category
			  FROM transactions
			  WHERE user_id = $1 AND category IS NOT NULL
			  ORDER BY category`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []string
	for rows.Next() {
		var category string
		if err = rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, category)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountTransactions returns the all-time number of transactions the user
// owns. The free-tier quota check runs this before every write.
func (s *Storage) CountTransactions(ctx context.Context, userID int64) (int, error) {
	const op = "storage.CountTransactions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*)
			  FROM transactions
			  WHERE user_id = $1`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
