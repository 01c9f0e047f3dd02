package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
)

// GetOrCreateUser returns the user with the given Telegram id, inserting a
// fresh free-tier row on first interaction. The upsert is idempotent and is
// called at the top of every entry point.
func (s *Storage) GetOrCreateUser(ctx context.Context, telegramID int64, name string) (*models.User, error) {
	const op = "storage.GetOrCreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u, err := s.GetUserByTelegramID(ctx, telegramID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO users (telegram_id, name, status, auto_report)
			  VALUES ($1, $2, $3, FALSE)
			  ON CONFLICT (telegram_id) DO UPDATE SET name = EXCLUDED.name
			  RETURNING id;`
	u = &models.User{
		TelegramID: telegramID,
		Name:       name,
		Status:     models.StatusFree,
	}
	if err := s.DB.QueryRowContext(ctx, query, telegramID, name, models.StatusFree).Scan(&u.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByTelegramID returns the user owning the given Telegram id.
func (s *Storage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	const op = "storage.GetUserByTelegramID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, name, status, subscription_start,
			      subscription_end, auto_report
			  FROM users
			  WHERE telegram_id = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, telegramID)

	var start, end sql.NullTime
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Name, &u.Status,
		&start, &end, &u.AutoReport); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if start.Valid {
		u.SubscriptionStart = &start.Time
	}
	if end.Valid {
		u.SubscriptionEnd = &end.Time
	}
	return u, nil
}

// ActivateSubscription marks the user premium with the given window.
// Re-activation simply rewrites the window; duplicate confirmations are
// filtered before this call by the bill-reference guard.
func (s *Storage) ActivateSubscription(ctx context.Context, userID int64, start, end time.Time) error {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET status = $1,
			      subscription_start = $2,
			      subscription_end = $3
			  WHERE id = $4`
	if _, err := s.DB.ExecContext(ctx, query, models.StatusPremium, start, end, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindExpiredPremium returns every user still flagged premium whose
// subscription ended before now.
func (s *Storage) FindExpiredPremium(ctx context.Context, now time.Time) ([]*models.User, error) {
	const op = "storage.FindExpiredPremium"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, name, status, subscription_start,
			      subscription_end, auto_report
			  FROM users
			  WHERE status = $1 AND subscription_end < $2`
	rows, err := s.DB.QueryContext(ctx, query, models.StatusPremium, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		var start, end sql.NullTime
		if err = rows.Scan(&u.ID, &u.TelegramID, &u.Name, &u.Status,
			&start, &end, &u.AutoReport); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if start.Valid {
			u.SubscriptionStart = &start.Time
		}
		if end.Valid {
			u.SubscriptionEnd = &end.Time
		}
		result = append(result, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DowngradeUser moves the user back to the free tier. The subscription
// window columns are kept for the status command's history.
func (s *Storage) DowngradeUser(ctx context.Context, userID int64) error {
	const op = "storage.DowngradeUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET status = $1
			  WHERE id = $2`
	if _, err := s.DB.ExecContext(ctx, query, models.StatusFree, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetAutoReport toggles the daily auto-report flag for the user.
func (s *Storage) SetAutoReport(ctx context.Context, userID int64, enabled bool) error {
	const op = "storage.SetAutoReport"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET auto_report = $1
			  WHERE id = $2`
	if _, err := s.DB.ExecContext(ctx, query, enabled, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAutoReportUsers returns every user with the auto-report flag on.
func (s *Storage) ListAutoReportUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListAutoReportUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, name, status, subscription_start,
			      subscription_end, auto_report
			  FROM users
			  WHERE auto_report = TRUE`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		var start, end sql.NullTime
		if err = rows.Scan(&u.ID, &u.TelegramID, &u.Name, &u.Status,
			&start, &end, &u.AutoReport); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if start.Valid {
			u.SubscriptionStart = &start.Time
		}
		if end.Valid {
			u.SubscriptionEnd = &end.Time
		}
		result = append(result, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
