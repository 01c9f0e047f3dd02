// Package models contains the domain structures shared between the
// services and the storage layer.
package models

import "time"

// Subscription status values stored in the users table. The stored flag is
// only rewritten by activation and by the downgrade sweep; effective access
// is always re-derived from SubscriptionEnd.
const (
	StatusFree    = "free"
	StatusPremium = "premium"
)

// User is a bot user, created lazily on first interaction and keyed by the
// Telegram account id.
type User struct {
	ID                int64
	TelegramID        int64
	Name              string
	Status            string
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
	AutoReport        bool
}
