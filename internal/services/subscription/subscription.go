// Package subscription implements the premium lifecycle: activation on a
// confirmed payment, access evaluation, the expiry sweep and the free-tier
// write quota.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/lib/sl"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/rabbitmq"
)

// ErrQuotaExceeded signals that a free-tier user has reached the
// transaction write ceiling.
var ErrQuotaExceeded = errors.New("free tier transaction quota exceeded")

// UserRepository defines the storage operations the subscription engine
// needs.
type UserRepository interface {
	// ActivateSubscription marks the user premium with the given window.
	ActivateSubscription(ctx context.Context, userID int64, start, end time.Time) error
	// FindExpiredPremium returns premium-flagged users whose window ended
	// before now.
	FindExpiredPremium(ctx context.Context, now time.Time) ([]*models.User, error)
	// DowngradeUser moves the user back to the free tier.
	DowngradeUser(ctx context.Context, userID int64) error
	// CountTransactions returns the user's all-time transaction count.
	CountTransactions(ctx context.Context, userID int64) (int, error)
}

// NotificationPublisher publishes outbound notifications to the broker.
type NotificationPublisher interface {
	Publish(exchange, routingKey string, message any) error
}

// SubscriptionService holds the subscription state machine.
type SubscriptionService struct {
	repo      UserRepository
	pub       NotificationPublisher
	log       *slog.Logger
	freeLimit int
}

// NewSubscriptionService creates a SubscriptionService with the free-tier
// write ceiling.
func NewSubscriptionService(repo UserRepository, pub NotificationPublisher, log *slog.Logger, freeLimit int) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		pub:       pub,
		log:       log,
		freeLimit: freeLimit,
	}
}

// Activate grants the user a premium window of durationDays starting now
// (UTC) and updates the in-memory user to match. Only a confirmed payment
// event calls this.
func (s *SubscriptionService) Activate(ctx context.Context, user *models.User, durationDays int) error {
	start := time.Now().UTC()
	end := start.AddDate(0, 0, durationDays)

	if err := s.repo.ActivateSubscription(ctx, user.ID, start, end); err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}

	user.Status = models.StatusPremium
	user.SubscriptionStart = &start
	user.SubscriptionEnd = &end

	s.log.Info("subscription activated",
		slog.Int64("user_id", user.ID),
		slog.Time("subscription_end", end))
	return nil
}

// EvaluateAccess re-derives effective premium eligibility from the
// subscription window instead of trusting the stored flag: the flag is only
// rewritten by the sweep, so between actual expiry and the next sweep run
// this check is the sole backstop.
func (s *SubscriptionService) EvaluateAccess(user *models.User, now time.Time) bool {
	return user.Status == models.StatusPremium &&
		user.SubscriptionEnd != nil &&
		user.SubscriptionEnd.After(now)
}

// SweepExpirations downgrades every premium user whose window ended before
// now and queues a notice for each. It is idempotent: an immediate rerun
// finds nothing to downgrade. Per-user failures are logged and skipped so
// one bad row never stalls the sweep.
func (s *SubscriptionService) SweepExpirations(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.FindExpiredPremium(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired subscriptions: %w", err)
	}

	processed := 0
	for _, u := range expired {
		if err := s.repo.DowngradeUser(ctx, u.ID); err != nil {
			s.log.Error("failed to downgrade user", slog.Int64("user_id", u.ID), sl.Err(err))
			continue
		}
		processed++

		notification := models.Notification{
			ChatID: u.TelegramID,
			Text:   "Langganan Premium anda telah tamat. Akaun anda kini kembali ke pelan percuma. Naik taraf semula dengan /upgrade <emel>.",
		}
		if err := s.pub.Publish(rabbitmq.NotificationsExchange, rabbitmq.RoutingKeyDowngrade, notification); err != nil {
			// The downgrade already committed and is monotonic; the notice
			// is best effort.
			s.log.Error("failed to queue downgrade notice", slog.Int64("user_id", u.ID), sl.Err(err))
		}
	}

	s.log.Info("expiry sweep finished", slog.Int("downgraded", processed))
	return processed, nil
}

// CheckWriteQuota refuses further transaction writes once a free-tier user
// holds freeLimit transactions. Premium users are exempt. The count is
// queried fresh on every write, never cached.
func (s *SubscriptionService) CheckWriteQuota(ctx context.Context, user *models.User) error {
	if s.EvaluateAccess(user, time.Now().UTC()) {
		return nil
	}

	count, err := s.repo.CountTransactions(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to count transactions: %w", err)
	}
	if count >= s.freeLimit {
		return ErrQuotaExceeded
	}
	return nil
}
