// Package payment translates toyyibpay billing into subscription changes:
// it creates upgrade bills and turns asynchronous payment callbacks into
// activations.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/billing/toyyibpay"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/lib/sl"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
)

// billRefPrefix is the format contract with the billing client: references
// look like MYK-<telegram_id>-<unix_ts>.
const billRefPrefix = "MYK"

// StatusPaid is the only callback status code that triggers activation.
const StatusPaid = "1"

// billRefTTL bounds how long a processed bill reference is remembered; it
// only needs to outlive the gateway's retry window.
const billRefTTL = 48 * time.Hour

// BillingClient creates a payable bill with the gateway.
type BillingClient interface {
	CreateBill(ctx context.Context, req toyyibpay.CreateBillRequest) (*toyyibpay.CreateBillResponse, error)
}

// UserRepository resolves callback references to users.
type UserRepository interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

// Activator grants the premium window on a confirmed payment.
type Activator interface {
	Activate(ctx context.Context, user *models.User, durationDays int) error
}

// Deduper remembers processed bill references. SetNX reports false when the
// key was already present; Invalidate releases a claimed key.
type Deduper interface {
	SetNX(key string, value any, expiration time.Duration) (bool, error)
	Invalidate(key string) error
}

// Messenger delivers the confirmation message to the user.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Config carries the billing parameters established at startup.
type Config struct {
	PriceRM      decimal.Decimal
	DurationDays int
	BotUsername  string
	AppBaseURL   string
}

// PaymentService implements the payment confirmation flow.
type PaymentService struct {
	billing   BillingClient
	repo      UserRepository
	activator Activator
	dedupe    Deduper
	messenger Messenger
	cfg       Config
	log       *slog.Logger
}

// New creates a PaymentService.
func New(billing BillingClient, repo UserRepository, activator Activator,
	dedupe Deduper, messenger Messenger, cfg Config, log *slog.Logger) *PaymentService {
	return &PaymentService{
		billing:   billing,
		repo:      repo,
		activator: activator,
		dedupe:    dedupe,
		messenger: messenger,
		cfg:       cfg,
		log:       log,
	}
}

// BuildBillRef makes a unique bill reference carrying the user's Telegram
// id.
func BuildBillRef(telegramID int64) string {
	return fmt.Sprintf("%s-%d-%d", billRefPrefix, telegramID, time.Now().Unix())
}

// ParseBillRef extracts the Telegram id from a bill reference. The parse
// fails safe: a malformed reference is an error the caller logs and
// acknowledges, never a crash.
func ParseBillRef(ref string) (int64, error) {
	parts := strings.Split(ref, "-")
	if len(parts) != 3 || parts[0] != billRefPrefix {
		return 0, fmt.Errorf("malformed bill reference: %q", ref)
	}
	telegramID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed bill reference: %q: %w", ref, err)
	}
	return telegramID, nil
}

// CreateUpgradeBill creates a one-month premium bill for the user and
// returns the payment URL.
func (s *PaymentService) CreateUpgradeBill(ctx context.Context, user *models.User, email string) (string, error) {
	ref := BuildBillRef(user.TelegramID)

	resp, err := s.billing.CreateBill(ctx, toyyibpay.CreateBillRequest{
		BillName:        "MyKewanganBot Premium",
		BillDescription: "Langganan 1 Bulan MyKewanganBot Premium",
		AmountCents:     s.cfg.PriceRM.Mul(decimal.NewFromInt(100)).IntPart(),
		ExternalRef:     ref,
		PayorName:       user.Name,
		PayorEmail:      email,
		ReturnURL:       "https://t.me/" + s.cfg.BotUsername,
		CallbackURL:     "https://" + s.cfg.AppBaseURL + "/webhook/toyyibpay",
	})
	if err != nil {
		return "", fmt.Errorf("failed to create bill: %w", err)
	}

	s.log.Info("created upgrade bill",
		slog.Int64("telegram_id", user.TelegramID),
		slog.String("bill_code", resp.BillCode))
	return resp.PaymentURL, nil
}

// HandleCallback processes one payment-gateway callback. Every recoverable
// outcome (unpaid status, malformed reference, replayed reference, unknown
// user) is logged and acknowledged without side effects, because the
// gateway retries on non-2xx and none of those outcomes improve on retry.
// An error is returned only for unexpected internal failures.
func (s *PaymentService) HandleCallback(ctx context.Context, refNo, status string) error {
	log := s.log.With(slog.String("refno", refNo), slog.String("status", status))

	if status != StatusPaid {
		log.Info("ignoring callback with non-success status")
		return nil
	}

	telegramID, err := ParseBillRef(refNo)
	if err != nil {
		log.Error("failed to parse bill reference", sl.Err(err))
		return nil
	}

	dedupeKey := "billref:" + refNo
	fresh, err := s.dedupe.SetNX(dedupeKey, status, billRefTTL)
	if err != nil {
		return fmt.Errorf("failed to check bill reference: %w", err)
	}
	if !fresh {
		log.Warn("duplicate callback for already processed bill reference")
		return nil
	}

	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		log.Error("failed to resolve user from bill reference", sl.Err(err))
		return nil
	}

	if err := s.activator.Activate(ctx, user, s.cfg.DurationDays); err != nil {
		// Release the claim so the gateway's retry can land.
		if invErr := s.dedupe.Invalidate(dedupeKey); invErr != nil {
			log.Error("failed to release bill reference claim", sl.Err(invErr))
		}
		return fmt.Errorf("failed to activate subscription: %w", err)
	}

	text := fmt.Sprintf("🎉 Pembayaran diterima! Akaun anda kini Premium sehingga %s. Terima kasih!",
		user.SubscriptionEnd.Format("02 Jan 2006"))
	if err := s.messenger.SendMessage(ctx, user.TelegramID, text); err != nil {
		// Activation already committed; the confirmation is best effort.
		log.Error("failed to send payment confirmation", sl.Err(err))
	}

	log.Info("payment confirmed and subscription activated", slog.Int64("user_id", user.ID))
	return nil
}
