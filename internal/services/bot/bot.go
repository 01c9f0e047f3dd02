// Package bot routes inbound Telegram updates to the ledger, report and
// subscription engines and renders the replies. Every failure branch is
// handled here: one user's malformed input never escapes the update that
// carried it.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/lib/sl"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/report"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/subscription"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/storage/repository"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/telegram"
)

const helpText = `Saya boleh bantu anda rekod kewangan harian.

/masuk <amaun> [kategori] [nota] - rekod wang masuk
/keluar <amaun> [kategori] [nota] - rekod wang keluar
/laporan <harian|mingguan|bulanan> - laporan tempoh
/baki - baki semasa
/padam <id> - padam transaksi
/kategori - senarai kategori anda
/eksport - eksport CSV (Premium)
/status - status akaun
/upgrade <emel> - naik taraf ke Premium
/auto <on|off> - laporan harian automatik`

const genericErrorText = "Maaf, berlaku ralat. Sila cuba lagi."

const upsellText = "Ciri ini untuk pengguna Premium sahaja. Naik taraf dengan /upgrade <emel>."

// Repository defines the ledger operations the command router needs.
type Repository interface {
	GetOrCreateUser(ctx context.Context, telegramID int64, name string) (*models.User, error)
	AddTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	DeleteTransaction(ctx context.Context, userID, transactionID int64) error
	DistinctCategories(ctx context.Context, userID int64) ([]string, error)
	CountTransactions(ctx context.Context, userID int64) (int, error)
	SetAutoReport(ctx context.Context, userID int64, enabled bool) error
}

// ReportService renders reports and the CSV export.
type ReportService interface {
	Generate(ctx context.Context, userID int64, period string) (string, error)
	ExportCSV(ctx context.Context, userID int64) ([]byte, error)
}

// SubscriptionService gates premium capabilities and the write quota.
type SubscriptionService interface {
	EvaluateAccess(user *models.User, now time.Time) bool
	CheckWriteQuota(ctx context.Context, user *models.User) error
}

// PaymentService creates upgrade bills.
type PaymentService interface {
	CreateUpgradeBill(ctx context.Context, user *models.User, email string) (string, error)
}

// Messenger delivers replies to the chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
}

// BotService is the command router.
type BotService struct {
	repo         Repository
	reports      ReportService
	subscription SubscriptionService
	payments     PaymentService
	messenger    Messenger
	validate     *validator.Validate
	log          *slog.Logger
	freeLimit    int
	botUsername  string
}

// New creates a BotService.
func New(repo Repository, reports ReportService, subs SubscriptionService,
	payments PaymentService, messenger Messenger, log *slog.Logger,
	freeLimit int, botUsername string) *BotService {
	return &BotService{
		repo:         repo,
		reports:      reports,
		subscription: subs,
		payments:     payments,
		messenger:    messenger,
		validate:     validator.New(),
		log:          log,
		freeLimit:    freeLimit,
		botUsername:  botUsername,
	}
}

// HandleUpdate processes one Telegram update end to end. It never returns
// an error: failures are logged and answered with a corrective or generic
// reply so the transport can always acknowledge the delivery.
func (s *BotService) HandleUpdate(ctx context.Context, upd *telegram.Update) {
	const op = "bot.HandleUpdate"

	if upd == nil || upd.Message == nil || upd.Message.From == nil || upd.Message.Text == "" {
		return
	}
	msg := upd.Message
	log := s.log.With(
		slog.String("op", op),
		slog.Int64("telegram_id", msg.From.ID),
	)

	user, err := s.repo.GetOrCreateUser(ctx, msg.From.ID, msg.From.FirstName)
	if err != nil {
		log.Error("failed to ensure user exists", sl.Err(err))
		s.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}

	command, args := splitCommand(msg.Text, s.botUsername)
	var reply string

	switch command {
	case "/start":
		reply = fmt.Sprintf("Salam %s! Selamat datang ke MyKewanganBot.\n\n%s", user.Name, helpText)
	case "/help":
		reply = helpText
	case "/masuk":
		reply = s.handleRecord(ctx, log, user, models.KindIn, args)
	case "/keluar":
		reply = s.handleRecord(ctx, log, user, models.KindOut, args)
	case "/laporan":
		reply = s.handleReport(ctx, log, user, args)
	case "/baki":
		reply = s.handleBalance(ctx, log, user)
	case "/padam":
		reply = s.handleDelete(ctx, log, user, args)
	case "/kategori":
		reply = s.handleCategories(ctx, log, user)
	case "/eksport":
		reply = s.handleExport(ctx, log, user, msg.Chat.ID)
	case "/status":
		reply = s.handleStatus(ctx, log, user)
	case "/upgrade":
		reply = s.handleUpgrade(ctx, log, user, args)
	case "/auto":
		reply = s.handleAutoReport(ctx, log, user, args)
	default:
		reply = "Arahan tidak dikenali. Taip /help untuk senarai arahan."
	}

	if reply != "" {
		s.reply(ctx, msg.Chat.ID, reply)
	}
}

func (s *BotService) reply(ctx context.Context, chatID int64, text string) {
	if err := s.messenger.SendMessage(ctx, chatID, text); err != nil {
		s.log.Error("failed to send reply", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}

// splitCommand separates the command word from its arguments, stripping a
// trailing @botname so group mentions still match.
func splitCommand(text, botUsername string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	command := strings.ToLower(fields[0])
	command = strings.TrimSuffix(command, "@"+strings.ToLower(botUsername))
	return command, fields[1:]
}

func (s *BotService) handleRecord(ctx context.Context, log *slog.Logger, user *models.User, kind string, args []string) string {
	if len(args) == 0 {
		return fmt.Sprintf("Sila beri amaun. Contoh: /%s 25.50 makanan nasi lemak", kind)
	}

	amount, err := decimal.NewFromString(args[0])
	if err != nil || !amount.IsPositive() {
		return fmt.Sprintf("Amaun tidak sah: %q. Contoh: /%s 25.50 makanan", args[0], kind)
	}

	if err := s.subscription.CheckWriteQuota(ctx, user); err != nil {
		if errors.Is(err, subscription.ErrQuotaExceeded) {
			return fmt.Sprintf("Had %d transaksi percuma telah dicapai. Naik taraf ke Premium dengan /upgrade <emel>.", s.freeLimit)
		}
		log.Error("failed to check write quota", sl.Err(err))
		return genericErrorText
	}

	tx := models.Transaction{
		UserID:    user.ID,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	if len(args) > 1 {
		tx.Category = strings.ToLower(args[1])
	}
	if len(args) > 2 {
		tx.Note = strings.Join(args[2:], " ")
	}

	created, err := s.repo.AddTransaction(ctx, tx)
	if err != nil {
		log.Error("failed to add transaction", sl.Err(err))
		return genericErrorText
	}

	label := "Wang masuk"
	if kind == models.KindOut {
		label = "Wang keluar"
	}
	reply := fmt.Sprintf("✅ %s RM%s direkodkan (#%d)", label, created.Amount.StringFixed(2), created.ID)
	if created.Category != "" {
		reply += fmt.Sprintf("\nKategori: %s", created.Category)
	}
	return reply
}

func (s *BotService) handleReport(ctx context.Context, log *slog.Logger, user *models.User, args []string) string {
	period := report.PeriodDaily
	if len(args) > 0 {
		period = strings.ToLower(args[0])
	}

	text, err := s.reports.Generate(ctx, user.ID, period)
	if err != nil {
		if errors.Is(err, report.ErrInvalidPeriod) {
			return "Tempoh laporan tidak sah. Sila pilih: harian, mingguan, bulanan."
		}
		log.Error("failed to generate report", sl.Err(err))
		return genericErrorText
	}
	return text
}

func (s *BotService) handleBalance(ctx context.Context, log *slog.Logger, user *models.User) string {
	balance, err := s.repo.Balance(ctx, user.ID)
	if err != nil {
		log.Error("failed to get balance", sl.Err(err))
		return genericErrorText
	}
	return "⚖️ Baki Semasa: RM" + balance.StringFixed(2)
}

func (s *BotService) handleDelete(ctx context.Context, log *slog.Logger, user *models.User, args []string) string {
	if len(args) == 0 {
		return "Sila beri ID transaksi. Contoh: /padam 12"
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Sprintf("ID tidak sah: %q. Contoh: /padam 12", args[0])
	}

	if err := s.repo.DeleteTransaction(ctx, user.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "Transaksi tidak dijumpai."
		}
		log.Error("failed to delete transaction", sl.Err(err))
		return genericErrorText
	}
	return fmt.Sprintf("🗑 Transaksi #%d dipadam.", id)
}

func (s *BotService) handleCategories(ctx context.Context, log *slog.Logger, user *models.User) string {
	categories, err := s.repo.DistinctCategories(ctx, user.ID)
	if err != nil {
		log.Error("failed to list categories", sl.Err(err))
		return genericErrorText
	}
	if len(categories) == 0 {
		return "Tiada kategori lagi."
	}
	return "📂 Kategori anda:\n- " + strings.Join(categories, "\n- ")
}

func (s *BotService) handleExport(ctx context.Context, log *slog.Logger, user *models.User, chatID int64) string {
	if !s.subscription.EvaluateAccess(user, time.Now().UTC()) {
		return upsellText
	}

	data, err := s.reports.ExportCSV(ctx, user.ID)
	if err != nil {
		log.Error("failed to export csv", sl.Err(err))
		return genericErrorText
	}

	filename := "mykewangan-" + time.Now().Format("2006-01-02") + ".csv"
	if err := s.messenger.SendDocument(ctx, chatID, filename, data, "Eksport transaksi anda"); err != nil {
		log.Error("failed to send csv document", sl.Err(err))
		return genericErrorText
	}
	return ""
}

func (s *BotService) handleStatus(ctx context.Context, log *slog.Logger, user *models.User) string {
	if s.subscription.EvaluateAccess(user, time.Now().UTC()) {
		return fmt.Sprintf("⭐ Status: Premium\nSah sehingga: %s",
			user.SubscriptionEnd.Format("02 Jan 2006"))
	}

	count, err := s.repo.CountTransactions(ctx, user.ID)
	if err != nil {
		log.Error("failed to count transactions", sl.Err(err))
		return genericErrorText
	}
	return fmt.Sprintf("Status: Percuma\nTransaksi digunakan: %d/%d\nNaik taraf dengan /upgrade <emel>.",
		count, s.freeLimit)
}

func (s *BotService) handleUpgrade(ctx context.Context, log *slog.Logger, user *models.User, args []string) string {
	if len(args) == 0 {
		return "Sila beri emel anda. Contoh: /upgrade nama@contoh.com"
	}
	email := args[0]
	if err := s.validate.Var(email, "required,email"); err != nil {
		return fmt.Sprintf("Emel tidak sah: %q. Contoh: /upgrade nama@contoh.com", email)
	}

	url, err := s.payments.CreateUpgradeBill(ctx, user, email)
	if err != nil {
		log.Error("failed to create upgrade bill", sl.Err(err))
		return "Maaf, perkhidmatan pembayaran tidak tersedia buat masa ini. Sila cuba lagi nanti."
	}
	return "💳 Sila buat pembayaran di sini:\n" + url
}

func (s *BotService) handleAutoReport(ctx context.Context, log *slog.Logger, user *models.User, args []string) string {
	if len(args) == 0 || (args[0] != "on" && args[0] != "off") {
		return "Sila pilih on atau off. Contoh: /auto on"
	}
	enabled := args[0] == "on"

	if err := s.repo.SetAutoReport(ctx, user.ID, enabled); err != nil {
		log.Error("failed to set auto report", sl.Err(err))
		return genericErrorText
	}
	if enabled {
		return "✅ Laporan harian automatik diaktifkan."
	}
	return "Laporan harian automatik dimatikan."
}
