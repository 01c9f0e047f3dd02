// Package report computes period-bounded aggregates over a user's
// transactions and renders the summary the bot sends back.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/lib/sl"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/rabbitmq"
)

// Report periods as the user types them.
const (
	PeriodDaily   = "harian"
	PeriodWeekly  = "mingguan"
	PeriodMonthly = "bulanan"
)

// ErrInvalidPeriod signals a period keyword outside harian/mingguan/bulanan.
// It is an input-validation failure, not a runtime error.
var ErrInvalidPeriod = errors.New("invalid report period")

// TransactionRepository defines the ledger reads the report engine needs.
type TransactionRepository interface {
	// ListTransactionsSince returns the user's transactions from since on,
	// newest first.
	ListTransactionsSince(ctx context.Context, userID int64, since time.Time) ([]*models.Transaction, error)
	// ListAllTransactions returns every transaction of the user.
	ListAllTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error)
	// Balance returns the user's all-time balance.
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	// ListAutoReportUsers returns users with the daily auto-report enabled.
	ListAutoReportUsers(ctx context.Context) ([]*models.User, error)
}

// NotificationPublisher publishes outbound notifications to the broker.
type NotificationPublisher interface {
	Publish(exchange, routingKey string, message any) error
}

// ReportService renders period reports and the CSV export.
type ReportService struct {
	repo TransactionRepository
	pub  NotificationPublisher
	loc  *time.Location
	log  *slog.Logger
}

// NewReportService creates a ReportService evaluating periods in loc.
func NewReportService(repo TransactionRepository, pub NotificationPublisher, loc *time.Location, log *slog.Logger) *ReportService {
	return &ReportService{
		repo: repo,
		pub:  pub,
		loc:  loc,
		log:  log,
	}
}

type categoryTotal struct {
	name  string
	total decimal.Decimal
}

// periodStart returns the inclusive lower bound of the period and the
// report title. The upper bound is implicitly "now"; the weekly end date
// only decorates the title.
func (s *ReportService) periodStart(period string, now time.Time) (time.Time, string, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	switch period {
	case PeriodDaily:
		title := fmt.Sprintf("📅 Laporan Harian (%s)", midnight.Format("02 Jan 2006"))
		return midnight, title, nil
	case PeriodWeekly:
		// ISO weekday numbering, Monday is the start of the week.
		offset := (int(now.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -offset)
		end := start.AddDate(0, 0, 6)
		title := fmt.Sprintf("📅 Laporan Mingguan (%s – %s)",
			start.Format("02 Jan"), end.Format("02 Jan 2006"))
		return start, title, nil
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
		title := fmt.Sprintf("📅 Laporan Bulanan (%s)", start.Format("January 2006"))
		return start, title, nil
	default:
		return time.Time{}, "", ErrInvalidPeriod
	}
}

// Generate renders the report for one user and period. The balance line is
// the all-time balance, not the period balance: it answers "what is my
// balance right now" while the totals answer "what happened this period".
func (s *ReportService) Generate(ctx context.Context, userID int64, period string) (string, error) {
	start, title, err := s.periodStart(period, time.Now().In(s.loc))
	if err != nil {
		return "", err
	}

	transactions, err := s.repo.ListTransactionsSince(ctx, userID, start)
	if err != nil {
		return "", fmt.Errorf("failed to list transactions: %w", err)
	}

	if len(transactions) == 0 {
		return title + "\n\nTiada transaksi direkodkan dalam tempoh ini.", nil
	}

	balance, err := s.repo.Balance(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get balance: %w", err)
	}

	totalIn, totalOut, categories := aggregate(transactions)

	lines := []string{
		title,
		"💰 Masuk: " + formatRM(totalIn),
		"💸 Keluar: " + formatRM(totalOut),
		"⚖️ Baki Semasa: " + formatRM(balance),
	}

	if len(categories) > 0 {
		lines = append(lines, "", "📊 Pecahan Kategori Keluar:")
		for _, c := range categories {
			lines = append(lines, fmt.Sprintf("- %s: %s", capitalize(c.name), formatRM(c.total)))
		}
	}

	return strings.Join(lines, "\n"), nil
}

// aggregate sums inflows and outflows and builds the per-category outflow
// subtotals. Uncategorized outflows count towards the total but never
// appear in the breakdown. The breakdown is sorted by subtotal descending;
// ties keep discovery order.
func aggregate(transactions []*models.Transaction) (totalIn, totalOut decimal.Decimal, categories []categoryTotal) {
	index := make(map[string]int)
	for _, t := range transactions {
		switch t.Kind {
		case models.KindIn:
			totalIn = totalIn.Add(t.Amount)
		case models.KindOut:
			totalOut = totalOut.Add(t.Amount)
			if t.Category == "" {
				continue
			}
			i, ok := index[t.Category]
			if !ok {
				i = len(categories)
				index[t.Category] = i
				categories = append(categories, categoryTotal{name: t.Category})
			}
			categories[i].total = categories[i].total.Add(t.Amount)
		}
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].total.GreaterThan(categories[j].total)
	})
	return totalIn, totalOut, categories
}

// ExportCSV renders every transaction of the user as a CSV document.
// Premium gating happens at the caller.
func (s *ReportService) ExportCSV(ctx context.Context, userID int64) ([]byte, error) {
	transactions, err := s.repo.ListAllTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return renderCSV(transactions, s.loc)
}

// QueueDailyReports generates today's report for every auto-report user and
// queues it for the sender worker. One user's failure never stops the loop.
func (s *ReportService) QueueDailyReports(ctx context.Context) (int, error) {
	users, err := s.repo.ListAutoReportUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list auto-report users: %w", err)
	}

	queued := 0
	for _, u := range users {
		text, err := s.Generate(ctx, u.ID, PeriodDaily)
		if err != nil {
			s.log.Error("failed to generate auto report", slog.Int64("user_id", u.ID), sl.Err(err))
			continue
		}
		notification := models.Notification{ChatID: u.TelegramID, Text: text}
		if err := s.pub.Publish(rabbitmq.NotificationsExchange, rabbitmq.RoutingKeyReport, notification); err != nil {
			s.log.Error("failed to queue auto report", slog.Int64("user_id", u.ID), sl.Err(err))
			continue
		}
		queued++
	}
	return queued, nil
}

func formatRM(amount decimal.Decimal) string {
	return "RM" + amount.StringFixed(2)
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
