package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
)

// renderCSV writes one row per transaction with timestamps rendered in loc.
func renderCSV(transactions []*models.Transaction, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"ID", "Kind", "Amount", "Category", "Note", "Timestamp"}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range transactions {
		row := []string{
			strconv.FormatInt(t.ID, 10),
			t.Kind,
			t.Amount.StringFixed(2),
			t.Category,
			t.Note,
			t.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
