package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kinds. The stored values follow the bot's command surface:
// "masuk" is money in, "keluar" is money out. Amounts are always stored as
// non-negative magnitudes; the direction is carried by Kind.
const (
	KindIn  = "masuk"
	KindOut = "keluar"
)

// Transaction is a single ledger entry owned by exactly one user.
// Category and Note are optional free text; an empty Category means the
// entry is excluded from the category breakdown but still counted in totals.
type Transaction struct {
	ID        int64
	UserID    int64
	Kind      string
	Amount    decimal.Decimal
	Category  string
	Note      string
	CreatedAt time.Time
}
