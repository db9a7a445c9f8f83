package sqlstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

// timeLayout is fixed width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseRFC3339 parses the timestamp strings stored in TEXT/VARCHAR columns.
func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlstore: parse time %q: %w", s, err)
	}
	return t, nil
}

// Amounts are stored as integer cents. Amounts that would not fit int64
// are rejected rather than wrapped.
func toCents(field string, d decimal.Decimal) (int64, error) {
	d = domain.RoundMoney(d)
	if err := domain.ValidateAmount(field, d); err != nil {
		return 0, err
	}
	return d.Shift(domain.MoneyScale).IntPart(), nil
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -domain.MoneyScale)
}
