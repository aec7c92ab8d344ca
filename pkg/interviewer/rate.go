package interviewer

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidRate = errors.New("enter a valid hourly rate")

var hundred = decimal.NewFromInt(100)

// maxRate is the largest rate with six digits and two decimals.
var maxRate = decimal.RequireFromString("9999.99")

// MaxRateCents is maxRate in cents.
const MaxRateCents = 999999

// ParseRate converts a decimal string such as "150" or "99.50" into cents.
func ParseRate(value string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, ErrInvalidRate
	}
	if d.IsNegative() || d.GreaterThan(maxRate) || !d.Round(2).Equal(d) {
		return 0, ErrInvalidRate
	}
	return d.Mul(hundred).IntPart(), nil
}

// FormatCents renders cents with two decimals, e.g. 15000 -> "150.00".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
