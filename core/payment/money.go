package payment

import (
	"github.com/shopspring/decimal"
)

// Money is a fixed-point amount stored as DECIMAL(18,2).
//
// It marshals to a JSON number with exactly two fractional digits and scans
// straight from the database driver without going through float64.
type Money struct {
	decimal.Decimal
}

// maxMoney is the largest amount a DECIMAL(18,2) column holds.
var maxMoney = MustMoney("9999999999999999.99")

func NewMoney(d decimal.Decimal) Money { return Money{Decimal: d} }

// MustMoney parses a decimal literal and panics on failure.
func MustMoney(s string) Money { return Money{Decimal: decimal.RequireFromString(s)} }

func (m Money) String() string { return m.StringFixed(2) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m Money) Add(o Money) Money { return Money{Decimal: m.Decimal.Add(o.Decimal)} }

// Equal compares amounts regardless of their scale.
func (m Money) Equal(o Money) bool { return m.Decimal.Equal(o.Decimal) }
