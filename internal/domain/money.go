package domain

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for every amount
const MoneyScale int32 = 2

// HasMoneyScale reports whether v can be represented with MoneyScale
// fractional digits without losing value. 10.500 passes, 10.505 does not.
func HasMoneyScale(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(MoneyScale))
}

// RateScale is the number of fractional digits kept for interest rates
const RateScale int32 = 4

// MaxInterestRate is the largest rate a stored account can carry
var MaxInterestRate = decimal.RequireFromString("99999.9999")

// NormalizeMoney returns v with exactly MoneyScale fractional digits.
// Callers must check HasMoneyScale first, otherwise the value is rounded.
func NormalizeMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(MoneyScale)
}

// FormatMoney renders v with exactly MoneyScale fractional digits
func FormatMoney(v decimal.Decimal) string {
	return v.StringFixed(MoneyScale)
}

// LockOrder returns a and b in the global lock acquisition order.
// Every operation that locks two accounts must use it.
func LockOrder(a, b uuid.UUID) (first, second uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}
