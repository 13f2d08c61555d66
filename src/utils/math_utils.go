package utils

import "github.com/shopspring/decimal"

// RoundMoney rounds to grosze/cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundWhole rounds half away from zero to whole units, as tax bases and
// tax amounts are entered on the forms.
func RoundWhole(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// MaxDecimal returns the greater of a and b.
func MaxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
