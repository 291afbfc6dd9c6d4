package model

import "github.com/shopspring/decimal"

// FromCents переводит сумму в минимальных единицах валюты в decimal.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToCents переводит сумму в минимальные единицы валюты с банковским округлением.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).RoundBank(0).IntPart()
}

// NonNegative возвращает d, либо ноль, если d отрицательно.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
