// Package ranking orders gifticon units by urgency and discount efficiency.
package ranking

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
)

// Efficiency returns (face value - sale price) / sale price as an exact decimal.
// A sale price of zero yields efficiency zero.
func Efficiency(unit models.GifticonUnit) decimal.Decimal {
	if unit.SalePriceWon == 0 {
		return decimal.Zero
	}
	face := decimal.NewFromInt(int64(unit.FaceValueWon))
	sale := decimal.NewFromInt(int64(unit.SalePriceWon))
	return face.Sub(sale).Div(sale)
}

// Rank returns a new slice ordered by expiry ascending, efficiency descending,
// then sale price ascending. The sort is stable, so repeated calls on the same
// snapshot produce the same order.
func Rank(units []models.GifticonUnit) []models.GifticonUnit {
	ranked := make([]models.GifticonUnit, len(units))
	copy(ranked, units)
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

func less(a, b models.GifticonUnit) bool {
	if !a.ExpiresAt.Equal(b.ExpiresAt) {
		return a.ExpiresAt.Before(b.ExpiresAt)
	}
	effA, effB := Efficiency(a), Efficiency(b)
	if cmp := effA.Cmp(effB); cmp != 0 {
		return cmp > 0
	}
	return a.SalePriceWon < b.SalePriceWon
}
