// Package coupons holds coupon persistence plus the pure best-coupon
// selection used by the checkout flow.
package coupons

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
)

var oneHundred = decimal.NewFromInt(100)

// Usable reports whether the coupon can apply to the given subtotal.
func Usable(coupon models.Coupon, subtotalWon int, now time.Time) bool {
	if coupon.Status != enums.CouponStatusAvailable {
		return false
	}
	if !now.Before(coupon.ExpiresAt) {
		return false
	}
	if coupon.MinPurchaseWon != nil && subtotalWon < *coupon.MinPurchaseWon {
		return false
	}
	return true
}

// EffectiveRate normalizes a coupon to a percentage for ranking. Fixed
// coupons are rated against their minimum purchase; without a minimum the
// rate is zero.
func EffectiveRate(coupon models.Coupon) decimal.Decimal {
	switch coupon.DiscountType {
	case enums.DiscountTypePercent:
		return decimal.NewFromInt(int64(coupon.DiscountValue))
	case enums.DiscountTypeFixed:
		if coupon.MinPurchaseWon == nil || *coupon.MinPurchaseWon == 0 {
			return decimal.Zero
		}
		return decimal.NewFromInt(int64(coupon.DiscountValue)).
			Div(decimal.NewFromInt(int64(*coupon.MinPurchaseWon))).
			Mul(oneHundred)
	default:
		return decimal.Zero
	}
}

// SelectBest filters usable coupons and picks the winner: soonest expiry
// first, then highest effective rate. Returns nil when nothing qualifies.
func SelectBest(candidates []models.Coupon, subtotalWon int, now time.Time) *models.Coupon {
	usable := make([]models.Coupon, 0, len(candidates))
	for _, coupon := range candidates {
		if Usable(coupon, subtotalWon, now) {
			usable = append(usable, coupon)
		}
	}
	if len(usable) == 0 {
		return nil
	}

	sort.SliceStable(usable, func(i, j int) bool {
		if !usable[i].ExpiresAt.Equal(usable[j].ExpiresAt) {
			return usable[i].ExpiresAt.Before(usable[j].ExpiresAt)
		}
		return EffectiveRate(usable[i]).Cmp(EffectiveRate(usable[j])) > 0
	})

	best := usable[0]
	return &best
}

// DiscountAmount computes the discount in won, clamped so the final total
// never drops below zero.
func DiscountAmount(coupon models.Coupon, subtotalWon int) int {
	if subtotalWon <= 0 {
		return 0
	}

	var discount int
	switch coupon.DiscountType {
	case enums.DiscountTypePercent:
		discount = int(decimal.NewFromInt(int64(subtotalWon)).
			Mul(decimal.NewFromInt(int64(coupon.DiscountValue))).
			Div(oneHundred).
			Floor().
			IntPart())
	case enums.DiscountTypeFixed:
		discount = coupon.DiscountValue
	}

	if discount > subtotalWon {
		discount = subtotalWon
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
