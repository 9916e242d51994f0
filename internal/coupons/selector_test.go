package coupons

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
)

func intPtr(v int) *int { return &v }

func coupon(dt enums.DiscountType, value int, minPurchase *int, expiresAt time.Time) models.Coupon {
	return models.Coupon{
		ID:             uuid.New(),
		OwnerID:        uuid.New(),
		Name:           "test coupon",
		DiscountType:   dt,
		DiscountValue:  value,
		MinPurchaseWon: minPurchase,
		ExpiresAt:      expiresAt,
		Status:         enums.CouponStatusAvailable,
	}
}

func TestSelectBestFiltersAndRanks(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	expiry := now.Add(72 * time.Hour)

	percent15 := coupon(enums.DiscountTypePercent, 15, intPtr(30000), expiry)
	fixed3000 := coupon(enums.DiscountTypeFixed, 3000, nil, expiry)
	fixed5000 := coupon(enums.DiscountTypeFixed, 5000, intPtr(20000), expiry)

	best := SelectBest([]models.Coupon{percent15, fixed3000, fixed5000}, 20000, now)
	if best == nil {
		t.Fatal("expected a coupon")
	}
	// percent15 fails its minimum; fixed5000 has rate 25 vs fixed3000's 0.
	if best.ID != fixed5000.ID {
		t.Fatalf("expected the 5000 won coupon, got %+v", best)
	}
	if got := DiscountAmount(*best, 20000); got != 5000 {
		t.Fatalf("expected discount 5000, got %d", got)
	}
}

func TestSelectBestPrefersSoonerExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	expiringSoon := coupon(enums.DiscountTypePercent, 5, nil, now.Add(24*time.Hour))
	bigButLater := coupon(enums.DiscountTypePercent, 50, nil, now.Add(96*time.Hour))

	best := SelectBest([]models.Coupon{bigButLater, expiringSoon}, 10000, now)
	if best == nil || best.ID != expiringSoon.ID {
		t.Fatalf("expected the sooner-expiring coupon, got %+v", best)
	}
}

func TestSelectBestSkipsUnusable(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	expired := coupon(enums.DiscountTypePercent, 20, nil, now.Add(-time.Hour))
	used := coupon(enums.DiscountTypeFixed, 1000, nil, now.Add(24*time.Hour))
	used.Status = enums.CouponStatusUsed
	tooSmall := coupon(enums.DiscountTypeFixed, 2000, intPtr(50000), now.Add(24*time.Hour))

	if best := SelectBest([]models.Coupon{expired, used, tooSmall}, 10000, now); best != nil {
		t.Fatalf("expected no usable coupon, got %+v", best)
	}
}

func TestDiscountAmountClampsAtSubtotal(t *testing.T) {
	t.Parallel()

	big := coupon(enums.DiscountTypeFixed, 5000, nil, time.Now().UTC().Add(24*time.Hour))
	if got := DiscountAmount(big, 2000); got != 2000 {
		t.Fatalf("expected discount clamped to 2000, got %d", got)
	}
}

func TestDiscountAmountPercentFloors(t *testing.T) {
	t.Parallel()

	p := coupon(enums.DiscountTypePercent, 15, nil, time.Now().UTC().Add(24*time.Hour))
	// 15% of 9999 = 1499.85, floored.
	if got := DiscountAmount(p, 9999); got != 1499 {
		t.Fatalf("expected floor(1499.85)=1499, got %d", got)
	}
}

func TestEffectiveRateFixedWithoutMinimum(t *testing.T) {
	t.Parallel()

	c := coupon(enums.DiscountTypeFixed, 3000, nil, time.Now().UTC().Add(24*time.Hour))
	if !EffectiveRate(c).IsZero() {
		t.Fatalf("expected zero rate, got %s", EffectiveRate(c))
	}
}
