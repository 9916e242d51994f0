package ranking

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
)

func unit(face, sale int, expiresAt time.Time) models.GifticonUnit {
	return models.GifticonUnit{
		ID:           uuid.New(),
		FaceValueWon: face,
		SalePriceWon: sale,
		ExpiresAt:    expiresAt,
	}
}

func TestRankExpiryDominatesEfficiency(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	soonLowDiscount := unit(10000, 9900, now.Add(24*time.Hour))
	lateHighDiscount := unit(10000, 5000, now.Add(72*time.Hour))

	ranked := Rank([]models.GifticonUnit{lateHighDiscount, soonLowDiscount})
	if ranked[0].ID != soonLowDiscount.ID {
		t.Fatalf("expected sooner-expiring unit first, got %+v", ranked[0])
	}
}

func TestRankEfficiencyBreaksExpiryTies(t *testing.T) {
	t.Parallel()

	expiry := time.Now().UTC().Add(48 * time.Hour)
	lowEfficiency := unit(10000, 9500, expiry)
	highEfficiency := unit(10000, 7000, expiry)

	ranked := Rank([]models.GifticonUnit{lowEfficiency, highEfficiency})
	if ranked[0].ID != highEfficiency.ID {
		t.Fatalf("expected higher-efficiency unit first, got %+v", ranked[0])
	}
}

func TestRankSalePriceBreaksEfficiencyTies(t *testing.T) {
	t.Parallel()

	expiry := time.Now().UTC().Add(48 * time.Hour)
	// Identical efficiency (25% discount), different absolute price.
	cheap := unit(4000, 3000, expiry)
	pricey := unit(8000, 6000, expiry)

	ranked := Rank([]models.GifticonUnit{pricey, cheap})
	if ranked[0].ID != cheap.ID {
		t.Fatalf("expected cheaper unit first on efficiency tie, got %+v", ranked[0])
	}
}

func TestRankZeroSalePrice(t *testing.T) {
	t.Parallel()

	expiry := time.Now().UTC().Add(48 * time.Hour)
	free := unit(5000, 0, expiry)
	discounted := unit(5000, 4000, expiry)

	if !Efficiency(free).IsZero() {
		t.Fatalf("expected zero efficiency for zero sale price, got %s", Efficiency(free))
	}

	ranked := Rank([]models.GifticonUnit{free, discounted})
	if ranked[0].ID != discounted.ID {
		t.Fatalf("expected discounted unit to outrank zero-price unit, got %+v", ranked[0])
	}
}

func TestRankDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	units := []models.GifticonUnit{
		unit(10000, 8000, now.Add(72*time.Hour)),
		unit(5000, 4500, now.Add(24*time.Hour)),
		unit(20000, 15000, now.Add(24*time.Hour)),
		unit(3000, 2700, now.Add(48*time.Hour)),
		unit(3000, 2700, now.Add(48*time.Hour)),
	}

	first := Rank(units)
	for run := 0; run < 5; run++ {
		again := Rank(units)
		for i := range first {
			if first[i].ID != again[i].ID {
				t.Fatalf("run %d: order diverged at index %d", run, i)
			}
		}
	}

	// Input snapshot untouched.
	if units[0].FaceValueWon != 10000 {
		t.Fatalf("input slice mutated")
	}
}
