package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/internal/coupons"
	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r *sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupJobsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:cron_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	unitSchema := `
CREATE TABLE IF NOT EXISTS gifticon_units (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  brand TEXT NOT NULL,
  name TEXT NOT NULL,
  barcode TEXT NOT NULL,
  face_value_won INTEGER NOT NULL,
  sale_price_won INTEGER NOT NULL,
  expires_at DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'available',
  holder_id TEXT,
  held_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	couponSchema := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  discount_type TEXT NOT NULL,
  discount_value INTEGER NOT NULL,
  min_purchase_won INTEGER,
  expires_at DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'available',
  used_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(unitSchema).Error)
	require.NoError(t, db.Exec(couponSchema).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func seedHeldUnit(t *testing.T, db *gorm.DB, heldAgo time.Duration) models.GifticonUnit {
	t.Helper()

	holder := uuid.New()
	heldAt := time.Now().UTC().Add(-heldAgo)
	unit := models.GifticonUnit{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		Brand:        "cafe-bene",
		Name:         "cafe-bene gift card",
		Barcode:      uuid.NewString(),
		FaceValueWon: 5000,
		SalePriceWon: 4000,
		ExpiresAt:    time.Now().UTC().Add(72 * time.Hour),
		Status:       enums.UnitStatusHeld,
		HolderID:     &holder,
		HeldAt:       &heldAt,
	}
	require.NoError(t, db.Create(&unit).Error)
	return unit
}

func TestHoldExpiryJobReleasesStaleHoldsOnly(t *testing.T) {
	t.Parallel()

	db := setupJobsDB(t)
	stale := seedHeldUnit(t, db, 10*time.Minute)
	fresh := seedHeldUnit(t, db, 30*time.Second)

	job, err := NewHoldExpiryJob(HoldExpiryJobParams{
		Logger:  newCronTestLogger(),
		DB:      &sqliteTxRunner{db: db},
		Units:   gifticons.NewRepository(db),
		HoldTTL: 5 * time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var staleRow, freshRow models.GifticonUnit
	require.NoError(t, db.First(&staleRow, "id = ?", stale.ID).Error)
	require.NoError(t, db.First(&freshRow, "id = ?", fresh.ID).Error)

	assert.Equal(t, enums.UnitStatusAvailable, staleRow.Status)
	assert.Nil(t, staleRow.HolderID)
	assert.Nil(t, staleRow.HeldAt)
	assert.Equal(t, enums.UnitStatusHeld, freshRow.Status)
}

func TestUnitExpiryJobRetiresLapsedUnits(t *testing.T) {
	t.Parallel()

	db := setupJobsDB(t)
	lapsed := models.GifticonUnit{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		Brand:        "cafe-bene",
		Name:         "cafe-bene gift card",
		Barcode:      uuid.NewString(),
		FaceValueWon: 5000,
		SalePriceWon: 4000,
		ExpiresAt:    time.Now().UTC().Add(-time.Hour),
		Status:       enums.UnitStatusAvailable,
	}
	require.NoError(t, db.Create(&lapsed).Error)
	current := models.GifticonUnit{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		Brand:        "cafe-bene",
		Name:         "cafe-bene gift card",
		Barcode:      uuid.NewString(),
		FaceValueWon: 5000,
		SalePriceWon: 4000,
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
		Status:       enums.UnitStatusAvailable,
	}
	require.NoError(t, db.Create(&current).Error)

	job, err := NewUnitExpiryJob(UnitExpiryJobParams{
		Logger: newCronTestLogger(),
		DB:     &sqliteTxRunner{db: db},
		Units:  gifticons.NewRepository(db),
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var lapsedRow, currentRow models.GifticonUnit
	require.NoError(t, db.First(&lapsedRow, "id = ?", lapsed.ID).Error)
	require.NoError(t, db.First(&currentRow, "id = ?", current.ID).Error)

	assert.Equal(t, enums.UnitStatusExpired, lapsedRow.Status)
	assert.Equal(t, enums.UnitStatusAvailable, currentRow.Status)
}

func TestCouponExpiryJobMarksLapsedCoupons(t *testing.T) {
	t.Parallel()

	db := setupJobsDB(t)
	lapsed := models.Coupon{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		Name:          "lapsed",
		DiscountType:  enums.DiscountTypePercent,
		DiscountValue: 10,
		ExpiresAt:     time.Now().UTC().Add(-time.Hour),
		Status:        enums.CouponStatusAvailable,
	}
	require.NoError(t, db.Create(&lapsed).Error)
	active := models.Coupon{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		Name:          "active",
		DiscountType:  enums.DiscountTypePercent,
		DiscountValue: 10,
		ExpiresAt:     time.Now().UTC().Add(time.Hour),
		Status:        enums.CouponStatusAvailable,
	}
	require.NoError(t, db.Create(&active).Error)

	job, err := NewCouponExpiryJob(CouponExpiryJobParams{
		Logger:  newCronTestLogger(),
		DB:      &sqliteTxRunner{db: db},
		Coupons: coupons.NewRepository(db),
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var lapsedRow, activeRow models.Coupon
	require.NoError(t, db.First(&lapsedRow, "id = ?", lapsed.ID).Error)
	require.NoError(t, db.First(&activeRow, "id = ?", active.ID).Error)

	assert.Equal(t, enums.CouponStatusExpired, lapsedRow.Status)
	assert.Equal(t, enums.CouponStatusAvailable, activeRow.Status)
}
