package reservation

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
)

func setupReservationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:reservation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
	require.NoError(t, db.Exec(schema).Error)

	// Single connection keeps concurrent writers off sqlite's table locks.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func seedAvailableUnit(t *testing.T, db *gorm.DB, brand string) models.GifticonUnit {
	t.Helper()

	unit := models.GifticonUnit{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		Brand:        brand,
		Name:         brand + " gift card",
		Barcode:      uuid.NewString(),
		FaceValueWon: 10000,
		SalePriceWon: 8500,
		ExpiresAt:    time.Now().UTC().Add(72 * time.Hour),
		Status:       enums.UnitStatusAvailable,
	}
	require.NoError(t, db.Create(&unit).Error)
	return unit
}

func newManager(t *testing.T, db *gorm.DB) *Manager {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	mgr, err := NewManager(gifticons.NewRepository(db), nil, logg)
	require.NoError(t, err)
	return mgr
}

func TestHoldThenConflict(t *testing.T) {
	t.Parallel()

	db := setupReservationDB(t)
	ctx := context.Background()
	unit := seedAvailableUnit(t, db, "cafe-bene")

	holderA := uuid.New()
	holderB := uuid.New()
	mgrA := newManager(t, db)
	mgrB := newManager(t, db)

	require.NoError(t, mgrA.Hold(ctx, unit.ID, holderA))

	err := mgrB.Hold(ctx, unit.ID, holderB)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var row models.GifticonUnit
	require.NoError(t, db.First(&row, "id = ?", unit.ID).Error)
	assert.Equal(t, enums.UnitStatusHeld, row.Status)
	require.NotNil(t, row.HolderID)
	assert.Equal(t, holderA, *row.HolderID)
}

func TestConcurrentHoldsExactlyOneWins(t *testing.T) {
	t.Parallel()

	db := setupReservationDB(t)
	ctx := context.Background()
	unit := seedAvailableUnit(t, db, "cafe-bene")

	const shoppers = 8
	var wg sync.WaitGroup
	errs := make([]error, shoppers)
	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mgr := newManager(t, db)
			errs[i] = mgr.Hold(ctx, unit.ID, uuid.New())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)
}

func TestReleaseIdempotent(t *testing.T) {
	t.Parallel()

	db := setupReservationDB(t)
	ctx := context.Background()
	unit := seedAvailableUnit(t, db, "cafe-bene")
	mgr := newManager(t, db)
	holder := uuid.New()

	require.NoError(t, mgr.Hold(ctx, unit.ID, holder))

	released, err := mgr.Release(ctx, []uuid.UUID{unit.ID}, holder, TriggerDeselect)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	// Already available: no-op.
	released, err = mgr.Release(ctx, []uuid.UUID{unit.ID}, holder, TriggerDeselect)
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	// Unknown id: no-op.
	released, err = mgr.Release(ctx, []uuid.UUID{uuid.New()}, holder, TriggerDeselect)
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	var row models.GifticonUnit
	require.NoError(t, db.First(&row, "id = ?", unit.ID).Error)
	assert.Equal(t, enums.UnitStatusAvailable, row.Status)
	assert.Nil(t, row.HolderID)
	assert.Nil(t, row.HeldAt)
}

func TestReleaseSkipsUnitReheldByAnotherShopper(t *testing.T) {
	t.Parallel()

	db := setupReservationDB(t)
	ctx := context.Background()
	unit := seedAvailableUnit(t, db, "cafe-bene")

	holderA := uuid.New()
	holderB := uuid.New()
	mgrA := newManager(t, db)
	mgrB := newManager(t, db)

	require.NoError(t, mgrA.Hold(ctx, unit.ID, holderA))

	// The sweep reaps A's hold out of band, then B takes the unit.
	require.NoError(t, db.Model(&models.GifticonUnit{}).
		Where("id = ?", unit.ID).
		Updates(map[string]any{"status": enums.UnitStatusAvailable, "holder_id": nil, "held_at": nil}).
		Error)
	require.NoError(t, mgrB.Hold(ctx, unit.ID, holderB))

	// A's session still remembers the unit; its release must not free B's hold.
	released, err := mgrA.Release(ctx, []uuid.UUID{unit.ID}, holderA, TriggerDeselect)
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	var row models.GifticonUnit
	require.NoError(t, db.First(&row, "id = ?", unit.ID).Error)
	assert.Equal(t, enums.UnitStatusHeld, row.Status)
	require.NotNil(t, row.HolderID)
	assert.Equal(t, holderB, *row.HolderID)
}

func TestReleaseAllForHolderScopedToBrand(t *testing.T) {
	t.Parallel()

	db := setupReservationDB(t)
	ctx := context.Background()
	mgr := newManager(t, db)
	holder := uuid.New()

	cafe1 := seedAvailableUnit(t, db, "cafe-bene")
	cafe2 := seedAvailableUnit(t, db, "cafe-bene")
	burger := seedAvailableUnit(t, db, "burger-hub")

	require.NoError(t, mgr.Hold(ctx, cafe1.ID, holder))
	require.NoError(t, mgr.Hold(ctx, cafe2.ID, holder))
	require.NoError(t, mgr.Hold(ctx, burger.ID, holder))

	released, err := mgr.ReleaseAllForHolder(ctx, "cafe-bene", holder, TriggerTeardown)
	require.NoError(t, err)
	assert.Len(t, released, 2)

	var row models.GifticonUnit
	require.NoError(t, db.First(&row, "id = ?", burger.ID).Error)
	assert.Equal(t, enums.UnitStatusHeld, row.Status, "other brand's hold must survive")
}

func TestInFlightDedup(t *testing.T) {
	t.Parallel()

	db := setupReservationDB(t)
	unit := seedAvailableUnit(t, db, "cafe-bene")
	mgr := newManager(t, db)

	// Simulate an operation already in flight for the unit.
	require.True(t, mgr.begin(unit.ID))

	err := mgr.Hold(context.Background(), unit.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	released, err := mgr.Release(context.Background(), []uuid.UUID{unit.ID}, uuid.New(), TriggerDeselect)
	require.NoError(t, err)
	assert.Equal(t, 0, released, "release for an in-flight unit is skipped")

	mgr.end(unit.ID)
	require.NoError(t, mgr.Hold(context.Background(), unit.ID, uuid.New()))
}
