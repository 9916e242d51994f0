package gifticons

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
)

func setupUnitsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:gifticons_" + uuid.NewString() + "?mode=memory&cache=shared"
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
	return db
}

func seedUnit(t *testing.T, db *gorm.DB, brand string, face, sale int, expiresAt time.Time) models.GifticonUnit {
	t.Helper()

	unit := models.GifticonUnit{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		Brand:        brand,
		Name:         brand + " gift card",
		Barcode:      uuid.NewString(),
		FaceValueWon: face,
		SalePriceWon: sale,
		ExpiresAt:    expiresAt,
		Status:       enums.UnitStatusAvailable,
	}
	require.NoError(t, db.Create(&unit).Error)
	return unit
}

func TestConditionalUpdateStatus(t *testing.T) {
	t.Parallel()

	db := setupUnitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := seedUnit(t, db, "cafe-bene", 10000, 8500, time.Now().UTC().Add(72*time.Hour))
	holder := uuid.New()
	now := time.Now().UTC()

	affected, err := repo.ConditionalUpdateStatus(ctx, unit.ID, enums.UnitStatusAvailable, map[string]any{
		"status":    enums.UnitStatusHeld,
		"holder_id": holder,
		"held_at":   now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Same expectation again loses: the row is no longer available.
	affected, err = repo.ConditionalUpdateStatus(ctx, unit.ID, enums.UnitStatusAvailable, map[string]any{
		"status":    enums.UnitStatusHeld,
		"holder_id": uuid.New(),
		"held_at":   now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	reloaded, err := repo.FindByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusHeld, reloaded.Status)
	require.NotNil(t, reloaded.HolderID)
	assert.Equal(t, holder, *reloaded.HolderID)
}

func TestConditionalUpdateStatusForHolderMismatch(t *testing.T) {
	t.Parallel()

	db := setupUnitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := seedUnit(t, db, "cafe-bene", 10000, 8500, time.Now().UTC().Add(72*time.Hour))
	owner := uuid.New()

	_, err := repo.ConditionalUpdateStatus(ctx, unit.ID, enums.UnitStatusAvailable, map[string]any{
		"status":    enums.UnitStatusHeld,
		"holder_id": owner,
		"held_at":   time.Now().UTC(),
	})
	require.NoError(t, err)

	// A different holder's release condition must not match the row.
	affected, err := repo.ConditionalUpdateStatusForHolder(ctx, unit.ID, enums.UnitStatusHeld, uuid.New(), map[string]any{
		"status":    enums.UnitStatusAvailable,
		"holder_id": nil,
		"held_at":   nil,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	affected, err = repo.ConditionalUpdateStatusForHolder(ctx, unit.ID, enums.UnitStatusHeld, owner, map[string]any{
		"status":    enums.UnitStatusAvailable,
		"holder_id": nil,
		"held_at":   nil,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestRefreshHeldAtOnlyTouchesOwnHolds(t *testing.T) {
	t.Parallel()

	db := setupUnitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	stale := time.Now().UTC().Add(-10 * time.Minute)

	mine := seedUnit(t, db, "cafe-bene", 10000, 8500, time.Now().UTC().Add(72*time.Hour))
	theirs := seedUnit(t, db, "cafe-bene", 5000, 4000, time.Now().UTC().Add(72*time.Hour))
	for _, seed := range []struct {
		id     uuid.UUID
		holder uuid.UUID
	}{{mine.ID, owner}, {theirs.ID, uuid.New()}} {
		_, err := repo.ConditionalUpdateStatus(ctx, seed.id, enums.UnitStatusAvailable, map[string]any{
			"status":    enums.UnitStatusHeld,
			"holder_id": seed.holder,
			"held_at":   stale,
		})
		require.NoError(t, err)
	}

	fresh := time.Now().UTC()
	affected, err := repo.RefreshHeldAt(ctx, owner, []uuid.UUID{mine.ID, theirs.ID}, fresh)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	reloaded, err := repo.FindByID(ctx, mine.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.HeldAt)
	assert.WithinDuration(t, fresh, *reloaded.HeldAt, time.Second)

	other, err := repo.FindByID(ctx, theirs.ID)
	require.NoError(t, err)
	require.NotNil(t, other.HeldAt)
	assert.WithinDuration(t, stale, *other.HeldAt, time.Second)

	affected, err = repo.RefreshHeldAt(ctx, owner, nil, fresh)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestConditionalUpdateStatusMissingRow(t *testing.T) {
	t.Parallel()

	db := setupUnitsTestDB(t)
	repo := NewRepository(db)

	affected, err := repo.ConditionalUpdateStatus(context.Background(), uuid.New(), enums.UnitStatusAvailable, map[string]any{
		"status": enums.UnitStatusHeld,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestFindAvailableByBrandExcludesExpiredAndForeign(t *testing.T) {
	t.Parallel()

	db := setupUnitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	live := seedUnit(t, db, "cafe-bene", 10000, 8500, time.Now().UTC().Add(48*time.Hour))
	seedUnit(t, db, "cafe-bene", 5000, 4500, time.Now().UTC().Add(-time.Hour))
	seedUnit(t, db, "burger-hub", 10000, 9000, time.Now().UTC().Add(48*time.Hour))

	rows, err := repo.FindAvailableByBrand(ctx, "cafe-bene")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, live.ID, rows[0].ID)
}

func TestListStaleHolds(t *testing.T) {
	t.Parallel()

	db := setupUnitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	holder := uuid.New()
	stale := seedUnit(t, db, "cafe-bene", 10000, 8500, time.Now().UTC().Add(48*time.Hour))
	fresh := seedUnit(t, db, "cafe-bene", 5000, 4500, time.Now().UTC().Add(48*time.Hour))

	oldHold := time.Now().UTC().Add(-10 * time.Minute)
	newHold := time.Now().UTC().Add(-30 * time.Second)
	require.NoError(t, db.Model(&models.GifticonUnit{}).Where("id = ?", stale.ID).
		Updates(map[string]any{"status": enums.UnitStatusHeld, "holder_id": holder, "held_at": oldHold}).Error)
	require.NoError(t, db.Model(&models.GifticonUnit{}).Where("id = ?", fresh.ID).
		Updates(map[string]any{"status": enums.UnitStatusHeld, "holder_id": holder, "held_at": newHold}).Error)

	rows, err := repo.ListStaleHolds(ctx, time.Now().UTC().Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}

func TestBrowseRanksAndLimits(t *testing.T) {
	t.Parallel()

	db := setupUnitsTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, newTestLogger())
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Now().UTC()
	soon := seedUnit(t, db, "cafe-bene", 10000, 9500, now.Add(24*time.Hour))
	efficient := seedUnit(t, db, "cafe-bene", 10000, 7000, now.Add(72*time.Hour))
	seedUnit(t, db, "cafe-bene", 5000, 4800, now.Add(96*time.Hour))

	result, err := svc.Browse(ctx, "cafe-bene", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Units, 2)
	assert.Equal(t, soon.ID, result.Units[0].ID)
	assert.Equal(t, efficient.ID, result.Units[1].ID)
}

func TestBrowseRequiresBrand(t *testing.T) {
	t.Parallel()

	db := setupUnitsTestDB(t)
	svc, err := NewService(NewRepository(db), newTestLogger())
	require.NoError(t, err)

	_, err = svc.Browse(context.Background(), "  ", 10)
	require.Error(t, err)
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}
