package gifticons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
)

// Repository defines persistence operations for gifticon units. Status
// transitions go through the conditional update forms only; a plain save
// would reintroduce the read-then-write race.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.GifticonUnit, error)
	FindAvailableByBrand(ctx context.Context, brand string) ([]models.GifticonUnit, error)
	FindHeldByHolder(ctx context.Context, brand string, holderID uuid.UUID) ([]models.GifticonUnit, error)
	ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, expected enums.UnitStatus, fields map[string]any) (int64, error)
	ConditionalUpdateStatusForHolder(ctx context.Context, id uuid.UUID, expected enums.UnitStatus, holderID uuid.UUID, fields map[string]any) (int64, error)
	RefreshHeldAt(ctx context.Context, holderID uuid.UUID, unitIDs []uuid.UUID, heldAt time.Time) (int64, error)
	Create(ctx context.Context, unit *models.GifticonUnit) error
	ListStaleHolds(ctx context.Context, cutoff time.Time) ([]models.GifticonUnit, error)
	ListExpiredAvailable(ctx context.Context, now time.Time) ([]models.GifticonUnit, error)
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// FindByID loads a unit by primary key.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GifticonUnit, error) {
	var unit models.GifticonUnit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindAvailableByBrand lists sellable units for the brand, unexpired only.
func (r *repository) FindAvailableByBrand(ctx context.Context, brand string) ([]models.GifticonUnit, error) {
	var rows []models.GifticonUnit
	err := r.db.WithContext(ctx).
		Where("brand = ?", brand).
		Where("status = ?", enums.UnitStatusAvailable).
		Where("expires_at > ?", time.Now().UTC()).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// FindHeldByHolder lists the units a holder currently holds for one brand.
func (r *repository) FindHeldByHolder(ctx context.Context, brand string, holderID uuid.UUID) ([]models.GifticonUnit, error) {
	var rows []models.GifticonUnit
	err := r.db.WithContext(ctx).
		Where("brand = ?", brand).
		Where("status = ?", enums.UnitStatusHeld).
		Where("holder_id = ?", holderID).
		Find(&rows).
		Error
	return rows, err
}

// ConditionalUpdateStatus applies fields only when the row still carries the
// expected status. Zero rows affected signals a lost race, not an error.
func (r *repository) ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, expected enums.UnitStatus, fields map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GifticonUnit{}).
		Where("id = ?", id).
		Where("status = ?", expected).
		Updates(fields)
	return result.RowsAffected, result.Error
}

// ConditionalUpdateStatusForHolder applies fields only when the row carries
// both the expected status and the expected holder. Release paths use this
// form so a stale session cannot free a unit another shopper re-held.
func (r *repository) ConditionalUpdateStatusForHolder(ctx context.Context, id uuid.UUID, expected enums.UnitStatus, holderID uuid.UUID, fields map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GifticonUnit{}).
		Where("id = ?", id).
		Where("status = ?", expected).
		Where("holder_id = ?", holderID).
		Updates(fields)
	return result.RowsAffected, result.Error
}

// RefreshHeldAt moves held_at forward for the holder's live holds so the
// stale-hold sweep only reaps orphaned sessions.
func (r *repository) RefreshHeldAt(ctx context.Context, holderID uuid.UUID, unitIDs []uuid.UUID, heldAt time.Time) (int64, error) {
	if len(unitIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.GifticonUnit{}).
		Where("id IN ?", unitIDs).
		Where("status = ?", enums.UnitStatusHeld).
		Where("holder_id = ?", holderID).
		Update("held_at", heldAt)
	return result.RowsAffected, result.Error
}

// Create inserts a new unit row.
func (r *repository) Create(ctx context.Context, unit *models.GifticonUnit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

// ListStaleHolds returns held units whose hold predates the cutoff.
func (r *repository) ListStaleHolds(ctx context.Context, cutoff time.Time) ([]models.GifticonUnit, error) {
	var rows []models.GifticonUnit
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.UnitStatusHeld).
		Where("held_at < ?", cutoff).
		Find(&rows).
		Error
	return rows, err
}

// ListExpiredAvailable returns sellable units that passed their expiry date.
func (r *repository) ListExpiredAvailable(ctx context.Context, now time.Time) ([]models.GifticonUnit, error) {
	var rows []models.GifticonUnit
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.UnitStatusAvailable).
		Where("expires_at <= ?", now).
		Find(&rows).
		Error
	return rows, err
}
