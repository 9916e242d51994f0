package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/pagination"
)

// Repository persists finalized purchases and order rows.
type Repository interface {
	InsertPurchasedUnits(ctx context.Context, units []models.PurchasedUnit) error
	InsertOrderRecord(ctx context.Context, record *models.OrderRecord) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.OrderRecord, error)
	ListPurchasedByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.PurchasedUnit, string, error)
	ListPurchasedUnitIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
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

// InsertPurchasedUnits writes the buyer's redemption records. The unique
// index on unit_id backs the finalize idempotence guarantee.
func (r *repository) InsertPurchasedUnits(ctx context.Context, units []models.PurchasedUnit) error {
	if len(units) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&units).Error
}

// InsertOrderRecord writes the durable order row.
func (r *repository) InsertOrderRecord(ctx context.Context, record *models.OrderRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindOrderByID loads one order row.
func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.OrderRecord, error) {
	var record models.OrderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListPurchasedByBuyer pages through the buyer's purchases, newest first.
func (r *repository) ListPurchasedByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.PurchasedUnit, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.PurchasedUnit
	err = qb.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// ListPurchasedUnitIDs returns the unit ids already finalized for an order.
func (r *repository) ListPurchasedUnitIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PurchasedUnit{}).
		Where("order_id = ?", orderID).
		Pluck("unit_id", &ids).
		Error
	return ids, err
}
