package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
)

// Repository defines coupon persistence.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	ListUsable(ctx context.Context, ownerID uuid.UUID) ([]models.Coupon, error)
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (int64, error)
	ListExpiredAvailable(ctx context.Context, now time.Time) ([]models.Coupon, error)
	MarkExpired(ctx context.Context, ids []uuid.UUID) (int64, error)
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

// FindByID loads a coupon by primary key.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ListUsable returns the owner's unexpired available coupons.
func (r *repository) ListUsable(ctx context.Context, ownerID uuid.UUID) ([]models.Coupon, error) {
	var rows []models.Coupon
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Where("status = ?", enums.CouponStatusAvailable).
		Where("expires_at > ?", time.Now().UTC()).
		Order("expires_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// MarkUsed consumes an available coupon. Zero rows affected means the coupon
// was already used or expired.
func (r *repository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", id).
		Where("status = ?", enums.CouponStatusAvailable).
		Updates(map[string]any{
			"status":  enums.CouponStatusUsed,
			"used_at": usedAt,
		})
	return result.RowsAffected, result.Error
}

// ListExpiredAvailable returns available coupons past their expiry date.
func (r *repository) ListExpiredAvailable(ctx context.Context, now time.Time) ([]models.Coupon, error) {
	var rows []models.Coupon
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.CouponStatusAvailable).
		Where("expires_at <= ?", now).
		Find(&rows).
		Error
	return rows, err
}

// MarkExpired flips the given coupons to expired, skipping used ones.
func (r *repository) MarkExpired(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id IN ?", ids).
		Where("status = ?", enums.CouponStatusAvailable).
		Update("status", enums.CouponStatusExpired)
	return result.RowsAffected, result.Error
}
