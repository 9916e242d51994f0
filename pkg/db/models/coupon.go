package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/pkg/enums"
)

// Coupon is a discount voucher owned by a buyer.
type Coupon struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID        uuid.UUID          `gorm:"column:owner_id;type:uuid;not null;index"`
	Name           string             `gorm:"column:name;not null"`
	Description    string             `gorm:"column:description"`
	DiscountType   enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	DiscountValue  int                `gorm:"column:discount_value;not null"`
	MinPurchaseWon *int               `gorm:"column:min_purchase_won"`
	ExpiresAt      time.Time          `gorm:"column:expires_at;not null"`
	Status         enums.CouponStatus `gorm:"column:status;type:coupon_status;not null;default:'available'"`
	UsedAt         *time.Time         `gorm:"column:used_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
