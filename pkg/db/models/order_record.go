package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/giftree-kr/giftree-backend/pkg/db/types"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
)

// OrderRecord is the durable order row written when a checkout is finalized.
type OrderRecord struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID      uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null;index"`
	Brand        string             `gorm:"column:brand;not null"`
	OrderName    string             `gorm:"column:order_name;not null"`
	UnitIDs      dbtypes.UUIDArray  `gorm:"column:unit_ids;type:uuid[];not null"`
	SubtotalWon  int                `gorm:"column:subtotal_won;not null"`
	DiscountWon  int                `gorm:"column:discount_won;not null"`
	TotalWon     int                `gorm:"column:total_won;not null"`
	CouponID     *uuid.UUID         `gorm:"column:coupon_id;type:uuid"`
	PaymentRef   string             `gorm:"column:payment_ref"`
	Status       enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'paid'"`
	RedeemedAt   *time.Time         `gorm:"column:redeemed_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
