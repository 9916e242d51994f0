package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/pkg/enums"
)

// GifticonUnit is a single sellable gift-card instance listed by a seller.
//
// Invariant: status=held requires holder_id and held_at to be set; status=available
// requires both to be null. Transitions between statuses go through the conditional
// update in internal/gifticons, never a plain save.
type GifticonUnit struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID        `gorm:"column:seller_id;type:uuid;not null"`
	Brand         string           `gorm:"column:brand;not null;index"`
	Name          string           `gorm:"column:name;not null"`
	Barcode       string           `gorm:"column:barcode;not null"`
	FaceValueWon  int              `gorm:"column:face_value_won;not null"`
	SalePriceWon  int              `gorm:"column:sale_price_won;not null"`
	ExpiresAt     time.Time        `gorm:"column:expires_at;not null"`
	Status        enums.UnitStatus `gorm:"column:status;type:unit_status;not null;default:'available'"`
	HolderID      *uuid.UUID       `gorm:"column:holder_id;type:uuid"`
	HeldAt        *time.Time       `gorm:"column:held_at"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceBracket groups units by face value rounded down to the nearest 1000 won.
func (u GifticonUnit) PriceBracket() int {
	return u.FaceValueWon / 1000 * 1000
}
