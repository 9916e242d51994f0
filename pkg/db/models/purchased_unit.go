package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchasedUnit is the buyer's personal record of a unit bought at checkout,
// carrying the barcode shown on the redemption screen.
type PurchasedUnit struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID      uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`
	UnitID       uuid.UUID `gorm:"column:unit_id;type:uuid;not null;uniqueIndex:idx_purchased_units_unit"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Brand        string    `gorm:"column:brand;not null"`
	Name         string    `gorm:"column:name;not null"`
	Barcode      string    `gorm:"column:barcode;not null"`
	FaceValueWon int       `gorm:"column:face_value_won;not null"`
	SalePriceWon int       `gorm:"column:sale_price_won;not null"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
