package payloads

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutCompletedEvent is emitted when a checkout finalizes units to sold.
type CheckoutCompletedEvent struct {
	OrderID     uuid.UUID   `json:"orderId"`
	BuyerID     uuid.UUID   `json:"buyerId"`
	Brand       string      `json:"brand"`
	UnitIDs     []uuid.UUID `json:"unitIds"`
	SubtotalWon int         `json:"subtotalWon"`
	DiscountWon int         `json:"discountWon"`
	TotalWon    int         `json:"totalWon"`
	CouponID    *uuid.UUID  `json:"couponId,omitempty"`
}

// HoldsReleasedEvent is emitted when holds return to the available pool.
type HoldsReleasedEvent struct {
	HolderID uuid.UUID   `json:"holderId"`
	Brand    string      `json:"brand,omitempty"`
	UnitIDs  []uuid.UUID `json:"unitIds"`
	Trigger  string      `json:"trigger"`
}

// UnitsExpiredEvent is emitted by the expiry sweep.
type UnitsExpiredEvent struct {
	UnitIDs   []uuid.UUID `json:"unitIds"`
	ExpiredAt time.Time   `json:"expiredAt"`
}

// CouponsExpiredEvent is emitted by the coupon sweep.
type CouponsExpiredEvent struct {
	CouponIDs []uuid.UUID `json:"couponIds"`
	ExpiredAt time.Time   `json:"expiredAt"`
}
