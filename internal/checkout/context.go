// Package checkout drives the three-stage purchase flow: selecting units,
// paying through the external widget, and redeeming. One session object per
// shopper serializes that shopper's operations; cross-shopper safety lives in
// the inventory store's conditional updates.
package checkout

import (
	"time"

	"github.com/google/uuid"
)

// SelectionEntry is one user-facing selection. UnitID may differ from
// DisplayID when a same-bracket sibling was substituted after a lost race.
type SelectionEntry struct {
	DisplayID    uuid.UUID `json:"display_id"`
	UnitID       uuid.UUID `json:"unit_id"`
	FaceValueWon int       `json:"face_value_won"`
	SalePriceWon int       `json:"sale_price_won"`
}

// OrderContext is the cross-stage order snapshot persisted to the handoff
// store before the session enters the paying stage. It outlives the process
// so a reload mid-payment can recover.
type OrderContext struct {
	OrderID     uuid.UUID        `json:"order_id"`
	SessionID   uuid.UUID        `json:"session_id"`
	HolderID    uuid.UUID        `json:"holder_id"`
	Brand       string           `json:"brand"`
	OrderName   string           `json:"order_name"`
	CustomerKey string           `json:"customer_key"`
	Selections  []SelectionEntry `json:"selections"`
	SubtotalWon int              `json:"subtotal_won"`
	DiscountWon int              `json:"discount_won"`
	TotalWon    int              `json:"total_won"`
	CouponID    *uuid.UUID       `json:"coupon_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// UnitIDs returns the reserved unit ids in the selection.
func (o OrderContext) UnitIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.Selections))
	for _, entry := range o.Selections {
		ids = append(ids, entry.UnitID)
	}
	return ids
}
