package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/outbox"
	"github.com/giftree-kr/giftree-backend/pkg/outbox/payloads"
)

// finalize converts the order's held units into sold purchases in a single
// transaction. Runs are idempotent: units recorded in the session's completed
// set or already present in purchased_units are skipped, so a retry after a
// partial failure only picks up the remainder. Caller holds s.mu.
func (m *Manager) finalize(ctx context.Context, s *session, order *OrderContext, paymentRef string) error {
	alreadyPurchased, err := m.purchases.ListPurchasedUnitIDs(ctx, order.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing finalized units")
	}
	done := make(map[uuid.UUID]bool, len(alreadyPurchased))
	for _, id := range alreadyPurchased {
		done[id] = true
	}

	pending := make([]SelectionEntry, 0, len(order.Selections))
	for _, entry := range order.Selections {
		if s.completed[entry.UnitID] || done[entry.UnitID] {
			continue
		}
		pending = append(pending, entry)
	}
	if len(pending) == 0 {
		return nil
	}

	err = m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		unitRepo := m.units.WithTx(tx)
		purchaseRepo := m.purchases.WithTx(tx)

		purchased := make([]models.PurchasedUnit, 0, len(pending))
		for _, entry := range pending {
			rows, err := unitRepo.ConditionalUpdateStatusForHolder(ctx, entry.UnitID, enums.UnitStatusHeld, order.HolderID, map[string]any{
				"status": enums.UnitStatusSold,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking unit sold")
			}
			unit, err := unitRepo.FindByID(ctx, entry.UnitID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading unit for purchase record")
			}
			if rows == 0 {
				// Another finalize run got here first. Tolerate only a
				// same-buyer sold row; anything else aborts the batch.
				if unit.Status == enums.UnitStatusSold && unit.HolderID != nil && *unit.HolderID == order.HolderID {
					continue
				}
				return pkgerrors.New(pkgerrors.CodeStateConflict, "unit hold was lost before finalize")
			}
			purchased = append(purchased, models.PurchasedUnit{
				ID:           uuid.New(),
				BuyerID:      order.HolderID,
				UnitID:       unit.ID,
				OrderID:      order.OrderID,
				Brand:        unit.Brand,
				Name:         unit.Name,
				Barcode:      unit.Barcode,
				FaceValueWon: unit.FaceValueWon,
				SalePriceWon: unit.SalePriceWon,
				ExpiresAt:    unit.ExpiresAt,
			})
		}

		if err := purchaseRepo.InsertPurchasedUnits(ctx, purchased); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing purchase records")
		}

		if _, err := purchaseRepo.FindOrderByID(ctx, order.OrderID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking order record")
			}
			record := &models.OrderRecord{
				ID:          order.OrderID,
				BuyerID:     order.HolderID,
				Brand:       order.Brand,
				OrderName:   order.OrderName,
				UnitIDs:     order.UnitIDs(),
				SubtotalWon: order.SubtotalWon,
				DiscountWon: order.DiscountWon,
				TotalWon:    order.TotalWon,
				CouponID:    order.CouponID,
				PaymentRef:  paymentRef,
				Status:      enums.OrderStatusPaid,
			}
			if err := purchaseRepo.InsertOrderRecord(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing order record")
			}
		}

		if order.CouponID != nil {
			if _, err := m.coupons.WithTx(tx).MarkUsed(ctx, *order.CouponID, time.Now().UTC()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consuming coupon")
			}
		}

		if m.events != nil {
			err := m.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCheckoutCompleted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.OrderID,
				Actor:         &outbox.ActorRef{HolderID: order.HolderID},
				Data: payloads.CheckoutCompletedEvent{
					OrderID:     order.OrderID,
					BuyerID:     order.HolderID,
					Brand:       order.Brand,
					UnitIDs:     order.UnitIDs(),
					SubtotalWon: order.SubtotalWon,
					DiscountWon: order.DiscountWon,
					TotalWon:    order.TotalWon,
					CouponID:    order.CouponID,
				},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, entry := range pending {
		s.completed[entry.UnitID] = true
	}
	m.met.AddFinalized(len(pending))
	return nil
}
