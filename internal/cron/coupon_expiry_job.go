package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/internal/coupons"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/outbox"
	"github.com/giftree-kr/giftree-backend/pkg/outbox/payloads"
)

// CouponExpiryJobParams configure the coupon expiry sweep.
type CouponExpiryJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Coupons coupons.Repository
	Outbox  outboxEmitter
}

// NewCouponExpiryJob builds the sweep that marks lapsed coupons expired.
func NewCouponExpiryJob(params CouponExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &couponExpiryJob{
		logg:    params.Logger,
		db:      params.DB,
		coupons: params.Coupons,
		outbox:  params.Outbox,
		now:     time.Now,
	}, nil
}

type couponExpiryJob struct {
	logg    *logger.Logger
	db      txRunner
	coupons coupons.Repository
	outbox  outboxEmitter
	now     func() time.Time
}

func (j *couponExpiryJob) Name() string { return "coupon-expiry" }

func (j *couponExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	lapsed, err := j.coupons.ListExpiredAvailable(ctx, now)
	if err != nil {
		return fmt.Errorf("query expired coupons: %w", err)
	}
	if len(lapsed) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(lapsed))
	for _, coupon := range lapsed {
		ids = append(ids, coupon.ID)
	}

	var marked int64
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		marked, err = j.coupons.WithTx(tx).MarkExpired(ctx, ids)
		if err != nil {
			return fmt.Errorf("mark coupons expired: %w", err)
		}
		if j.outbox == nil || marked == 0 {
			return nil
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCouponsExpired,
			AggregateType: enums.AggregateCoupon,
			AggregateID:   ids[0],
			Data: payloads.CouponsExpiredEvent{
				CouponIDs: ids,
				ExpiredAt: now,
			},
		})
	})
	if err != nil {
		return err
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": marked})
	j.logg.Info(logCtx, "coupon expiry sweep complete")
	return nil
}
