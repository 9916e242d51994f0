package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/outbox"
	"github.com/giftree-kr/giftree-backend/pkg/outbox/payloads"
)

// UnitExpiryJobParams configure the unit expiry sweep.
type UnitExpiryJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Units  gifticons.Repository
	Outbox outboxEmitter
}

// NewUnitExpiryJob builds the sweep that retires sellable units past their
// expiry date so they never surface in a view again.
func NewUnitExpiryJob(params UnitExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Units == nil {
		return nil, fmt.Errorf("gifticon repository required")
	}
	return &unitExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		units:  params.Units,
		outbox: params.Outbox,
		now:    time.Now,
	}, nil
}

type unitExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	units  gifticons.Repository
	outbox outboxEmitter
	now    func() time.Time
}

func (j *unitExpiryJob) Name() string { return "unit-expiry" }

func (j *unitExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	stale, err := j.units.ListExpiredAvailable(ctx, now)
	if err != nil {
		return fmt.Errorf("query expired units: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	var expired []uuid.UUID
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.units.WithTx(tx)
		for _, unit := range stale {
			rows, err := repo.ConditionalUpdateStatus(ctx, unit.ID, enums.UnitStatusAvailable, map[string]any{
				"status": enums.UnitStatusExpired,
			})
			if err != nil {
				return fmt.Errorf("expire unit: %w", err)
			}
			if rows > 0 {
				expired = append(expired, unit.ID)
			}
		}
		if j.outbox == nil || len(expired) == 0 {
			return nil
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUnitsExpired,
			AggregateType: enums.AggregateGifticon,
			AggregateID:   expired[0],
			Data: payloads.UnitsExpiredEvent{
				UnitIDs:   expired,
				ExpiredAt: now,
			},
		})
	})
	if err != nil {
		return err
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": len(expired)})
	j.logg.Info(logCtx, "unit expiry sweep complete")
	return nil
}
