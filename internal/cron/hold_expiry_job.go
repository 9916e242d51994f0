package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/internal/reservation"
	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/metrics"
	"github.com/giftree-kr/giftree-backend/pkg/outbox"
	"github.com/giftree-kr/giftree-backend/pkg/outbox/payloads"
)

const defaultHoldTTL = 5 * time.Minute

// HoldExpiryJobParams configure the stale hold sweep.
type HoldExpiryJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Units   gifticons.Repository
	Outbox  outboxEmitter
	Metrics *metrics.CheckoutMetrics
	HoldTTL time.Duration
}

// NewHoldExpiryJob builds the sweep that returns orphaned holds to the pool.
// A hold normally ends with the session that created it; the sweep covers
// process crashes where the in-memory timer never fired.
func NewHoldExpiryJob(params HoldExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Units == nil {
		return nil, fmt.Errorf("gifticon repository required")
	}
	ttl := params.HoldTTL
	if ttl <= 0 {
		ttl = defaultHoldTTL
	}
	return &holdExpiryJob{
		logg:    params.Logger,
		db:      params.DB,
		units:   params.Units,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

type holdExpiryJob struct {
	logg    *logger.Logger
	db      txRunner
	units   gifticons.Repository
	outbox  outboxEmitter
	metrics *metrics.CheckoutMetrics
	ttl     time.Duration
	now     func() time.Time
}

func (j *holdExpiryJob) Name() string { return "hold-expiry" }

func (j *holdExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.units.ListStaleHolds(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale holds: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	// Events are grouped per holder so downstream consumers see one
	// notification per shopper, not one per unit.
	byHolder := make(map[uuid.UUID][]models.GifticonUnit)
	for _, unit := range stale {
		if unit.HolderID == nil {
			continue
		}
		byHolder[*unit.HolderID] = append(byHolder[*unit.HolderID], unit)
	}

	// One holder's failed release must not block the rest of the sweep.
	var errs []error
	released := 0
	for holderID, units := range byHolder {
		freed, err := j.releaseHolderUnits(ctx, holderID, units)
		if err != nil {
			errs = append(errs, fmt.Errorf("holder %s: %w", holderID, err))
			continue
		}
		released += len(freed)
	}

	j.metrics.IncReleases(reservation.TriggerSweep, released)
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": released})
	j.logg.Info(logCtx, "stale hold sweep complete")
	return multierr.Combine(errs...)
}

func (j *holdExpiryJob) releaseHolderUnits(ctx context.Context, holderID uuid.UUID, units []models.GifticonUnit) ([]uuid.UUID, error) {
	var freed []uuid.UUID
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.units.WithTx(tx)
		for _, unit := range units {
			rows, err := repo.ConditionalUpdateStatusForHolder(ctx, unit.ID, enums.UnitStatusHeld, holderID, map[string]any{
				"status":    enums.UnitStatusAvailable,
				"holder_id": nil,
				"held_at":   nil,
			})
			if err != nil {
				return fmt.Errorf("release stale hold: %w", err)
			}
			if rows > 0 {
				freed = append(freed, unit.ID)
			}
		}
		if j.outbox == nil || len(freed) == 0 {
			return nil
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventHoldsReleased,
			AggregateType: enums.AggregateGifticon,
			AggregateID:   holderID,
			Data: payloads.HoldsReleasedEvent{
				HolderID: holderID,
				UnitIDs:  freed,
				Trigger:  reservation.TriggerSweep,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return freed, nil
}
