// Package reservation places and releases soft holds on gifticon units.
// Cross-shopper safety rests entirely on the store's conditional update;
// within one session the manager serializes operations per unit id.
package reservation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/metrics"
)

// Release triggers, recorded on the release metric.
const (
	TriggerDeselect   = "deselect"
	TriggerTimeout    = "timeout"
	TriggerTeardown   = "teardown"
	TriggerModeSwitch = "mode_switch"
	TriggerSweep      = "sweep"
)

// Manager coordinates holds for one checkout session. Construct one per
// session so in-flight tracking tears down with it.
type Manager struct {
	repo gifticons.Repository
	met  *metrics.CheckoutMetrics
	logg *logger.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// NewManager builds a reservation manager backed by the unit repository.
func NewManager(repo gifticons.Repository, met *metrics.CheckoutMetrics, logg *logger.Logger) (*Manager, error) {
	if repo == nil {
		return nil, fmt.Errorf("gifticon repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Manager{
		repo:     repo,
		met:      met,
		logg:     logg,
		inFlight: make(map[uuid.UUID]bool),
	}, nil
}

func (m *Manager) begin(unitID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight[unitID] {
		return false
	}
	m.inFlight[unitID] = true
	return true
}

func (m *Manager) end(unitID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, unitID)
}

// Hold claims an available unit for the holder. A zero-row update means
// another shopper got there first; the caller drops the unit and re-ranks.
func (m *Manager) Hold(ctx context.Context, unitID, holderID uuid.UUID) error {
	if !m.begin(unitID) {
		return pkgerrors.New(pkgerrors.CodeConflict, "another operation for this unit is in flight")
	}
	defer m.end(unitID)

	affected, err := m.repo.ConditionalUpdateStatus(ctx, unitID, enums.UnitStatusAvailable, map[string]any{
		"status":    enums.UnitStatusHeld,
		"holder_id": holderID,
		"held_at":   time.Now().UTC(),
	})
	if err != nil {
		m.met.IncHold("error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "placing hold")
	}
	if affected == 0 {
		m.met.IncHold("conflict")
		m.met.IncConflict()
		return pkgerrors.New(pkgerrors.CodeConflict, "unit is no longer available")
	}

	m.met.IncHold("ok")
	m.logg.Info(m.logg.WithField(ctx, "unit_id", unitID.String()), "hold placed")
	return nil
}

// Release returns the holder's held units to the pool. Idempotent: units
// already available, missing, held by someone else, or with an operation in
// flight are skipped, never errors. The holder condition keeps a stale
// session from freeing a unit another shopper re-held after a sweep. Returns
// the number of rows actually released.
func (m *Manager) Release(ctx context.Context, unitIDs []uuid.UUID, holderID uuid.UUID, trigger string) (int, error) {
	released := 0
	for _, unitID := range unitIDs {
		if !m.begin(unitID) {
			continue
		}
		affected, err := m.repo.ConditionalUpdateStatusForHolder(ctx, unitID, enums.UnitStatusHeld, holderID, map[string]any{
			"status":    enums.UnitStatusAvailable,
			"holder_id": nil,
			"held_at":   nil,
		})
		m.end(unitID)
		if err != nil {
			return released, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "releasing hold")
		}
		if affected > 0 {
			released++
		}
	}
	m.met.IncReleases(trigger, released)
	return released, nil
}

// ReleaseAllForHolder releases every hold this holder has at one brand.
// Holds at other brands are never touched.
func (m *Manager) ReleaseAllForHolder(ctx context.Context, brand string, holderID uuid.UUID, trigger string) ([]uuid.UUID, error) {
	held, err := m.repo.FindHeldByHolder(ctx, brand, holderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing holds")
	}
	ids := make([]uuid.UUID, 0, len(held))
	for _, unit := range held {
		ids = append(ids, unit.ID)
	}
	if _, err := m.Release(ctx, ids, holderID, trigger); err != nil {
		return nil, err
	}
	return ids, nil
}
