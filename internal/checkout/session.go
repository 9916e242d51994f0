package checkout

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/internal/payments"
	"github.com/giftree-kr/giftree-backend/internal/reservation"
	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
)

// Mode names which selection algorithm currently drives the session.
type Mode string

const (
	ModeRecommended Mode = "recommended"
	ModeAutoFill    Mode = "autofill"
)

// session is one shopper's checkout at one brand. All fields behind mu; the
// mutex is the Go rendition of the original single-threaded event loop.
type session struct {
	id       uuid.UUID
	holderID uuid.UUID
	brand    string

	mu    sync.Mutex
	state enums.CheckoutState
	mode  Mode

	// Ranked snapshot of available units, refreshed on entry and on mode
	// switches. Units that lose a race are pruned from it.
	pool []models.GifticonUnit

	// Display bookkeeping for the recommended view.
	displayed    []uuid.UUID
	unitsByID    map[uuid.UUID]models.GifticonUnit
	bracketLoads map[int][]uuid.UUID

	selected map[uuid.UUID]SelectionEntry

	// Coupon pinning: a manual pick survives until the picker collapses or
	// the subtotal changes.
	pinnedCouponID *uuid.UUID

	orderID   uuid.UUID
	widget    payments.Handle
	completed map[uuid.UUID]bool

	reservations *reservation.Manager

	timer *time.Timer
	alive bool
}

func newSession(holderID uuid.UUID, brand string, mgr *reservation.Manager) *session {
	return &session{
		id:           uuid.New(),
		holderID:     holderID,
		brand:        brand,
		state:        enums.CheckoutStateSelecting,
		mode:         ModeRecommended,
		unitsByID:    make(map[uuid.UUID]models.GifticonUnit),
		bracketLoads: make(map[int][]uuid.UUID),
		selected:     make(map[uuid.UUID]SelectionEntry),
		completed:    make(map[uuid.UUID]bool),
		reservations: mgr,
		alive:        true,
	}
}

// resetView replaces the display bookkeeping with a fresh recommended view.
func (s *session) resetView(ranked, recommended []models.GifticonUnit) {
	s.pool = ranked
	s.displayed = s.displayed[:0]
	s.unitsByID = make(map[uuid.UUID]models.GifticonUnit, len(recommended))
	s.bracketLoads = make(map[int][]uuid.UUID)
	for _, unit := range recommended {
		s.show(unit)
	}
}

// show appends a unit to the display and records its bracket load order.
func (s *session) show(unit models.GifticonUnit) {
	s.displayed = append(s.displayed, unit.ID)
	s.unitsByID[unit.ID] = unit
	bracket := unit.PriceBracket()
	s.bracketLoads[bracket] = append(s.bracketLoads[bracket], unit.ID)
}

// hide removes a unit from the display and its bracket's load order.
func (s *session) hide(unitID uuid.UUID) {
	unit, ok := s.unitsByID[unitID]
	if !ok {
		return
	}
	delete(s.unitsByID, unitID)
	s.displayed = removeID(s.displayed, unitID)
	bracket := unit.PriceBracket()
	s.bracketLoads[bracket] = removeID(s.bracketLoads[bracket], unitID)
}

// dropFromPool removes a unit that lost a race from the candidate snapshot.
func (s *session) dropFromPool(unitID uuid.UUID) {
	for i := range s.pool {
		if s.pool[i].ID == unitID {
			s.pool = append(s.pool[:i], s.pool[i+1:]...)
			return
		}
	}
}

func (s *session) shownSet() map[uuid.UUID]bool {
	shown := make(map[uuid.UUID]bool, len(s.unitsByID))
	for id := range s.unitsByID {
		shown[id] = true
	}
	return shown
}

func (s *session) selectedSet() map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(s.selected))
	for id := range s.selected {
		set[id] = true
	}
	return set
}

func (s *session) selectedUnitIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.selected))
	for _, entry := range s.selected {
		ids = append(ids, entry.UnitID)
	}
	return ids
}

// subtotal sums the agreed sale prices of the current selection.
func (s *session) subtotal() int {
	total := 0
	for _, entry := range s.selected {
		total += entry.SalePriceWon
	}
	return total
}

// clearSelection drops every selection entry. Holds are the caller's problem.
func (s *session) clearSelection() {
	s.selected = make(map[uuid.UUID]SelectionEntry)
}

// stopTimer cancels the inactivity timer if one is armed.
func (s *session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func removeID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	for i := range ids {
		if ids[i] == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
