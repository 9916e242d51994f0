package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftree-kr/giftree-backend/internal/allocator"
	"github.com/giftree-kr/giftree-backend/internal/coupons"
	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/internal/payments"
	"github.com/giftree-kr/giftree-backend/internal/purchases"
	"github.com/giftree-kr/giftree-backend/internal/ranking"
	"github.com/giftree-kr/giftree-backend/internal/reservation"
	"github.com/giftree-kr/giftree-backend/pkg/config"
	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/metrics"
	"github.com/giftree-kr/giftree-backend/pkg/outbox"
	"github.com/giftree-kr/giftree-backend/pkg/outbox/payloads"
)

// txRunner abstracts the database transaction entry point.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// widgetInitializer is the init surface of the payment widget wrapper.
type widgetInitializer interface {
	Initialize(ctx context.Context, customerKey string) (payments.Handle, error)
}

// DisplayedUnit is one row of the session's current view.
type DisplayedUnit struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	FaceValueWon int       `json:"face_value_won"`
	SalePriceWon int       `json:"sale_price_won"`
	ExpiresAt    time.Time `json:"expires_at"`
	Bracket      int       `json:"bracket"`
	Selected     bool      `json:"selected"`
}

// Quote is the current price breakdown for the selection.
type Quote struct {
	SubtotalWon  int        `json:"subtotal_won"`
	DiscountWon  int        `json:"discount_won"`
	TotalWon     int        `json:"total_won"`
	CouponID     *uuid.UUID `json:"coupon_id,omitempty"`
	CouponName   string     `json:"coupon_name,omitempty"`
	CouponPinned bool       `json:"coupon_pinned"`
}

// Snapshot is the API view of a session.
type Snapshot struct {
	SessionID uuid.UUID           `json:"session_id"`
	State     enums.CheckoutState `json:"state"`
	Mode      Mode                `json:"mode"`
	Brand     string              `json:"brand"`
	Units     []DisplayedUnit     `json:"units"`
	Quote     Quote               `json:"quote"`
	OrderID   *uuid.UUID          `json:"order_id,omitempty"`
}

// Manager owns the live checkout sessions. One shopper's operations serialize
// on the session mutex; the manager map only guards lookup and eviction.
type Manager struct {
	tx        txRunner
	units     gifticons.Repository
	coupons   coupons.Repository
	purchases purchases.Repository
	widget    widgetInitializer
	handoff   *HandoffStore
	events    *outbox.Service
	met       *metrics.CheckoutMetrics
	logg      *logger.Logger
	cfg       config.CheckoutConfig

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewManager wires the checkout engine.
func NewManager(
	tx txRunner,
	units gifticons.Repository,
	couponRepo coupons.Repository,
	purchaseRepo purchases.Repository,
	widget widgetInitializer,
	handoff *HandoffStore,
	events *outbox.Service,
	met *metrics.CheckoutMetrics,
	logg *logger.Logger,
	cfg config.CheckoutConfig,
) (*Manager, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if units == nil {
		return nil, fmt.Errorf("gifticon repository required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if purchaseRepo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	if widget == nil {
		return nil, fmt.Errorf("payment widget required")
	}
	if handoff == nil {
		return nil, fmt.Errorf("handoff store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.InactivityTimeout <= 0 {
		return nil, fmt.Errorf("inactivity timeout must be positive")
	}
	return &Manager{
		tx:        tx,
		units:     units,
		coupons:   couponRepo,
		purchases: purchaseRepo,
		widget:    widget,
		handoff:   handoff,
		events:    events,
		met:       met,
		logg:      logg,
		cfg:       cfg,
		sessions:  make(map[uuid.UUID]*session),
	}, nil
}

// StartSession opens a selecting-stage session for one brand and returns the
// initial recommended view.
func (m *Manager) StartSession(ctx context.Context, holderID uuid.UUID, brand string) (*Snapshot, error) {
	if brand == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
	}

	resMgr, err := reservation.NewManager(m.units, m.met, m.logg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building reservation manager")
	}

	s := newSession(holderID, brand, resMgr)
	if err := m.refreshRecommended(ctx, s); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	m.armTimer(s)

	ctx = m.logg.WithSessionID(m.logg.WithBrand(ctx, brand), s.id.String())
	m.logg.Info(ctx, "checkout session started")
	return m.snapshotLocked(ctx, s)
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot(ctx context.Context, sessionID, holderID uuid.UUID) (*Snapshot, error) {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.snapshotLocked(ctx, s)
}

// Select reserves a displayed unit. Losing the optimistic race is
// self-healing: the unit disappears from the view, a same-bracket sibling is
// swapped in when one exists, and no error surfaces.
func (m *Manager) Select(ctx context.Context, sessionID, holderID, unitID uuid.UUID) (*Snapshot, error) {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireState(s, enums.CheckoutStateSelecting); err != nil {
		return nil, err
	}
	unit, shown := s.unitsByID[unitID]
	if !shown {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit is not in the current view")
	}
	if _, already := s.selected[unitID]; already {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit is already selected")
	}

	m.touch(ctx, s)
	bracket := unit.PriceBracket()

	if err := s.reservations.Hold(ctx, unitID, s.holderID); err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return nil, err
		}
		// Lost the race: prune and substitute a sibling.
		s.dropFromPool(unitID)
		s.hide(unitID)
		if sibling := allocator.ExpandBracket(s.pool, s.shownSet(), bracket); sibling != nil {
			s.show(*sibling)
		}
		return m.snapshotLocked(ctx, s)
	}

	s.selected[unitID] = SelectionEntry{
		DisplayID:    unitID,
		UnitID:       unitID,
		FaceValueWon: unit.FaceValueWon,
		SalePriceWon: unit.SalePriceWon,
	}
	s.pinnedCouponID = nil

	// Lazy expansion: keep one ready alternative visible in the bracket.
	if s.mode == ModeRecommended {
		if next := allocator.ExpandBracket(s.pool, s.shownSet(), bracket); next != nil {
			s.show(*next)
		}
	}
	return m.snapshotLocked(ctx, s)
}

// Deselect releases a selected unit. In the recommended view the unit's
// bracket is collapsed so the remaining selection stays contiguous by load
// order.
func (m *Manager) Deselect(ctx context.Context, sessionID, holderID, unitID uuid.UUID) (*Snapshot, error) {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireState(s, enums.CheckoutStateSelecting); err != nil {
		return nil, err
	}
	entry, ok := s.selected[unitID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit is not selected")
	}

	m.touch(ctx, s)
	if _, err := s.reservations.Release(ctx, []uuid.UUID{entry.UnitID}, s.holderID, reservation.TriggerDeselect); err != nil {
		return nil, err
	}
	delete(s.selected, unitID)
	s.pinnedCouponID = nil

	if s.mode == ModeRecommended {
		if unit, shown := s.unitsByID[unitID]; shown {
			if err := m.collapseBracket(ctx, s, unit.PriceBracket()); err != nil {
				return nil, err
			}
		}
	} else {
		s.hide(unitID)
	}
	return m.snapshotLocked(ctx, s)
}

// collapseBracket drops later-loaded units after a gap and releases any that
// were still selected.
func (m *Manager) collapseBracket(ctx context.Context, s *session, bracket int) error {
	_, drop := allocator.CollapseBracket(s.bracketLoads[bracket], s.selectedSet())
	for _, droppedID := range drop {
		if entry, wasSelected := s.selected[droppedID]; wasSelected {
			if _, err := s.reservations.Release(ctx, []uuid.UUID{entry.UnitID}, s.holderID, reservation.TriggerDeselect); err != nil {
				return err
			}
			delete(s.selected, droppedID)
		}
		s.hide(droppedID)
	}
	return nil
}

// AutoFill switches to budget mode: every current hold at this brand is
// released, then the budget is filled greedily over a fresh snapshot.
func (m *Manager) AutoFill(ctx context.Context, sessionID, holderID uuid.UUID, budgetWon int) (*Snapshot, error) {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireState(s, enums.CheckoutStateSelecting); err != nil {
		return nil, err
	}
	if budgetWon <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget must be a positive amount")
	}

	m.touch(ctx, s)
	if _, err := s.reservations.ReleaseAllForHolder(ctx, s.brand, s.holderID, reservation.TriggerModeSwitch); err != nil {
		return nil, err
	}
	s.clearSelection()
	s.pinnedCouponID = nil

	units, err := m.units.FindAvailableByBrand(ctx, s.brand)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing available units")
	}
	ranked := ranking.Rank(units)

	fill, err := allocator.AutoFill(budgetWon, ranked)
	if err != nil {
		return nil, err
	}

	s.mode = ModeAutoFill
	s.pool = ranked
	s.displayed = s.displayed[:0]
	s.unitsByID = make(map[uuid.UUID]models.GifticonUnit)
	s.bracketLoads = make(map[int][]uuid.UUID)

	for _, unit := range fill.Selected {
		if err := s.reservations.Hold(ctx, unit.ID, s.holderID); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				s.dropFromPool(unit.ID)
				continue
			}
			return nil, err
		}
		s.show(unit)
		s.selected[unit.ID] = SelectionEntry{
			DisplayID:    unit.ID,
			UnitID:       unit.ID,
			FaceValueWon: unit.FaceValueWon,
			SalePriceWon: unit.SalePriceWon,
		}
	}
	return m.snapshotLocked(ctx, s)
}

// CancelAutoFill releases the fill and restores the recommended view.
func (m *Manager) CancelAutoFill(ctx context.Context, sessionID, holderID uuid.UUID) (*Snapshot, error) {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireState(s, enums.CheckoutStateSelecting); err != nil {
		return nil, err
	}
	if s.mode != ModeAutoFill {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session is not in auto-fill mode")
	}

	m.touch(ctx, s)
	if _, err := s.reservations.ReleaseAllForHolder(ctx, s.brand, s.holderID, reservation.TriggerModeSwitch); err != nil {
		return nil, err
	}
	s.clearSelection()
	s.pinnedCouponID = nil
	s.mode = ModeRecommended

	if err := m.refreshRecommendedLocked(ctx, s); err != nil {
		return nil, err
	}
	return m.snapshotLocked(ctx, s)
}

// PickCoupon pins a coupon choice, or clears the pin when couponID is nil so
// automatic selection resumes.
func (m *Manager) PickCoupon(ctx context.Context, sessionID, holderID uuid.UUID, couponID *uuid.UUID) (*Snapshot, error) {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireState(s, enums.CheckoutStateSelecting); err != nil {
		return nil, err
	}
	m.touch(ctx, s)

	if couponID == nil {
		s.pinnedCouponID = nil
		return m.snapshotLocked(ctx, s)
	}

	coupon, err := m.coupons.FindByID(ctx, *couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}
	if coupon.OwnerID != s.holderID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "coupon belongs to another shopper")
	}
	if !coupons.Usable(*coupon, s.subtotal(), time.Now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon cannot apply to the current subtotal")
	}

	s.pinnedCouponID = couponID
	return m.snapshotLocked(ctx, s)
}

// Proceed moves the session into the paying stage: the order context is
// persisted to the handoff store first, then the widget is initialized. A
// stored payment-success flag short-circuits straight to redemption.
func (m *Manager) Proceed(ctx context.Context, sessionID, holderID uuid.UUID) (*Snapshot, error) {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == enums.CheckoutStatePaying {
		return m.snapshotLocked(ctx, s)
	}
	if err := requireState(s, enums.CheckoutStateSelecting); err != nil {
		return nil, err
	}

	// Recovery: payment already confirmed externally, do not charge again.
	succeeded, err := m.handoff.PaymentSucceeded(ctx, s.id)
	if err != nil {
		return nil, err
	}
	if succeeded {
		order, err := m.handoff.LoadContext(ctx, s.id)
		if err != nil {
			return nil, err
		}
		if err := m.finalize(ctx, s, order, ""); err != nil {
			return nil, err
		}
		s.stopTimer()
		s.state = enums.CheckoutStateRedeeming
		s.orderID = order.OrderID
		return m.snapshotLocked(ctx, s)
	}

	if len(s.selected) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing selected")
	}

	quote, _, err := m.computeQuote(ctx, s)
	if err != nil {
		return nil, err
	}

	order := OrderContext{
		OrderID:     uuid.New(),
		SessionID:   s.id,
		HolderID:    s.holderID,
		Brand:       s.brand,
		OrderName:   fmt.Sprintf("%s gifticons x%d", s.brand, len(s.selected)),
		CustomerKey: s.holderID.String(),
		Selections:  selectionList(s),
		SubtotalWon: quote.SubtotalWon,
		DiscountWon: quote.DiscountWon,
		TotalWon:    quote.TotalWon,
		CouponID:    quote.CouponID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.handoff.SaveContext(ctx, order); err != nil {
		return nil, err
	}
	// The paying stage trusts the handoff record, not process memory. A
	// failed read-back keeps the session in selecting.
	if _, err := m.handoff.LoadContext(ctx, s.id); err != nil {
		return nil, err
	}

	handle, err := m.widget.Initialize(ctx, order.CustomerKey)
	if err != nil {
		// Both init attempts failed: tear down and stay in selecting.
		clearErr := m.handoff.ClearContext(ctx, s.id)
		if clearErr != nil {
			m.logg.Error(ctx, "clearing handoff after widget failure", clearErr)
		}
		return nil, err
	}
	handle.SetAmount("KRW", int64(order.TotalWon))

	s.widget = handle
	s.orderID = order.OrderID
	s.stopTimer()
	s.state = enums.CheckoutStatePaying

	m.logg.Info(m.logg.WithSessionID(ctx, s.id.String()), "checkout entered paying stage")
	return m.snapshotLocked(ctx, s)
}

// Back returns from paying to selecting: the handoff context is cleared and
// the widget handle discarded, never reused.
func (m *Manager) Back(ctx context.Context, sessionID, holderID uuid.UUID) (*Snapshot, error) {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireState(s, enums.CheckoutStatePaying); err != nil {
		return nil, err
	}
	if err := m.handoff.ClearContext(ctx, s.id); err != nil {
		return nil, err
	}
	s.widget = nil
	s.orderID = uuid.Nil
	s.state = enums.CheckoutStateSelecting
	m.armTimer(s)
	return m.snapshotLocked(ctx, s)
}

// Confirm runs the payment and finalizes the purchase. Re-confirming after a
// completed purchase is idempotent: already-finalized units are excluded.
func (m *Manager) Confirm(ctx context.Context, sessionID, holderID uuid.UUID, sourceID string) (*Snapshot, error) {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireState(s, enums.CheckoutStatePaying); err != nil {
		return nil, err
	}

	order, err := m.handoff.LoadContext(ctx, s.id)
	if err != nil {
		// Handoff failure on the paying stage falls back to selecting.
		s.widget = nil
		s.state = enums.CheckoutStateSelecting
		m.armTimer(s)
		return nil, err
	}

	paymentRef := ""
	succeeded, err := m.handoff.PaymentSucceeded(ctx, s.id)
	if err != nil {
		return nil, err
	}
	if !succeeded {
		// A coupon can clamp the total to zero; there is nothing to charge.
		if order.TotalWon > 0 {
			if s.widget == nil {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment widget not initialized")
			}
			receipt, err := s.widget.RequestPayment(ctx, payments.PaymentRequest{
				OrderID:   order.OrderID.String(),
				OrderName: order.OrderName,
				SourceID:  sourceID,
			})
			if err != nil {
				return nil, err
			}
			paymentRef = receipt.PaymentRef
		}
		if err := m.handoff.MarkPaymentSuccess(ctx, s.id); err != nil {
			return nil, err
		}
	}

	if err := m.finalize(ctx, s, order, paymentRef); err != nil {
		return nil, err
	}

	s.widget = nil
	s.orderID = order.OrderID
	s.state = enums.CheckoutStateRedeeming
	m.logg.Info(m.logg.WithSessionID(ctx, s.id.String()), "checkout finalized")
	return m.snapshotLocked(ctx, s)
}

// Complete exits the redeeming stage and clears all transient session state.
func (m *Manager) Complete(ctx context.Context, sessionID, holderID uuid.UUID) error {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireState(s, enums.CheckoutStateRedeeming); err != nil {
		return err
	}
	if err := m.handoff.Clear(ctx, s.id); err != nil {
		return err
	}
	m.evict(s)
	return nil
}

// Abandon tears the session down from any stage: holds are released, the
// handoff cleared, the session evicted. Sold units are untouched because
// release is conditional on the held status.
func (m *Manager) Abandon(ctx context.Context, sessionID, holderID uuid.UUID) error {
	s, err := m.getSession(sessionID, holderID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	released, err := s.reservations.ReleaseAllForHolder(ctx, s.brand, s.holderID, reservation.TriggerTeardown)
	if err != nil {
		return err
	}
	m.emitHoldsReleased(ctx, s, released, reservation.TriggerTeardown)

	if err := m.handoff.Clear(ctx, s.id); err != nil {
		return err
	}
	m.evict(s)
	m.logg.Info(m.logg.WithSessionID(ctx, s.id.String()), "checkout session abandoned")
	return nil
}

// --- internals ---

func (m *Manager) getSession(sessionID, holderID uuid.UUID) (*session, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	if s.holderID != holderID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "session belongs to another shopper")
	}
	return s, nil
}

// evict removes the session from the manager. Caller holds s.mu.
func (m *Manager) evict(s *session) {
	s.stopTimer()
	s.alive = false
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()
}

func requireState(s *session, want enums.CheckoutState) error {
	if s.state != want {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("operation requires the %s stage", want)).
			WithDetails(map[string]string{"state": s.state.String()})
	}
	return nil
}

// refreshRecommended loads a fresh ranked snapshot and rebuilds the
// recommended view. Takes the session lock itself.
func (m *Manager) refreshRecommended(ctx context.Context, s *session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.refreshRecommendedLocked(ctx, s)
}

func (m *Manager) refreshRecommendedLocked(ctx context.Context, s *session) error {
	units, err := m.units.FindAvailableByBrand(ctx, s.brand)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing available units")
	}
	ranked := ranking.Rank(units)
	s.resetView(ranked, allocator.BuildRecommended(ranked))
	return nil
}

// armTimer starts the inactivity countdown. Caller holds s.mu. The callback
// re-checks liveness and stage before touching anything: a fired timer whose
// session moved on must be a no-op.
func (m *Manager) armTimer(s *session) {
	s.stopTimer()
	sessionID := s.id
	s.timer = time.AfterFunc(m.cfg.InactivityTimeout, func() {
		m.onInactivity(sessionID)
	})
}

// touch resets the inactivity timer and moves held_at forward on the
// session's holds so the stale-hold sweep never reaps an active shopper.
// The refresh is best effort. Caller holds s.mu.
func (m *Manager) touch(ctx context.Context, s *session) {
	if s.state != enums.CheckoutStateSelecting {
		return
	}
	m.armTimer(s)

	if len(s.selected) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(s.selected))
	for _, entry := range s.selected {
		ids = append(ids, entry.UnitID)
	}
	if _, err := m.units.RefreshHeldAt(ctx, s.holderID, ids, time.Now().UTC()); err != nil {
		m.logg.Error(m.logg.WithSessionID(ctx, s.id.String()), "refreshing hold timestamps", err)
	}
}

func (m *Manager) onInactivity(sessionID uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || s.state != enums.CheckoutStateSelecting {
		return
	}

	ctx := context.Background()
	ctx = m.logg.WithSessionID(m.logg.WithBrand(ctx, s.brand), s.id.String())

	released, err := s.reservations.ReleaseAllForHolder(ctx, s.brand, s.holderID, reservation.TriggerTimeout)
	if err != nil {
		m.logg.Error(ctx, "releasing holds on inactivity timeout", err)
	}
	m.emitHoldsReleased(ctx, s, released, reservation.TriggerTimeout)

	if err := m.handoff.Clear(ctx, s.id); err != nil {
		m.logg.Error(ctx, "clearing handoff on inactivity timeout", err)
	}

	m.met.IncTimeout()
	m.evict(s)
	m.logg.Info(ctx, "checkout session evicted after inactivity")
}

func (m *Manager) emitHoldsReleased(ctx context.Context, s *session, unitIDs []uuid.UUID, trigger string) {
	if m.events == nil || len(unitIDs) == 0 {
		return
	}
	err := m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return m.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventHoldsReleased,
			AggregateType: enums.AggregateGifticon,
			AggregateID:   s.id,
			Actor:         &outbox.ActorRef{HolderID: s.holderID},
			Data: payloads.HoldsReleasedEvent{
				HolderID: s.holderID,
				Brand:    s.brand,
				UnitIDs:  unitIDs,
				Trigger:  trigger,
			},
		})
	})
	if err != nil {
		m.logg.Error(ctx, "emitting holds released event", err)
	}
}

func (m *Manager) computeQuote(ctx context.Context, s *session) (Quote, *models.Coupon, error) {
	quote := Quote{SubtotalWon: s.subtotal()}
	quote.TotalWon = quote.SubtotalWon
	if quote.SubtotalWon == 0 {
		return quote, nil, nil
	}

	usable, err := m.coupons.ListUsable(ctx, s.holderID)
	if err != nil {
		return quote, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing coupons")
	}

	now := time.Now().UTC()
	var applied *models.Coupon
	if s.pinnedCouponID != nil {
		for i := range usable {
			if usable[i].ID == *s.pinnedCouponID && coupons.Usable(usable[i], quote.SubtotalWon, now) {
				applied = &usable[i]
				quote.CouponPinned = true
				break
			}
		}
	} else {
		applied = coupons.SelectBest(usable, quote.SubtotalWon, now)
	}

	if applied != nil {
		quote.CouponID = &applied.ID
		quote.CouponName = applied.Name
		quote.DiscountWon = coupons.DiscountAmount(*applied, quote.SubtotalWon)
		quote.TotalWon = quote.SubtotalWon - quote.DiscountWon
	}
	return quote, applied, nil
}

func (m *Manager) snapshotLocked(ctx context.Context, s *session) (*Snapshot, error) {
	quote, _, err := m.computeQuote(ctx, s)
	if err != nil {
		return nil, err
	}

	units := make([]DisplayedUnit, 0, len(s.displayed))
	for _, id := range s.displayed {
		unit, ok := s.unitsByID[id]
		if !ok {
			continue
		}
		_, selected := s.selected[id]
		units = append(units, DisplayedUnit{
			ID:           unit.ID,
			Name:         unit.Name,
			FaceValueWon: unit.FaceValueWon,
			SalePriceWon: unit.SalePriceWon,
			ExpiresAt:    unit.ExpiresAt,
			Bracket:      unit.PriceBracket(),
			Selected:     selected,
		})
	}

	snap := &Snapshot{
		SessionID: s.id,
		State:     s.state,
		Mode:      s.mode,
		Brand:     s.brand,
		Units:     units,
		Quote:     quote,
	}
	if s.orderID != uuid.Nil {
		orderID := s.orderID
		snap.OrderID = &orderID
	}
	return snap, nil
}

func selectionList(s *session) []SelectionEntry {
	entries := make([]SelectionEntry, 0, len(s.selected))
	for _, id := range s.displayed {
		if entry, ok := s.selected[id]; ok {
			entries = append(entries, entry)
		}
	}
	return entries
}
