package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/redis"
)

const (
	handoffScopeOrder   = "order"
	handoffScopePayment = "payment_success"
)

// HandoffStore persists the OrderContext and the payment-success flag across
// the selecting/paying boundary. Backed by Redis with a TTL so abandoned
// sessions age out on their own.
type HandoffStore struct {
	kv  redis.KV
	ttl time.Duration
}

// NewHandoffStore builds the store. ttl bounds how long a handed-off order
// survives without being consumed.
func NewHandoffStore(kv redis.KV, ttl time.Duration) (*HandoffStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis kv required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("handoff ttl must be positive")
	}
	return &HandoffStore{kv: kv, ttl: ttl}, nil
}

// SaveContext writes the order context for the session.
func (h *HandoffStore) SaveContext(ctx context.Context, order OrderContext) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding order context")
	}
	key := h.kv.HandoffKey(handoffScopeOrder, order.SessionID.String())
	if err := h.kv.Set(ctx, key, raw, h.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting order context")
	}
	return nil
}

// LoadContext reads the order context back. Returns NotFound when the
// handoff record is missing or expired.
func (h *HandoffStore) LoadContext(ctx context.Context, sessionID uuid.UUID) (*OrderContext, error) {
	key := h.kv.HandoffKey(handoffScopeOrder, sessionID.String())
	raw, err := h.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order context not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading order context")
	}
	var order OrderContext
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding order context")
	}
	return &order, nil
}

// ClearContext drops the order context for the session.
func (h *HandoffStore) ClearContext(ctx context.Context, sessionID uuid.UUID) error {
	return h.kv.Del(ctx, h.kv.HandoffKey(handoffScopeOrder, sessionID.String()))
}

// MarkPaymentSuccess records that the provider confirmed payment for the
// session, so a re-entry into the paying stage skips straight to redemption.
func (h *HandoffStore) MarkPaymentSuccess(ctx context.Context, sessionID uuid.UUID) error {
	key := h.kv.HandoffKey(handoffScopePayment, sessionID.String())
	if err := h.kv.Set(ctx, key, "1", h.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting payment success flag")
	}
	return nil
}

// PaymentSucceeded reports whether the success flag is set for the session.
func (h *HandoffStore) PaymentSucceeded(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	key := h.kv.HandoffKey(handoffScopePayment, sessionID.String())
	_, err := h.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading payment success flag")
	}
	return true, nil
}

// ClearPaymentSuccess drops the success flag.
func (h *HandoffStore) ClearPaymentSuccess(ctx context.Context, sessionID uuid.UUID) error {
	return h.kv.Del(ctx, h.kv.HandoffKey(handoffScopePayment, sessionID.String()))
}

// Clear removes every handoff record for the session.
func (h *HandoffStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	return h.kv.Del(ctx,
		h.kv.HandoffKey(handoffScopeOrder, sessionID.String()),
		h.kv.HandoffKey(handoffScopePayment, sessionID.String()),
	)
}
