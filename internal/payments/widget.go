// Package payments adapts the external payment provider to the narrow widget
// contract the checkout flow consumes.
package payments

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
)

// PaymentRequest carries everything the provider needs to charge the buyer.
type PaymentRequest struct {
	OrderID   string
	OrderName string
	SourceID  string
}

// Receipt is the provider's confirmation of a completed charge.
type Receipt struct {
	PaymentRef string
	Status     string
}

// Handle is one initialized widget instance, owned exclusively by the paying
// stage and discarded on any transition out of it.
type Handle interface {
	SetAmount(currency string, amountWon int64)
	RequestPayment(ctx context.Context, req PaymentRequest) (*Receipt, error)
}

// Initializer builds provider handles. Implemented by the Square adapter and
// by fakes in tests.
type Initializer interface {
	Initialize(ctx context.Context, customerKey string) (Handle, error)
}

// Widget wraps an Initializer with the init timeout and single-retry policy.
type Widget struct {
	init    Initializer
	timeout time.Duration
	logg    *logger.Logger
}

// NewWidget builds the widget wrapper. timeout bounds each init attempt.
func NewWidget(init Initializer, timeout time.Duration, logg *logger.Logger) (*Widget, error) {
	if init == nil {
		return nil, fmt.Errorf("initializer required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("init timeout must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Widget{init: init, timeout: timeout, logg: logg}, nil
}

// Initialize attempts provider init twice at most, each attempt bounded by
// the configured timeout. A second failure is terminal for the paying stage;
// the caller tears the widget down and falls back to selection.
func (w *Widget) Initialize(ctx context.Context, customerKey string) (Handle, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, w.timeout)
		handle, err := w.init.Initialize(attemptCtx, customerKey)
		cancel()
		if err == nil {
			return handle, nil
		}
		lastErr = err
		w.logg.Warn(w.logg.WithField(ctx, "attempt", attempt), "payment widget init failed")
		if ctx.Err() != nil {
			break
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "payment widget failed to initialize")
}
