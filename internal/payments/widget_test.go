package payments

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
)

type fakeHandle struct{}

func (fakeHandle) SetAmount(string, int64) {}
func (fakeHandle) RequestPayment(context.Context, PaymentRequest) (*Receipt, error) {
	return &Receipt{PaymentRef: "fake", Status: "COMPLETED"}, nil
}

type fakeInitializer struct {
	calls    int
	failures int
	block    time.Duration
}

func (f *fakeInitializer) Initialize(ctx context.Context, customerKey string) (Handle, error) {
	f.calls++
	if f.block > 0 {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.calls <= f.failures {
		return nil, errors.New("provider unavailable")
	}
	return fakeHandle{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestInitializeFirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	init := &fakeInitializer{}
	w, err := NewWidget(init, time.Second, testLogger())
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}

	handle, err := w.Initialize(context.Background(), "holder-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle == nil || init.calls != 1 {
		t.Fatalf("expected one init call, got %d", init.calls)
	}
}

func TestInitializeRetriesExactlyOnce(t *testing.T) {
	t.Parallel()

	init := &fakeInitializer{failures: 1}
	w, err := NewWidget(init, time.Second, testLogger())
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}

	handle, err := w.Initialize(context.Background(), "holder-1")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if handle == nil || init.calls != 2 {
		t.Fatalf("expected two init calls, got %d", init.calls)
	}
}

func TestInitializeDoubleFailureIsTerminal(t *testing.T) {
	t.Parallel()

	init := &fakeInitializer{failures: 5}
	w, err := NewWidget(init, time.Second, testLogger())
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}

	_, err = w.Initialize(context.Background(), "holder-1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if init.calls != 2 {
		t.Fatalf("expected exactly two attempts, got %d", init.calls)
	}
}

func TestInitializeAttemptTimeoutTriggersRetry(t *testing.T) {
	t.Parallel()

	init := &fakeInitializer{block: 200 * time.Millisecond, failures: 0}
	w, err := NewWidget(init, 20*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}

	start := time.Now()
	_, err = w.Initialize(context.Background(), "holder-1")
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	if init.calls != 2 {
		t.Fatalf("expected two bounded attempts, got %d", init.calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("attempts not bounded, took %v", elapsed)
	}
}

func TestInitializeStopsWhenCallerCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	init := &fakeInitializer{failures: 5}
	w, err := NewWidget(init, time.Second, testLogger())
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}

	_, err = w.Initialize(ctx, "holder-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if init.calls != 1 {
		t.Fatalf("expected no retry after caller cancel, got %d calls", init.calls)
	}
}
