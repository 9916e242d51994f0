package payments

import "testing"

func TestPaymentIdempotencyKeyIsStablePerOrder(t *testing.T) {
	t.Parallel()

	orderID := "3b44f7d2-4c6e-4a2b-9f1e-8d7c0a5b6e21"
	first := paymentIdempotencyKey(orderID)
	second := paymentIdempotencyKey(orderID)
	if first != second {
		t.Fatalf("retries must reuse the key: %q vs %q", first, second)
	}
	if first != "payment-"+orderID {
		t.Fatalf("unexpected key %q", first)
	}
	if other := paymentIdempotencyKey("another-order"); other == first {
		t.Fatal("keys must differ per order")
	}
	// Square caps idempotency keys at 45 characters.
	if len(first) > 45 {
		t.Fatalf("key too long: %d", len(first))
	}
}
