package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/giftree-kr/giftree-backend/pkg/square"
)

// SquareInitializer builds widget handles backed by the Square client.
type SquareInitializer struct {
	client *square.Client
}

// NewSquareInitializer wraps the provider client.
func NewSquareInitializer(client *square.Client) (*SquareInitializer, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareInitializer{client: client}, nil
}

// Initialize registers the buyer with the provider and returns a handle bound
// to the resulting customer.
func (s *SquareInitializer) Initialize(ctx context.Context, customerKey string) (Handle, error) {
	customer, err := s.client.CreateCustomer(ctx, square.CustomerCreateParams{
		ReferenceID:    customerKey,
		IdempotencyKey: s.client.NewIdempotencyKey("widget-init"),
	})
	if err != nil {
		return nil, err
	}

	customerID := ""
	if customer.GetID() != nil {
		customerID = *customer.GetID()
	}
	return &squareHandle{client: s.client, customerID: customerID}, nil
}

type squareHandle struct {
	client     *square.Client
	customerID string

	mu        sync.Mutex
	currency  string
	amountWon int64
}

// SetAmount records the charge amount for the next payment request.
func (h *squareHandle) SetAmount(currency string, amountWon int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currency = currency
	h.amountWon = amountWon
}

// paymentIdempotencyKey derives the provider idempotency key from the order,
// so a retried confirm for the same order cannot charge twice.
func paymentIdempotencyKey(orderID string) string {
	return "payment-" + orderID
}

// RequestPayment charges the configured amount against the provider.
func (h *squareHandle) RequestPayment(ctx context.Context, req PaymentRequest) (*Receipt, error) {
	h.mu.Lock()
	currency, amount := h.currency, h.amountWon
	h.mu.Unlock()

	if amount <= 0 {
		return nil, fmt.Errorf("payment amount not set")
	}

	payment, err := h.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountWon:      amount,
		Currency:       currency,
		LocationID:     h.client.LocationID(),
		CustomerID:     h.customerID,
		SourceID:       req.SourceID,
		IdempotencyKey: paymentIdempotencyKey(req.OrderID),
		Note:           req.OrderName,
		ReferenceID:    req.OrderID,
	})
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{}
	if payment.GetID() != nil {
		receipt.PaymentRef = *payment.GetID()
	}
	if payment.GetStatus() != nil {
		receipt.Status = *payment.GetStatus()
	}
	return receipt, nil
}
