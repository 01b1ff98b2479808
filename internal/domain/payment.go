package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment records what the engine knows about an external charge: the gateway
// reference and the terminal status the gateway reported.
type Payment struct {
	ID        int
	BookingID string
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Status    PaymentStatus
	ErrorMsg  string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	UpdateStatus(ctx context.Context, bookingID string, status PaymentStatus, reference, errMsg string) error
}

// ChargeResult carries the gateway reference for a successful charge. The
// reference is required later for the compensating refund path.
type ChargeResult struct {
	Reference string
}

// PaymentGateway is the external payment collaborator. Charge blocks until
// the gateway answers or ctx expires; an expired ctx must surface as
// ErrPaymentTimeout, never as success.
type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, method string) (*ChargeResult, error)
	Refund(ctx context.Context, reference string, amount decimal.Decimal) error
}
