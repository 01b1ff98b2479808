package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingConfirmed      BookingStatus = "CONFIRMED"
	BookingFailed         BookingStatus = "FAILED"
	BookingCancelled      BookingStatus = "CANCELLED"
)

// Booking is the durable record of a purchase attempt. Once created it is
// append-only: status transitions and the payment reference are the only
// writes, and a CONFIRMED booking is immutable.
type Booking struct {
	ID            string
	ShowID        string
	SeatIDs       []string
	UserID        string
	CustomerEmail string
	HoldID        string
	PaymentRef    string
	Amount        decimal.Decimal
	Status        BookingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	UpdateStatus(ctx context.Context, bookingID string, status BookingStatus, paymentRef string) error
	GetByID(ctx context.Context, bookingID string) (*Booking, error)
	GetByUserID(ctx context.Context, userID string) ([]Booking, error)
}
