// Package booking drives the purchase saga: hold, charge, confirm, with
// compensating release or refund on every failure path.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/cinetix/booking-engine/internal/event"
	"github.com/cinetix/booking-engine/internal/hold"
	"github.com/cinetix/booking-engine/internal/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultPaymentTimeout = 2 * time.Minute

// refundTimeout bounds the compensating refund call, which runs on a fresh
// context because the request context may already be past its deadline.
const refundTimeout = 30 * time.Second

type Coordinator struct {
	store       *inventory.Store
	holds       *hold.Manager
	catalog     domain.CatalogRepository
	bookingRepo domain.BookingRepository
	paymentRepo domain.PaymentRepository
	gateway     domain.PaymentGateway
	dispatcher  *event.Dispatcher
	logger      *slog.Logger

	paymentTimeout time.Duration
	now            func() time.Time
}

type Option func(*Coordinator)

// WithPaymentTimeout overrides the default gateway timeout. The effective
// deadline for any one charge is still capped by the hold's own expiry.
func WithPaymentTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.paymentTimeout = d
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(
	store *inventory.Store,
	holds *hold.Manager,
	catalog domain.CatalogRepository,
	bookingRepo domain.BookingRepository,
	paymentRepo domain.PaymentRepository,
	gateway domain.PaymentGateway,
	dispatcher *event.Dispatcher,
	logger *slog.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		store:          store,
		holds:          holds,
		catalog:        catalog,
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		gateway:        gateway,
		dispatcher:     dispatcher,
		logger:         logger,
		paymentTimeout: DefaultPaymentTimeout,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type BookRequest struct {
	ShowID        string
	SeatIDs       []string
	UserID        string
	CustomerEmail string
	PaymentMethod string
}

// Book runs the whole purchase for one request. Every path out of it leaves
// the system consistent: either the seats are BOOKED and the payment kept, or
// the seats are available again and no captured payment is retained.
func (c *Coordinator) Book(ctx context.Context, req BookRequest) (*domain.Booking, error) {
	show, err := c.catalog.GetShow(ctx, req.ShowID)
	if err != nil {
		return nil, err
	}

	total, err := totalPrice(show, req.SeatIDs)
	if err != nil {
		return nil, err
	}

	h, err := c.holds.Create(req.ShowID, req.SeatIDs, req.UserID, total)
	if err != nil {
		// Contention is surfaced to the caller, not retried here.
		return nil, err
	}

	return c.BookWithHold(ctx, h, req.CustomerEmail, req.PaymentMethod)
}

// BookWithHold runs the payment and confirmation half of the saga against an
// already placed hold. The HTTP layer uses this for session-bound holds that
// were created before checkout.
func (c *Coordinator) BookWithHold(ctx context.Context, h *domain.Hold, email, paymentMethod string) (*domain.Booking, error) {
	now := c.now()

	booking := &domain.Booking{
		ID:            uuid.New().String(),
		ShowID:        h.ShowID,
		SeatIDs:       append([]string(nil), h.SeatIDs...),
		UserID:        h.UserID,
		CustomerEmail: email,
		HoldID:        h.ID,
		Amount:        h.TotalPrice,
		Status:        domain.BookingPendingPayment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := c.bookingRepo.Create(ctx, booking); err != nil {
		c.releaseHold(h.ID, booking.ID)
		return nil, fmt.Errorf("creating booking record: %w", err)
	}

	payment := &domain.Payment{
		BookingID: booking.ID,
		Amount:    h.TotalPrice,
		Currency:  "USD",
		Status:    domain.PaymentPending,
	}

	if err := c.paymentRepo.Create(ctx, payment); err != nil {
		c.releaseHold(h.ID, booking.ID)
		return nil, fmt.Errorf("creating payment record: %w", err)
	}

	result, err := c.charge(ctx, h, paymentMethod)
	if err != nil {
		c.failBooking(ctx, booking, domain.PaymentFailed, "", err.Error())
		c.releaseHold(h.ID, booking.ID)
		c.dispatch(ctx, booking)

		return booking, err
	}

	// Payment captured. From here on a failure must refund, never just drop
	// the money or confirm seats the hold no longer owns.
	if err := c.holds.Convert(h.ID); err != nil {
		if errors.Is(err, domain.ErrHoldExpired) {
			c.logger.Warn("payment succeeded after hold expiry, refunding",
				"booking_id", booking.ID, "hold_id", h.ID, "payment_ref", result.Reference)

			c.refund(booking, result.Reference, h.TotalPrice)
			c.dispatch(ctx, booking)

			return booking, domain.ErrHoldExpired
		}

		c.logger.Error("hold vanished between charge and convert",
			"booking_id", booking.ID, "hold_id", h.ID, "error", err)

		c.refund(booking, result.Reference, h.TotalPrice)
		c.dispatch(ctx, booking)

		return booking, fmt.Errorf("%w: %v", domain.ErrInvariantViolation, err)
	}

	if err := c.store.ConfirmSeats(h.ShowID, h.SeatIDs, h.ID); err != nil {
		// The hold was just converted, so its seats must still be HELD by it.
		// Anything else is corruption; fail loudly and give the money back.
		c.logger.Error("seat confirmation failed for converted hold",
			"booking_id", booking.ID, "hold_id", h.ID, "show_id", h.ShowID, "error", err)

		c.refund(booking, result.Reference, h.TotalPrice)
		c.dispatch(ctx, booking)

		return booking, fmt.Errorf("%w: %v", domain.ErrInvariantViolation, err)
	}

	booking.Status = domain.BookingConfirmed
	booking.PaymentRef = result.Reference
	booking.UpdatedAt = c.now()

	if err := c.bookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingConfirmed, result.Reference); err != nil {
		// Seats are booked and money captured; the record update is retried
		// by ops tooling rather than unwinding a completed purchase.
		c.logger.Error("failed to persist confirmed booking status",
			"booking_id", booking.ID, "payment_ref", result.Reference, "error", err)
	}

	if err := c.paymentRepo.UpdateStatus(ctx, booking.ID, domain.PaymentSucceeded, result.Reference, ""); err != nil {
		c.logger.Error("failed to persist payment status", "booking_id", booking.ID, "error", err)
	}

	c.dispatch(ctx, booking)

	return booking, nil
}

// charge invokes the gateway with a deadline no later than the hold's own
// expiry, so a charge can never outlive the hold it is paying for.
func (c *Coordinator) charge(ctx context.Context, h *domain.Hold, method string) (*domain.ChargeResult, error) {
	timeout := c.paymentTimeout
	if remaining := h.ExpiresAt.Sub(c.now()); remaining < timeout {
		timeout = remaining
	}

	if timeout <= 0 {
		return nil, domain.ErrHoldExpired
	}

	chargeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.gateway.Charge(chargeCtx, h.TotalPrice, method)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrPaymentTimeout) {
			// Ambiguous outcome: resolved as failure, never as success.
			return nil, domain.ErrPaymentTimeout
		}

		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}

	return result, nil
}

func (c *Coordinator) refund(booking *domain.Booking, reference string, amount decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), refundTimeout)
	defer cancel()

	if err := c.gateway.Refund(ctx, reference, amount); err != nil {
		// The refund itself is the last line of compensation; if it fails the
		// payment reference is kept on the FAILED booking for manual repair.
		c.logger.Error("compensating refund failed",
			"booking_id", booking.ID, "payment_ref", reference, "error", err)
	}

	c.failBooking(ctx, booking, domain.PaymentRefunded, reference, "hold expired before confirmation")
}

func (c *Coordinator) failBooking(ctx context.Context, booking *domain.Booking, paymentStatus domain.PaymentStatus, reference, reason string) {
	booking.Status = domain.BookingFailed
	booking.PaymentRef = reference
	booking.UpdatedAt = c.now()

	if err := c.bookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingFailed, reference); err != nil {
		c.logger.Error("failed to persist failed booking status", "booking_id", booking.ID, "error", err)
	}

	if err := c.paymentRepo.UpdateStatus(ctx, booking.ID, paymentStatus, reference, reason); err != nil {
		c.logger.Error("failed to persist payment status", "booking_id", booking.ID, "error", err)
	}
}

func (c *Coordinator) releaseHold(holdID, bookingID string) {
	if err := c.holds.Release(holdID); err != nil {
		c.logger.Error("failed to release hold", "hold_id", holdID, "booking_id", bookingID, "error", err)
	}
}

func (c *Coordinator) dispatch(ctx context.Context, booking *domain.Booking) {
	c.dispatcher.Dispatch(ctx, domain.BookingEvent{
		BookingID: booking.ID,
		ShowID:    booking.ShowID,
		SeatIDs:   booking.SeatIDs,
		UserID:    booking.UserID,
		Status:    booking.Status,
		Timestamp: c.now(),
	})
}

func totalPrice(show *domain.Show, seatIDs []string) (decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(show.Seats))
	for _, seat := range show.Seats {
		prices[seat.ID] = show.Price(seat)
	}

	total := decimal.Zero
	for _, seatID := range seatIDs {
		price, ok := prices[seatID]
		if !ok {
			return decimal.Zero, domain.ErrRecordNotFound
		}

		total = total.Add(price)
	}

	return total, nil
}
