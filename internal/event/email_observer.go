package event

import (
	"context"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/cinetix/booking-engine/internal/mailer"
)

// EmailObserver sends the booking confirmation mail. The event only carries
// identifiers, so the booking record is looked up for the recipient address.
type EmailObserver struct {
	mailer      mailer.Mailer
	bookingRepo domain.BookingRepository
}

func NewEmailObserver(m mailer.Mailer, repo domain.BookingRepository) *EmailObserver {
	return &EmailObserver{mailer: m, bookingRepo: repo}
}

func (o *EmailObserver) Name() string { return "email" }

func (o *EmailObserver) Notify(ctx context.Context, event domain.BookingEvent) error {
	if event.Status != domain.BookingConfirmed {
		return nil
	}

	booking, err := o.bookingRepo.GetByID(ctx, event.BookingID)
	if err != nil {
		return err
	}

	data := map[string]any{
		"bookingID": booking.ID,
		"showID":    booking.ShowID,
		"seats":     booking.SeatIDs,
		"amount":    booking.Amount.StringFixed(2),
	}

	return o.mailer.Send(booking.CustomerEmail, "booking_confirmed.tmpl", data)
}
