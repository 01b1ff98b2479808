package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type CheckoutRequest struct {
	Email         string `json:"email" validate:"required,email"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

type BookingResponse struct {
	ID         string          `json:"id"`
	ShowID     string          `json:"show_id"`
	SeatIDs    []string        `json:"seat_ids"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	PaymentRef string          `json:"payment_ref,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CheckoutHandler runs the booking saga against the session's active hold:
// charge the payment, convert the hold, and confirm the seats. Whatever the
// outcome, the hold is terminal afterwards, so the session binding is always
// dropped.
func (app *Application) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := app.sessionManager.Token(r.Context())

	holdID, err := app.redis.Get(r.Context(), holdSessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	h, err := app.holds.Get(holdID)
	if err != nil {
		// Dangling binding, likely a hold that was already swept.
		_ = app.redis.Del(r.Context(), holdSessionKey(sessionID)).Err()
		app.notFoundResponseWithErr(w, r, err)
		return
	}

	if h.UserID != sessionID {
		app.notFoundResponse(w, r)
		return
	}

	var input CheckoutRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	b, err := app.coordinator.BookWithHold(r.Context(), h, input.Email, input.PaymentMethod)

	if delErr := app.redis.Del(r.Context(), holdSessionKey(sessionID)).Err(); delErr != nil {
		app.logError(r, delErr)
	}

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentFailed), errors.Is(err, domain.ErrPaymentTimeout):
			app.paymentFailedResponse(w, r, err)
		case errors.Is(err, domain.ErrHoldExpired):
			app.editConflictResponseWithErr(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, newBookingResponse(b), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func newBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:         b.ID,
		ShowID:     b.ShowID,
		SeatIDs:    b.SeatIDs,
		Amount:     b.Amount,
		Status:     string(b.Status),
		PaymentRef: b.PaymentRef,
		CreatedAt:  b.CreatedAt,
	}
}
