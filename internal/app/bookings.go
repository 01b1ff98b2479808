package app

import (
	"errors"
	"net/http"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/go-chi/chi/v5"
)

// GetBookingHandler returns a booking owned by the caller's session. Bookings
// belonging to other sessions are indistinguishable from missing ones.
func (app *Application) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	sessionID := app.sessionManager.Token(r.Context())

	b, err := app.bookingRepo.GetByID(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	if b.UserID != sessionID {
		app.notFoundResponse(w, r)
		return
	}

	err = app.writeJSON(w, http.StatusOK, newBookingResponse(b), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
