package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type CreateHoldRequest struct {
	SeatIDs []string `json:"seat_ids" validate:"required,min=1,max=8,unique,dive,required"`
}

type HoldResponse struct {
	HoldID     string          `json:"hold_id"`
	ShowID     string          `json:"show_id"`
	SeatIDs    []string        `json:"seat_ids"`
	TotalPrice decimal.Decimal `json:"total_price"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// CreateHoldHandler places a hold on the requested seats for the caller's
// session. A session carries at most one active hold; creating a new one
// releases the previous hold first.
func (app *Application) CreateHoldHandler(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")

	var input CreateHoldRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	show, err := app.catalogRepo.GetShow(r.Context(), showID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	seatPrices := make(map[string]decimal.Decimal, len(show.Seats))
	for _, seat := range show.Seats {
		seatPrices[seat.ID] = show.Price(seat)
	}

	total := decimal.Zero
	for _, seatID := range input.SeatIDs {
		price, ok := seatPrices[seatID]
		if !ok {
			app.notFoundResponse(w, r)
			return
		}
		total = total.Add(price)
	}

	sessionID := app.sessionManager.Token(r.Context())

	err = app.releaseSessionHold(r, sessionID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	h, err := app.holds.Create(showID, input.SeatIDs, sessionID, total)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSeatsUnavailable):
			app.editConflictResponseWithErr(w, r, err)
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.redis.Set(r.Context(), holdSessionKey(sessionID), h.ID, time.Until(h.ExpiresAt)).Err()
	if err != nil {
		// The hold exists but the session binding failed, so the caller
		// could never check out. Undo the hold and report the failure.
		_ = app.holds.Release(h.ID)
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := HoldResponse{
		HoldID:     h.ID,
		ShowID:     h.ShowID,
		SeatIDs:    h.SeatIDs,
		TotalPrice: h.TotalPrice,
		ExpiresAt:  h.ExpiresAt,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// DeleteHoldHandler releases the session's active hold on the given show.
func (app *Application) DeleteHoldHandler(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
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
	if err != nil || h.ShowID != showID {
		app.notFoundResponse(w, r)
		return
	}

	err = app.holds.Release(holdID)
	if err != nil && !errors.Is(err, domain.ErrHoldNotFound) {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.redis.Del(r.Context(), holdSessionKey(sessionID)).Err()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// releaseSessionHold drops the session's current hold binding, if any, and
// releases the underlying hold.
func (app *Application) releaseSessionHold(r *http.Request, sessionID string) error {
	holdID, err := app.redis.Get(r.Context(), holdSessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	err = app.holds.Release(holdID)
	if err != nil && !errors.Is(err, domain.ErrHoldNotFound) {
		return err
	}

	return app.redis.Del(r.Context(), holdSessionKey(sessionID)).Err()
}
