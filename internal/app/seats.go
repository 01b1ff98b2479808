package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type SeatMapResponse struct {
	ShowID      string     `json:"show_id"`
	MovieTitle  string     `json:"movie_title"`
	TheaterName string     `json:"theater_name"`
	HallName    string     `json:"hall_name"`
	StartTime   time.Time  `json:"start_time"`
	Seats       []SeatInfo `json:"seats"`
}

type SeatInfo struct {
	ID        string          `json:"id"`
	Row       int             `json:"row"`
	Col       int             `json:"col"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

// GetShowSeatsHandler merges the immutable catalog layout with live
// availability from the inventory store.
func (app *Application) GetShowSeatsHandler(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")

	show, err := app.catalogRepo.GetShow(r.Context(), showID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	views, err := app.store.Snapshot(showID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	available := make(map[string]bool, len(views))
	for _, v := range views {
		available[v.SeatID] = v.State == domain.SeatAvailable
	}

	resp := SeatMapResponse{
		ShowID:      show.ID,
		MovieTitle:  show.MovieTitle,
		TheaterName: show.TheaterName,
		HallName:    show.HallName,
		StartTime:   show.StartTime,
		Seats:       make([]SeatInfo, 0, len(show.Seats)),
	}

	for _, seat := range show.Seats {
		resp.Seats = append(resp.Seats, SeatInfo{
			ID:        seat.ID,
			Row:       seat.Row,
			Col:       seat.Col,
			Category:  seat.Category,
			Price:     show.Price(seat),
			Available: available[seat.ID],
		})
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
