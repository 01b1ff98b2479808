package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Show is an immutable screening definition supplied by the catalog. Seat
// state is not part of the show; the inventory store owns that.
type Show struct {
	ID          string
	MovieTitle  string
	TheaterName string
	HallName    string
	StartTime   time.Time
	BasePrice   decimal.Decimal
	Seats       []SeatDefinition
}

// SeatDefinition describes one seat of a show's hall layout.
type SeatDefinition struct {
	ID         string
	Row        int
	Col        int
	Category   string
	ExtraPrice decimal.Decimal
}

// Price returns the full price of a single seat for this show.
func (s Show) Price(seat SeatDefinition) decimal.Decimal {
	return s.BasePrice.Add(seat.ExtraPrice)
}

type CatalogRepository interface {
	GetShow(ctx context.Context, showID string) (*Show, error)
	GetShows(ctx context.Context) ([]Show, error)
}
