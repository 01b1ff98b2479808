package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type HoldStatus string

const (
	HoldActive    HoldStatus = "ACTIVE"
	HoldExpired   HoldStatus = "EXPIRED"
	HoldConverted HoldStatus = "CONVERTED"
	HoldReleased  HoldStatus = "RELEASED"
)

// Hold is a temporary, time-bounded claim on a set of seats for one show. It
// is created atomically across all requested seats or not at all, and is owned
// by the hold manager; other components refer to it by ID only.
type Hold struct {
	ID         string
	ShowID     string
	SeatIDs    []string
	UserID     string
	TotalPrice decimal.Decimal
	Status     HoldStatus
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the hold's TTL has elapsed at the given instant.
func (h *Hold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}
