package domain

import "time"

// BookingEvent notifies observers of a booking lifecycle transition. Delivery
// is best-effort; no acknowledgment flows back into the engine.
type BookingEvent struct {
	BookingID string        `json:"booking_id"`
	ShowID    string        `json:"show_id"`
	SeatIDs   []string      `json:"seat_ids"`
	UserID    string        `json:"user_id"`
	Status    BookingStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}
