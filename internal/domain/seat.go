package domain

import "time"

type SeatState string

const (
	SeatAvailable SeatState = "AVAILABLE"
	SeatHeld      SeatState = "HELD"
	SeatBooked    SeatState = "BOOKED"
)

// SeatVersion pairs a seat with the version its caller last observed. The
// inventory store rejects a hold attempt when any seat has moved past the
// observed version.
type SeatVersion struct {
	SeatID  string
	Version int64
}

// SeatView is a read-only snapshot of one seat's inventory record.
type SeatView struct {
	SeatID     string
	State      SeatState
	Version    int64
	HoldID     string
	HoldExpiry time.Time
}
