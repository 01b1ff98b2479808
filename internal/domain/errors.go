package domain

import "errors"

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrSeatsUnavailable   = errors.New("seat(s) are already held or booked")
	ErrHoldNotFound       = errors.New("hold not found")
	ErrHoldExpired        = errors.New("hold has expired")
	ErrSeatsNotHeld       = errors.New("seat(s) are not held by this hold")
	ErrPaymentFailed      = errors.New("payment was declined")
	ErrPaymentTimeout     = errors.New("payment gateway timed out")
	ErrDuplicatePayment   = errors.New("payment reference already recorded")
	ErrInvariantViolation = errors.New("seat inventory invariant violated")
)
