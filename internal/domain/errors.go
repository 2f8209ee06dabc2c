package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFlightNotFound    = errors.New("flight not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientSeats = errors.New("not enough seats available")
	ErrSeatTaken         = errors.New("seat already booked")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrForbidden         = errors.New("not authorized")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
)

// InsufficientFundsError reports the required versus available amounts so the
// caller can show an actionable message.
type InsufficientFundsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

type InsufficientSeatsError struct {
	Requested int
	Available int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("not enough seats available: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientSeatsError) Unwrap() error { return ErrInsufficientSeats }
