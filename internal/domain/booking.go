package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type Booking struct {
	ID             int64
	UserID         string
	FlightID       int64
	PassengerName  string
	PassengerEmail string
	PassengerPhone string
	PNR            string
	SeatNumbers    []string
	PassengerCount int
	JourneyDate    time.Time
	AmountPaid     int64
	Status         BookingStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Flight summary attached for display, populated on reads.
	Flight *Flight
}
