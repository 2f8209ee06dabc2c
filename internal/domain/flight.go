package domain

import "time"

type PriceState string

const (
	PriceStateBaseline PriceState = "baseline"
	PriceStateSurged   PriceState = "surged"
)

type Flight struct {
	ID              int64
	FlightNumber    string
	Airline         string
	DepartureCity   string
	ArrivalCity     string
	DepartureTime   time.Time
	ArrivalTime     time.Time
	BasePrice       int64
	CurrentPrice    int64
	PriceState      PriceState
	TotalSeats      int
	AvailableSeats  int
	LastPriceUpdate time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookingAttempt is one entry of a flight's demand log.
type BookingAttempt struct {
	ID        int64
	FlightID  int64
	UserID    string
	CreatedAt time.Time
}

// PriceSnapshot is the public view of a flight's current pricing.
type PriceSnapshot struct {
	FlightID        int64     `json:"flightId"`
	CurrentPrice    int64     `json:"currentPrice"`
	BasePrice       int64     `json:"basePrice"`
	LastPriceUpdate time.Time `json:"lastPriceUpdate"`
	IsSurgePricing  bool      `json:"isSurgePricing"`
}

func (f *Flight) Snapshot() PriceSnapshot {
	return PriceSnapshot{
		FlightID:        f.ID,
		CurrentPrice:    f.CurrentPrice,
		BasePrice:       f.BasePrice,
		LastPriceUpdate: f.LastPriceUpdate,
		IsSurgePricing:  f.CurrentPrice > f.BasePrice,
	}
}
