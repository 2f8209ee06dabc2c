package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/dsemenov/skyfare/internal/kafka"
	"github.com/dsemenov/skyfare/internal/metrics"
	"github.com/dsemenov/skyfare/internal/repository"
)

const (
	taxRate        = 0.15
	refundRate     = 0.90
	seatsPerRow    = 6
	maxPNRAttempts = 10
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, userID string, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, userID string, bookingID int64) error
	GetBooking(ctx context.Context, userID string, bookingID int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	Ticket(ctx context.Context, userID string, bookingID int64) (*Ticket, error)
}

type Cache interface {
	AcquireSeatLock(ctx context.Context, flightID int64, journeyDate time.Time, seat string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, flightID int64, journeyDate time.Time, seat string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	flights            repository.FlightRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	seatHoldTTL        time.Duration
}

type CreateBookingInput struct {
	FlightID       int64     `json:"flight_id"`
	PassengerName  string    `json:"passenger_name"`
	PassengerEmail string    `json:"passenger_email"`
	PassengerPhone string    `json:"passenger_phone"`
	SeatNumbers    []string  `json:"seat_numbers"`
	PassengerCount int       `json:"passenger_count"`
	JourneyDate    time.Time `json:"journey_date"`
}

// Ticket is the flat ticket view handed to the web layer for rendering.
type Ticket struct {
	PNR            string    `json:"pnr"`
	PassengerName  string    `json:"passengerName"`
	FlightNumber   string    `json:"flightNumber"`
	Airline        string    `json:"airline"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	DepartureTime  time.Time `json:"departureTime"`
	ArrivalTime    time.Time `json:"arrivalTime"`
	SeatNumbers    []string  `json:"seatNumbers"`
	JourneyDate    time.Time `json:"journeyDate"`
	Status         string    `json:"status"`
	AmountPaid     int64     `json:"amountPaid"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	cache Cache,
	producer Producer,
	bookingTopic string,
	seatHoldTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		flights:      flights,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		seatHoldTTL:  seatHoldTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, userID string, input CreateBookingInput) (*domain.Booking, error) {
	if input.PassengerName == "" {
		return nil, errors.New("passenger name is required")
	}
	if input.PassengerEmail == "" {
		return nil, errors.New("passenger email is required")
	}
	if input.JourneyDate.IsZero() {
		return nil, errors.New("journey date is required")
	}

	count := input.PassengerCount
	if len(input.SeatNumbers) > 0 {
		count = len(input.SeatNumbers)
	} else if count <= 0 {
		count = 1
	}
	journeyDate := normalizeDate(input.JourneyDate)

	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	if flight.AvailableSeats < count {
		return nil, &domain.InsufficientSeatsError{Requested: count, Available: flight.AvailableSeats}
	}

	taken, err := s.bookings.SeatsTaken(ctx, flight.ID, journeyDate)
	if err != nil {
		return nil, err
	}

	var seats []string
	if len(input.SeatNumbers) > 0 {
		seats, err = validateSeats(input.SeatNumbers, taken)
	} else {
		seats, err = assignSeats(flight.TotalSeats, taken, count)
	}
	if err != nil {
		return nil, err
	}

	held, err := s.holdSeats(ctx, flight.ID, journeyDate, seats)
	if err != nil {
		return nil, err
	}
	defer s.releaseSeats(ctx, flight.ID, journeyDate, held)

	unitPrice := flight.CurrentPrice
	tax := RoundTax(unitPrice)
	total := int64(count) * (unitPrice + tax)

	booking := &domain.Booking{
		UserID:         userID,
		FlightID:       flight.ID,
		PassengerName:  input.PassengerName,
		PassengerEmail: input.PassengerEmail,
		PassengerPhone: input.PassengerPhone,
		SeatNumbers:    seats,
		PassengerCount: count,
		JourneyDate:    journeyDate,
		AmountPaid:     total,
	}
	memo := fmt.Sprintf("Flight booking - %s - Seats %s", flight.FlightNumber, strings.Join(seats, ","))

	if err := s.commitWithPNR(ctx, booking, memo); err != nil {
		return nil, err
	}
	booking.Flight = flight

	metrics.IncBookingCreated()
	metrics.IncWalletOp(string(domain.TransactionDebit))
	if err := s.publish(ctx, "booking_created", booking); err != nil {
		log.Printf("WARNING: failed to publish booking_created for %s: %v", booking.PNR, err)
	}
	return booking, nil
}

// commitWithPNR generates a reference code and commits the booking,
// regenerating on the rare collision. The unique index on pnr is the hard
// guarantee; the PNRExists pre-check just keeps retries cheap.
func (s *BookingService) commitWithPNR(ctx context.Context, booking *domain.Booking, memo string) error {
	for attempt := 0; attempt < maxPNRAttempts; attempt++ {
		pnr := GeneratePNR()
		exists, err := s.bookings.PNRExists(ctx, pnr)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		booking.PNR = pnr
		err = s.bookings.CreateConfirmed(ctx, booking, memo)
		if errors.Is(err, repository.ErrPNRConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("could not generate a unique pnr after %d attempts", maxPNRAttempts)
}

func (s *BookingService) CancelBooking(ctx context.Context, userID string, bookingID int64) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return domain.ErrForbidden
	}
	if booking.Status == domain.BookingStatusCancelled {
		return domain.ErrAlreadyCancelled
	}

	refund := RoundRefund(booking.AmountPaid)
	memo := fmt.Sprintf("Refund for cancelled booking - PNR: %s", booking.PNR)
	if err := s.bookings.CancelConfirmed(ctx, bookingID, refund, memo); err != nil {
		return err
	}

	booking.Status = domain.BookingStatusCancelled
	metrics.IncBookingCancelled()
	metrics.IncWalletOp(string(domain.TransactionCredit))
	if err := s.publish(ctx, "booking_cancelled", booking); err != nil {
		log.Printf("WARNING: failed to publish booking_cancelled for %s: %v", booking.PNR, err)
	}
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, userID string, bookingID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return booking, nil
}

func (s *BookingService) ListBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *BookingService) Ticket(ctx context.Context, userID string, bookingID int64) (*Ticket, error) {
	booking, err := s.GetBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	flight := booking.Flight
	if flight == nil {
		flight, err = s.flights.GetByID(ctx, booking.FlightID)
		if err != nil {
			return nil, err
		}
	}

	return &Ticket{
		PNR:           booking.PNR,
		PassengerName: booking.PassengerName,
		FlightNumber:  flight.FlightNumber,
		Airline:       flight.Airline,
		From:          flight.DepartureCity,
		To:            flight.ArrivalCity,
		DepartureTime: flight.DepartureTime,
		ArrivalTime:   flight.ArrivalTime,
		SeatNumbers:   booking.SeatNumbers,
		JourneyDate:   booking.JourneyDate,
		Status:        string(booking.Status),
		AmountPaid:    booking.AmountPaid,
	}, nil
}

func (s *BookingService) holdSeats(ctx context.Context, flightID int64, journeyDate time.Time, seats []string) ([]string, error) {
	if s.cache == nil {
		return nil, nil
	}
	held := make([]string, 0, len(seats))
	for _, seat := range seats {
		ok, err := s.cache.AcquireSeatLock(ctx, flightID, journeyDate, seat, s.seatHoldTTL)
		if err == nil && !ok {
			err = fmt.Errorf("%w: %s", domain.ErrSeatTaken, seat)
		}
		if err != nil {
			s.releaseSeats(ctx, flightID, journeyDate, held)
			return nil, err
		}
		held = append(held, seat)
	}
	return held, nil
}

func (s *BookingService) releaseSeats(ctx context.Context, flightID int64, journeyDate time.Time, seats []string) {
	if s.cache == nil {
		return
	}
	for _, seat := range seats {
		_ = s.cache.ReleaseSeatLock(ctx, flightID, journeyDate, seat)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.BookingEvent{
		Type:           eventType,
		PNR:            booking.PNR,
		FlightID:       booking.FlightID,
		SeatNumbers:    booking.SeatNumbers,
		PassengerCount: booking.PassengerCount,
		Email:          booking.PassengerEmail,
		Status:         string(booking.Status),
		Amount:         booking.AmountPaid,
		JourneyDate:    booking.JourneyDate,
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.PNR, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.PNR, event)
	}
	return nil
}

// validateSeats rejects duplicates in the request and collisions with seats
// already held by confirmed bookings.
func validateSeats(requested, taken []string) ([]string, error) {
	seen := make(map[string]struct{}, len(requested))
	for _, seat := range requested {
		if _, ok := seen[seat]; ok {
			return nil, fmt.Errorf("duplicate seat in request: %s", seat)
		}
		seen[seat] = struct{}{}
	}
	takenSet := make(map[string]struct{}, len(taken))
	for _, seat := range taken {
		takenSet[seat] = struct{}{}
	}
	for _, seat := range requested {
		if _, ok := takenSet[seat]; ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrSeatTaken, seat)
		}
	}
	return requested, nil
}

// assignSeats draws labels from the flight's actual free set for the journey
// date, never handing out a label a confirmed booking already holds.
func assignSeats(totalSeats int, taken []string, count int) ([]string, error) {
	takenSet := make(map[string]struct{}, len(taken))
	for _, seat := range taken {
		takenSet[seat] = struct{}{}
	}

	free := make([]string, 0, totalSeats)
	for i := 0; i < totalSeats; i++ {
		label := SeatLabel(i)
		if _, ok := takenSet[label]; !ok {
			free = append(free, label)
		}
	}
	if len(free) < count {
		return nil, &domain.InsufficientSeatsError{Requested: count, Available: len(free)}
	}
	return free[:count], nil
}

// SeatLabel maps a zero-based seat index to a cabin label ("1A".."17B"...).
func SeatLabel(i int) string {
	return fmt.Sprintf("%d%c", i/seatsPerRow+1, 'A'+byte(i%seatsPerRow))
}

// RoundTax is the per-seat tax on a unit price.
func RoundTax(unitPrice int64) int64 {
	return int64(math.Round(float64(unitPrice) * taxRate))
}

// RoundRefund is the amount credited back on cancellation (a flat 10%
// penalty is withheld).
func RoundRefund(amountPaid int64) int64 {
	return int64(math.Round(float64(amountPaid) * refundRate))
}

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var _ BookingUseCase = (*BookingService)(nil)
