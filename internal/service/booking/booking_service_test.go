package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/dsemenov/skyfare/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreateConfirmed(ctx context.Context, booking *domain.Booking, memo string) error {
	args := m.Called(ctx, booking, memo)
	return args.Error(0)
}

func (m *MockBookingRepository) CancelConfirmed(ctx context.Context, bookingID int64, refund int64, memo string) error {
	args := m.Called(ctx, bookingID, refund, memo)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) SeatsTaken(ctx context.Context, flightID int64, journeyDate time.Time) ([]string, error) {
	args := m.Called(ctx, flightID, journeyDate)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBookingRepository) PNRExists(ctx context.Context, pnr string) (bool, error) {
	args := m.Called(ctx, pnr)
	return args.Bool(0), args.Error(1)
}

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Search(ctx context.Context, params repository.FlightSearch) ([]domain.Flight, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) RecordAttempt(ctx context.Context, flightID int64, userID string) error {
	args := m.Called(ctx, flightID, userID)
	return args.Error(0)
}

func (m *MockFlightRepository) CountAttemptsSince(ctx context.Context, flightID int64, since time.Time) (int, error) {
	args := m.Called(ctx, flightID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockFlightRepository) ApplySurge(ctx context.Context, flightID int64, price int64) (bool, error) {
	args := m.Called(ctx, flightID, price)
	return args.Bool(0), args.Error(1)
}

func (m *MockFlightRepository) ResetPrice(ctx context.Context, flightID int64) error {
	args := m.Called(ctx, flightID)
	return args.Error(0)
}

func (m *MockFlightRepository) ResetStalePrices(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireSeatLock(ctx context.Context, flightID int64, journeyDate time.Time, seat string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, flightID, journeyDate, seat, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseSeatLock(ctx context.Context, flightID int64, journeyDate time.Time, seat string) error {
	args := m.Called(ctx, flightID, journeyDate, seat)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var pnrPattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func testFlight() *domain.Flight {
	return &domain.Flight{
		ID:             4,
		FlightNumber:   "SF202",
		Airline:        "Skyfare",
		DepartureCity:  "Delhi",
		ArrivalCity:    "Mumbai",
		BasePrice:      2500,
		CurrentPrice:   2750,
		PriceState:     domain.PriceStateSurged,
		TotalSeats:     100,
		AvailableSeats: 50,
	}
}

func validInput() CreateBookingInput {
	return CreateBookingInput{
		FlightID:       4,
		PassengerName:  "Arjun Mehta",
		PassengerEmail: "arjun@example.com",
		PassengerPhone: "9876543210",
		JourneyDate:    time.Date(2026, 9, 15, 8, 30, 0, 0, time.UTC),
	}
}

func TestCreateBooking_AutoAssignSuccess(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	producer := &MockProducer{}
	service := NewBookingService(bookings, flights, nil, producer, "booking-events", time.Minute)

	ctx := context.Background()
	journeyDate := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	flights.On("GetByID", ctx, int64(4)).Return(testFlight(), nil).Once()
	bookings.On("SeatsTaken", ctx, int64(4), journeyDate).Return([]string{"1A"}, nil).Once()
	bookings.On("PNRExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	bookings.On("CreateConfirmed", ctx, mock.AnythingOfType("*domain.Booking"), mock.AnythingOfType("string")).Return(nil).Once()
	producer.On("Publish", ctx, "booking-events", mock.Anything, mock.Anything).Return(nil).Once()

	created, err := service.CreateBooking(ctx, "u1", validInput())

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, domain.BookingStatusConfirmed, created.Status)
	assert.Equal(t, 1, created.PassengerCount)
	// 2750 + round(2750*0.15) = 2750 + 413 = 3163
	assert.Equal(t, int64(3163), created.AmountPaid)
	// "1A" is taken, so auto-assignment hands out the next free label.
	assert.Equal(t, []string{"1B"}, created.SeatNumbers)
	assert.Regexp(t, pnrPattern, created.PNR)
	assert.Equal(t, journeyDate, created.JourneyDate)

	bookings.AssertExpectations(t)
	flights.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestCreateBooking_ExplicitSeats(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	service := NewBookingService(bookings, flights, nil, nil, "", time.Minute)

	ctx := context.Background()
	journeyDate := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	input := validInput()
	input.SeatNumbers = []string{"12C", "12D"}

	flights.On("GetByID", ctx, int64(4)).Return(testFlight(), nil).Once()
	bookings.On("SeatsTaken", ctx, int64(4), journeyDate).Return([]string{"1A"}, nil).Once()
	bookings.On("PNRExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	bookings.On("CreateConfirmed", ctx, mock.AnythingOfType("*domain.Booking"), mock.AnythingOfType("string")).Return(nil).Once()

	created, err := service.CreateBooking(ctx, "u1", input)

	assert.NoError(t, err)
	assert.Equal(t, []string{"12C", "12D"}, created.SeatNumbers)
	assert.Equal(t, 2, created.PassengerCount)
	// 2 * (2750 + 413)
	assert.Equal(t, int64(6326), created.AmountPaid)

	bookings.AssertExpectations(t)
}

func TestCreateBooking_ValidationErrors(t *testing.T) {
	service := NewBookingService(nil, nil, nil, nil, "", time.Minute)
	ctx := context.Background()

	testCases := []struct {
		name    string
		mutate  func(*CreateBookingInput)
		message string
	}{
		{
			name:    "missing name",
			mutate:  func(in *CreateBookingInput) { in.PassengerName = "" },
			message: "passenger name is required",
		},
		{
			name:    "missing email",
			mutate:  func(in *CreateBookingInput) { in.PassengerEmail = "" },
			message: "passenger email is required",
		},
		{
			name:    "missing journey date",
			mutate:  func(in *CreateBookingInput) { in.JourneyDate = time.Time{} },
			message: "journey date is required",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := service.CreateBooking(ctx, "u1", input)
			assert.EqualError(t, err, tc.message)
		})
	}
}

func TestCreateBooking_FlightNotFound(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	service := NewBookingService(bookings, flights, nil, nil, "", time.Minute)
	ctx := context.Background()

	flights.On("GetByID", ctx, int64(4)).Return(nil, domain.ErrFlightNotFound).Once()

	_, err := service.CreateBooking(ctx, "u1", validInput())

	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
	flights.AssertExpectations(t)
}

func TestCreateBooking_Oversell(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	service := NewBookingService(bookings, flights, nil, nil, "", time.Minute)
	ctx := context.Background()

	flight := testFlight()
	flight.AvailableSeats = 2

	input := validInput()
	input.PassengerCount = 3

	flights.On("GetByID", ctx, int64(4)).Return(flight, nil).Once()

	_, err := service.CreateBooking(ctx, "u1", input)

	assert.ErrorIs(t, err, domain.ErrInsufficientSeats)
	var seatsErr *domain.InsufficientSeatsError
	assert.ErrorAs(t, err, &seatsErr)
	assert.Equal(t, 3, seatsErr.Requested)
	assert.Equal(t, 2, seatsErr.Available)

	// Nothing was reserved or debited.
	bookings.AssertNotCalled(t, "CreateConfirmed", mock.Anything, mock.Anything, mock.Anything)
	flights.AssertExpectations(t)
}

func TestCreateBooking_SeatConflict(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	service := NewBookingService(bookings, flights, nil, nil, "", time.Minute)
	ctx := context.Background()
	journeyDate := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	input := validInput()
	input.SeatNumbers = []string{"12C"}

	flights.On("GetByID", ctx, int64(4)).Return(testFlight(), nil).Once()
	bookings.On("SeatsTaken", ctx, int64(4), journeyDate).Return([]string{"12C"}, nil).Once()

	_, err := service.CreateBooking(ctx, "u1", input)

	assert.ErrorIs(t, err, domain.ErrSeatTaken)
	bookings.AssertNotCalled(t, "CreateConfirmed", mock.Anything, mock.Anything, mock.Anything)
	bookings.AssertExpectations(t)
}

func TestCreateBooking_DuplicateSeatInRequest(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	service := NewBookingService(bookings, flights, nil, nil, "", time.Minute)
	ctx := context.Background()
	journeyDate := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	input := validInput()
	input.SeatNumbers = []string{"12C", "12C"}

	flights.On("GetByID", ctx, int64(4)).Return(testFlight(), nil).Once()
	bookings.On("SeatsTaken", ctx, int64(4), journeyDate).Return([]string{}, nil).Once()

	_, err := service.CreateBooking(ctx, "u1", input)

	assert.ErrorContains(t, err, "duplicate seat")
}

func TestCreateBooking_InsufficientFunds(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	service := NewBookingService(bookings, flights, nil, nil, "", time.Minute)
	ctx := context.Background()
	journeyDate := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	flights.On("GetByID", ctx, int64(4)).Return(testFlight(), nil).Once()
	bookings.On("SeatsTaken", ctx, int64(4), journeyDate).Return([]string{}, nil).Once()
	bookings.On("PNRExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	bookings.On("CreateConfirmed", ctx, mock.AnythingOfType("*domain.Booking"), mock.AnythingOfType("string")).
		Return(&domain.InsufficientFundsError{Required: 3163, Available: 1000}).Once()

	_, err := service.CreateBooking(ctx, "u1", validInput())

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	var fundsErr *domain.InsufficientFundsError
	assert.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, int64(3163), fundsErr.Required)
	assert.Equal(t, int64(1000), fundsErr.Available)

	bookings.AssertExpectations(t)
}

func TestCreateBooking_SeatLockHeld(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	seatCache := &MockCache{}
	service := NewBookingService(bookings, flights, seatCache, nil, "", time.Minute)
	ctx := context.Background()
	journeyDate := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	input := validInput()
	input.SeatNumbers = []string{"12C", "12D"}

	flights.On("GetByID", ctx, int64(4)).Return(testFlight(), nil).Once()
	bookings.On("SeatsTaken", ctx, int64(4), journeyDate).Return([]string{}, nil).Once()
	seatCache.On("AcquireSeatLock", ctx, int64(4), journeyDate, "12C", time.Minute).Return(true, nil).Once()
	seatCache.On("AcquireSeatLock", ctx, int64(4), journeyDate, "12D", time.Minute).Return(false, nil).Once()
	// The lock taken for 12C is released when 12D fails.
	seatCache.On("ReleaseSeatLock", ctx, int64(4), journeyDate, "12C").Return(nil).Once()

	_, err := service.CreateBooking(ctx, "u1", input)

	assert.ErrorIs(t, err, domain.ErrSeatTaken)
	bookings.AssertNotCalled(t, "CreateConfirmed", mock.Anything, mock.Anything, mock.Anything)
	seatCache.AssertExpectations(t)
}

func TestCreateBooking_PNRCollisionRetries(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	service := NewBookingService(bookings, flights, nil, nil, "", time.Minute)
	ctx := context.Background()
	journeyDate := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	flights.On("GetByID", ctx, int64(4)).Return(testFlight(), nil).Once()
	bookings.On("SeatsTaken", ctx, int64(4), journeyDate).Return([]string{}, nil).Once()
	bookings.On("PNRExists", ctx, mock.AnythingOfType("string")).Return(true, nil).Once()
	bookings.On("PNRExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Twice()
	// First insert loses a race on the unique index, second succeeds.
	bookings.On("CreateConfirmed", ctx, mock.AnythingOfType("*domain.Booking"), mock.AnythingOfType("string")).
		Return(repository.ErrPNRConflict).Once()
	bookings.On("CreateConfirmed", ctx, mock.AnythingOfType("*domain.Booking"), mock.AnythingOfType("string")).
		Return(nil).Once()

	created, err := service.CreateBooking(ctx, "u1", validInput())

	assert.NoError(t, err)
	assert.Regexp(t, pnrPattern, created.PNR)
	bookings.AssertExpectations(t)
}

func TestCancelBooking_Success(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	producer := &MockProducer{}
	service := NewBookingService(bookings, flights, nil, producer, "booking-events", time.Minute)
	ctx := context.Background()

	existing := &domain.Booking{
		ID:             7,
		UserID:         "u1",
		FlightID:       4,
		PNR:            "AB12CD",
		PassengerCount: 1,
		AmountPaid:     3163,
		Status:         domain.BookingStatusConfirmed,
	}

	bookings.On("GetByID", ctx, int64(7)).Return(existing, nil).Once()
	// round(0.9 * 3163) = 2847
	bookings.On("CancelConfirmed", ctx, int64(7), int64(2847), "Refund for cancelled booking - PNR: AB12CD").Return(nil).Once()
	producer.On("Publish", ctx, "booking-events", "AB12CD", mock.Anything).Return(nil).Once()

	err := service.CancelBooking(ctx, "u1", 7)

	assert.NoError(t, err)
	bookings.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestCancelBooking_Forbidden(t *testing.T) {
	bookings := &MockBookingRepository{}
	service := NewBookingService(bookings, nil, nil, nil, "", time.Minute)
	ctx := context.Background()

	existing := &domain.Booking{ID: 7, UserID: "owner", Status: domain.BookingStatusConfirmed}
	bookings.On("GetByID", ctx, int64(7)).Return(existing, nil).Once()

	err := service.CancelBooking(ctx, "intruder", 7)

	assert.ErrorIs(t, err, domain.ErrForbidden)
	bookings.AssertNotCalled(t, "CancelConfirmed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelBooking_AlreadyCancelled(t *testing.T) {
	bookings := &MockBookingRepository{}
	service := NewBookingService(bookings, nil, nil, nil, "", time.Minute)
	ctx := context.Background()

	existing := &domain.Booking{ID: 7, UserID: "u1", Status: domain.BookingStatusCancelled}
	bookings.On("GetByID", ctx, int64(7)).Return(existing, nil).Once()

	err := service.CancelBooking(ctx, "u1", 7)

	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	bookings.AssertNotCalled(t, "CancelConfirmed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelBooking_NotFound(t *testing.T) {
	bookings := &MockBookingRepository{}
	service := NewBookingService(bookings, nil, nil, nil, "", time.Minute)
	ctx := context.Background()

	bookings.On("GetByID", ctx, int64(99)).Return(nil, domain.ErrBookingNotFound).Once()

	err := service.CancelBooking(ctx, "u1", 99)

	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestGetBooking_OwnershipEnforced(t *testing.T) {
	bookings := &MockBookingRepository{}
	service := NewBookingService(bookings, nil, nil, nil, "", time.Minute)
	ctx := context.Background()

	existing := &domain.Booking{ID: 7, UserID: "owner"}
	bookings.On("GetByID", ctx, int64(7)).Return(existing, nil).Twice()

	got, err := service.GetBooking(ctx, "owner", 7)
	assert.NoError(t, err)
	assert.Equal(t, existing, got)

	_, err = service.GetBooking(ctx, "intruder", 7)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTicket(t *testing.T) {
	bookings := &MockBookingRepository{}
	flights := &MockFlightRepository{}
	service := NewBookingService(bookings, flights, nil, nil, "", time.Minute)
	ctx := context.Background()

	existing := &domain.Booking{
		ID:          7,
		UserID:      "u1",
		FlightID:    4,
		PNR:         "AB12CD",
		SeatNumbers: []string{"1B"},
		AmountPaid:  3163,
		Status:      domain.BookingStatusConfirmed,
		Flight:      testFlight(),
	}
	bookings.On("GetByID", ctx, int64(7)).Return(existing, nil).Once()

	ticket, err := service.Ticket(ctx, "u1", 7)

	assert.NoError(t, err)
	assert.Equal(t, "AB12CD", ticket.PNR)
	assert.Equal(t, "SF202", ticket.FlightNumber)
	assert.Equal(t, "Delhi", ticket.From)
	assert.Equal(t, "Mumbai", ticket.To)
	assert.Equal(t, int64(3163), ticket.AmountPaid)
}

func TestRounding(t *testing.T) {
	// The booked scenario from the pricing docs: surge 2500 -> 2750,
	// tax 413, total 3163, refund 2847.
	assert.Equal(t, int64(413), RoundTax(2750))
	assert.Equal(t, int64(375), RoundTax(2500))
	assert.Equal(t, int64(2847), RoundRefund(3163))
	assert.Equal(t, int64(0), RoundRefund(0))
}

func TestSeatLabel(t *testing.T) {
	assert.Equal(t, "1A", SeatLabel(0))
	assert.Equal(t, "1F", SeatLabel(5))
	assert.Equal(t, "2A", SeatLabel(6))
	assert.Equal(t, "17B", SeatLabel(97))
}

func TestAssignSeats_SkipsTaken(t *testing.T) {
	seats, err := assignSeats(12, []string{"1A", "1C"}, 3)
	assert.NoError(t, err)
	assert.Equal(t, []string{"1B", "1D", "1E"}, seats)
}

func TestAssignSeats_NotEnoughFree(t *testing.T) {
	_, err := assignSeats(2, []string{"1A"}, 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientSeats)
}
