package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPNRConflict is returned when the generated reference code lost a race
// against a concurrent insert; the caller regenerates and retries.
var ErrPNRConflict = errors.New("pnr already exists")

type BookingRepository interface {
	// CreateConfirmed commits the wallet debit, the seat decrement and the
	// booking insert as a single transaction: either all apply or none.
	CreateConfirmed(ctx context.Context, booking *domain.Booking, memo string) error
	// CancelConfirmed flips the status, restores the seats and credits the
	// refund as a single transaction.
	CancelConfirmed(ctx context.Context, bookingID int64, refund int64, memo string) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	SeatsTaken(ctx context.Context, flightID int64, journeyDate time.Time) ([]string, error)
	PNRExists(ctx context.Context, pnr string) (bool, error)
}

type PGBookingRepository struct {
	db              *pgxpool.Pool
	startingBalance int64
}

func NewBookingRepository(db *pgxpool.Pool, startingBalance int64) BookingRepository {
	return &PGBookingRepository{db: db, startingBalance: startingBalance}
}

func (r *PGBookingRepository) CreateConfirmed(ctx context.Context, booking *domain.Booking, memo string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	walletID, err := debitWallet(ctx, tx, booking.UserID, booking.AmountPaid, r.startingBalance)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO wallet_transactions (id, wallet_id, amount, kind, description, booking_pnr)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), walletID, booking.AmountPaid, domain.TransactionDebit, memo, booking.PNR); err != nil {
		return err
	}

	var available int
	err = tx.QueryRow(ctx, `UPDATE flights SET available_seats = available_seats - $2, updated_at = now()
		WHERE id=$1 AND available_seats >= $2 RETURNING available_seats`,
		booking.FlightID, booking.PassengerCount).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		var current int
		if err := tx.QueryRow(ctx, `SELECT available_seats FROM flights WHERE id=$1`, booking.FlightID).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrFlightNotFound
			}
			return err
		}
		return &domain.InsufficientSeatsError{Requested: booking.PassengerCount, Available: current}
	}
	if err != nil {
		return err
	}

	booking.Status = domain.BookingStatusConfirmed
	err = tx.QueryRow(ctx, `INSERT INTO bookings (user_id, flight_id, passenger_name, passenger_email, passenger_phone, pnr, seat_numbers, passenger_count, journey_date, amount_paid, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		booking.UserID, booking.FlightID, booking.PassengerName, booking.PassengerEmail, booking.PassengerPhone,
		booking.PNR, booking.SeatNumbers, booking.PassengerCount, booking.JourneyDate, booking.AmountPaid, booking.Status).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrPNRConflict
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) CancelConfirmed(ctx context.Context, bookingID int64, refund int64, memo string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var (
		flightID       int64
		userID         string
		pnr            string
		passengerCount int
	)
	err = tx.QueryRow(ctx, `UPDATE bookings SET status=$2, updated_at=now()
		WHERE id=$1 AND status <> $2
		RETURNING flight_id, user_id, pnr, passenger_count`,
		bookingID, domain.BookingStatusCancelled).
		Scan(&flightID, &userID, &pnr, &passengerCount)
	if errors.Is(err, pgx.ErrNoRows) {
		var status domain.BookingStatus
		if err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id=$1`, bookingID).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrBookingNotFound
			}
			return err
		}
		return domain.ErrAlreadyCancelled
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE flights
		SET available_seats = LEAST(total_seats, available_seats + $2), updated_at = now()
		WHERE id=$1`, flightID, passengerCount); err != nil {
		return err
	}

	walletID, err := creditWallet(ctx, tx, userID, refund, r.startingBalance)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO wallet_transactions (id, wallet_id, amount, kind, description, booking_pnr)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), walletID, refund, domain.TransactionCredit, memo, pnr); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const bookingColumns = `id, user_id, flight_id, passenger_name, passenger_email, passenger_phone, pnr, seat_numbers, passenger_count, journey_date, amount_paid, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.FlightID, &b.PassengerName, &b.PassengerEmail, &b.PassengerPhone, &b.PNR, &b.SeatNumbers, &b.PassengerCount, &b.JourneyDate, &b.AmountPaid, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Flight, err = scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, b.FlightID))
	if err != nil {
		return nil, fmt.Errorf("load booking flight: %w", err)
	}
	return b, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// SeatsTaken lists seat labels held by confirmed bookings for a flight on a
// journey date.
func (r *PGBookingRepository) SeatsTaken(ctx context.Context, flightID int64, journeyDate time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT seat_numbers FROM bookings
		WHERE flight_id=$1 AND journey_date=$2 AND status=$3`,
		flightID, journeyDate, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	taken := make([]string, 0)
	for rows.Next() {
		var seats []string
		if err := rows.Scan(&seats); err != nil {
			return nil, err
		}
		taken = append(taken, seats...)
	}
	return taken, rows.Err()
}

func (r *PGBookingRepository) PNRExists(ctx context.Context, pnr string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE pnr=$1)`, pnr).Scan(&exists)
	return exists, err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
