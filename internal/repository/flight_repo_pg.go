package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightSearch struct {
	DepartureCity string
	ArrivalCity   string
	Date          time.Time
	Passengers    int
	Limit         int
}

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Search(ctx context.Context, params FlightSearch) ([]domain.Flight, error)
	RecordAttempt(ctx context.Context, flightID int64, userID string) error
	CountAttemptsSince(ctx context.Context, flightID int64, since time.Time) (int, error)
	ApplySurge(ctx context.Context, flightID int64, price int64) (bool, error)
	ResetPrice(ctx context.Context, flightID int64) error
	ResetStalePrices(ctx context.Context, before time.Time) (int64, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, airline, departure_city, arrival_city, departure_time, arrival_time, base_price, current_price, price_state, total_seats, available_seats, last_price_update, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.DepartureCity, &f.ArrivalCity, &f.DepartureTime, &f.ArrivalTime, &f.BasePrice, &f.CurrentPrice, &f.PriceState, &f.TotalSeats, &f.AvailableSeats, &f.LastPriceUpdate, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFlightNotFound
	}
	return f, err
}

func (r *PGFlightRepository) Search(ctx context.Context, params FlightSearch) ([]domain.Flight, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}
	passengers := params.Passengers
	if passengers <= 0 {
		passengers = 1
	}
	dayStart := params.Date.Truncate(24 * time.Hour)
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE departure_city ILIKE $1 AND arrival_city ILIKE $2
		AND departure_time >= $3 AND departure_time < $4
		AND available_seats >= $5
		ORDER BY departure_time LIMIT $6`,
		"%"+params.DepartureCity+"%", "%"+params.ArrivalCity+"%", dayStart, dayStart.Add(24*time.Hour), passengers, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) RecordAttempt(ctx context.Context, flightID int64, userID string) error {
	res, err := r.db.Exec(ctx, `INSERT INTO booking_attempts (flight_id, user_id)
		SELECT id, $2 FROM flights WHERE id=$1`, flightID, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (r *PGFlightRepository) CountAttemptsSince(ctx context.Context, flightID int64, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM booking_attempts WHERE flight_id=$1 AND created_at > $2`, flightID, since).Scan(&count)
	return count, err
}

// ApplySurge raises the price only if the flight is still at baseline. The
// guard lives in the WHERE clause so concurrent refreshes apply surge once.
func (r *PGFlightRepository) ApplySurge(ctx context.Context, flightID int64, price int64) (bool, error) {
	res, err := r.db.Exec(ctx, `UPDATE flights
		SET current_price=$2, price_state=$3, last_price_update=now(), updated_at=now()
		WHERE id=$1 AND price_state=$4 AND $2 >= base_price`,
		flightID, price, domain.PriceStateSurged, domain.PriceStateBaseline)
	if err != nil {
		return false, fmt.Errorf("apply surge: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

func (r *PGFlightRepository) ResetPrice(ctx context.Context, flightID int64) error {
	res, err := r.db.Exec(ctx, `UPDATE flights
		SET current_price=base_price, price_state=$2, last_price_update=now(), updated_at=now()
		WHERE id=$1`, flightID, domain.PriceStateBaseline)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

// ResetStalePrices returns surged flights whose cooldown expired to baseline.
func (r *PGFlightRepository) ResetStalePrices(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `UPDATE flights
		SET current_price=base_price, price_state=$2, last_price_update=now(), updated_at=now()
		WHERE last_price_update < $1 AND (price_state <> $2 OR current_price <> base_price)`,
		before, domain.PriceStateBaseline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
