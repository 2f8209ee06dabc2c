package pricing

import (
	"context"
	"time"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/dsemenov/skyfare/internal/metrics"
	"github.com/dsemenov/skyfare/internal/repository"
)

type PricingUseCase interface {
	RecordAttempt(ctx context.Context, flightID int64, userID string) error
	RefreshPrice(ctx context.Context, flightID int64) (domain.PriceSnapshot, error)
	SweepCooldowns(ctx context.Context) (int64, error)
}

type PricingService struct {
	flights       repository.FlightRepository
	attemptWindow time.Duration
	cooldown      time.Duration
	threshold     int
}

func NewPricingService(flights repository.FlightRepository, attemptWindow, cooldown time.Duration, threshold int) *PricingService {
	return &PricingService{
		flights:       flights,
		attemptWindow: attemptWindow,
		cooldown:      cooldown,
		threshold:     threshold,
	}
}

// RecordAttempt appends a demand signal to the flight's attempt log. It does
// not change the price; RefreshPrice reads the log.
func (s *PricingService) RecordAttempt(ctx context.Context, flightID int64, userID string) error {
	return s.flights.RecordAttempt(ctx, flightID, userID)
}

// RefreshPrice recomputes a flight's quoted price. A flight past its cooldown
// resets to base unconditionally; otherwise enough recent attempts raise the
// price once until the next reset.
func (s *PricingService) RefreshPrice(ctx context.Context, flightID int64) (domain.PriceSnapshot, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}

	now := time.Now()
	if now.Sub(flight.LastPriceUpdate) > s.cooldown {
		if err := s.flights.ResetPrice(ctx, flightID); err != nil {
			return domain.PriceSnapshot{}, err
		}
		flight.CurrentPrice = flight.BasePrice
		flight.PriceState = domain.PriceStateBaseline
		flight.LastPriceUpdate = now
		return flight.Snapshot(), nil
	}

	if flight.PriceState != domain.PriceStateBaseline {
		return flight.Snapshot(), nil
	}

	count, err := s.flights.CountAttemptsSince(ctx, flightID, now.Add(-s.attemptWindow))
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	if count < s.threshold {
		return flight.Snapshot(), nil
	}

	price := SurgePrice(flight.BasePrice)
	applied, err := s.flights.ApplySurge(ctx, flightID, price)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	if applied {
		flight.CurrentPrice = price
		flight.PriceState = domain.PriceStateSurged
		flight.LastPriceUpdate = now
		metrics.IncSurgeActivation()
	}
	return flight.Snapshot(), nil
}

// SweepCooldowns resets every flight whose cooldown elapsed. The request path
// performs the same reset; the sweep only keeps idle flights from staying
// surged. Safe to run repeatedly.
func (s *PricingService) SweepCooldowns(ctx context.Context) (int64, error) {
	return s.flights.ResetStalePrices(ctx, time.Now().Add(-s.cooldown))
}

// SurgePrice is the surged quote for a base price: a 10% increase, capped at
// 150% of base.
func SurgePrice(basePrice int64) int64 {
	raised := basePrice * 11 / 10
	limit := basePrice * 3 / 2
	if raised > limit {
		return limit
	}
	return raised
}

var _ PricingUseCase = (*PricingService)(nil)
