package flights

import (
	"context"
	"time"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/dsemenov/skyfare/internal/repository"
	"github.com/dsemenov/skyfare/internal/service/pricing"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Search(ctx context.Context, params repository.FlightSearch) ([]domain.Flight, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type FlightService struct {
	repo     repository.FlightRepository
	pricing  pricing.PricingUseCase
	cache    FlightCache
	cacheTTL time.Duration
}

func NewFlightService(repo repository.FlightRepository, pricing pricing.PricingUseCase, cache FlightCache, cacheTTL time.Duration) *FlightService {
	return &FlightService{repo: repo, pricing: pricing, cache: cache, cacheTTL: cacheTTL}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFlights(ctx, flights)
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

// Search refreshes prices on matches so quotes reflect current demand.
func (s *FlightService) Search(ctx context.Context, params repository.FlightSearch) ([]domain.Flight, error) {
	matches, err := s.repo.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	if s.pricing == nil {
		return matches, nil
	}
	for i := range matches {
		snapshot, err := s.pricing.RefreshPrice(ctx, matches[i].ID)
		if err != nil {
			return nil, err
		}
		matches[i].CurrentPrice = snapshot.CurrentPrice
		matches[i].LastPriceUpdate = snapshot.LastPriceUpdate
	}
	return matches, nil
}

var _ FlightUseCase = (*FlightService)(nil)
