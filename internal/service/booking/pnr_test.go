package booking

import (
	"context"
	"testing"
	"time"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/dsemenov/skyfare/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePNR_Format(t *testing.T) {
	for i := 0; i < 1000; i++ {
		pnr := GeneratePNR()
		assert.Regexp(t, pnrPattern, pnr)
	}
}

// memoryBookingRepo keeps issued reference codes in a set so the collision
// retry in commitWithPNR can be exercised for real.
type memoryBookingRepo struct {
	MockBookingRepository
	issued map[string]struct{}
}

func newMemoryBookingRepo() *memoryBookingRepo {
	return &memoryBookingRepo{issued: make(map[string]struct{})}
}

func (r *memoryBookingRepo) PNRExists(ctx context.Context, pnr string) (bool, error) {
	_, ok := r.issued[pnr]
	return ok, nil
}

func (r *memoryBookingRepo) CreateConfirmed(ctx context.Context, booking *domain.Booking, memo string) error {
	if _, ok := r.issued[booking.PNR]; ok {
		return repository.ErrPNRConflict
	}
	r.issued[booking.PNR] = struct{}{}
	booking.Status = domain.BookingStatusConfirmed
	return nil
}

// Issuing 10,000 reference codes never yields a duplicate: collisions are
// retried until a fresh code lands.
func TestCommitWithPNR_UniqueAcross10000(t *testing.T) {
	repo := newMemoryBookingRepo()
	service := NewBookingService(repo, nil, nil, nil, "", time.Minute)
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		booking := &domain.Booking{UserID: "u1", FlightID: 1, PassengerCount: 1}
		require.NoError(t, service.commitWithPNR(ctx, booking, "test"))
		require.Regexp(t, pnrPattern, booking.PNR)
	}
	assert.Len(t, repo.issued, 10000)
}
