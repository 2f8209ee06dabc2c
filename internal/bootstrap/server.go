package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dsemenov/skyfare/api"
	"github.com/dsemenov/skyfare/config"
	"github.com/dsemenov/skyfare/internal/metrics"
	"github.com/dsemenov/skyfare/internal/service/booking"
	"github.com/dsemenov/skyfare/internal/service/flights"
	"github.com/dsemenov/skyfare/internal/service/pricing"
	"github.com/dsemenov/skyfare/internal/service/wallet"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config,
	flightSvc flights.FlightUseCase,
	pricingSvc pricing.PricingUseCase,
	bookingSvc booking.BookingUseCase,
	walletSvc wallet.WalletUseCase,
) error {
	metrics.Register()

	router := NewRouter(flightSvc, pricingSvc, bookingSvc, walletSvc)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(
	flightSvc flights.FlightUseCase,
	pricingSvc pricing.PricingUseCase,
	bookingSvc booking.BookingUseCase,
	walletSvc wallet.WalletUseCase,
) *gin.Engine {
	router := gin.Default()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	api.NewFlightHandler(flightSvc, pricingSvc).Register(apiGroup.Group("/flights"))
	api.NewBookingHandler(bookingSvc).Register(apiGroup.Group("/bookings", api.RequireUser()))
	api.NewWalletHandler(walletSvc).Register(apiGroup.Group("/wallet", api.RequireUser()))

	return router
}
