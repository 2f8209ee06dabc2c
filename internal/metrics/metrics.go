package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "bookings_created_total",
			Help:      "Count of confirmed bookings.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "bookings_cancelled_total",
			Help:      "Count of bookings cancelled by users.",
		},
	)

	surgeActivations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "surge_activations_total",
			Help:      "Count of demand surges applied to flight prices.",
		},
	)

	walletOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "wallet_operations_total",
			Help:      "Count of wallet ledger operations by kind.",
		},
		[]string{"kind"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingsCreated, bookingsCancelled, surgeActivations, walletOps)
	})
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingCancelled() {
	bookingsCancelled.Inc()
}

func IncSurgeActivation() {
	surgeActivations.Inc()
}

func IncWalletOp(kind string) {
	walletOps.WithLabelValues(kind).Inc()
}
