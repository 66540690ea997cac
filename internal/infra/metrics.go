package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Checkout results used as the "result" label.
const (
	CheckoutConfirmed = "confirmed"
	CheckoutRejected  = "rejected"
	CheckoutStockRace = "stock_race"
	CheckoutFailed    = "failed"
)

var (
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magirls",
		Name:      "checkouts_total",
		Help:      "Checkouts by result.",
	}, []string{"result"})

	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "magirls",
		Name:      "checkout_duration_seconds",
		Help:      "Wall time of the checkout unit of work.",
		Buckets:   prometheus.DefBuckets,
	})

	StockMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magirls",
		Name:      "stock_movements_total",
		Help:      "Committed stock movements by kind.",
	}, []string{"kind"})

	// NegativeBalanceRejections must stay at zero; any increase is an alert.
	NegativeBalanceRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "magirls",
		Name:      "negative_balance_rejections_total",
		Help:      "Ledger decrements refused because the balance would go negative.",
	})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magirls",
		Name:      "jobs_processed_total",
		Help:      "Async jobs handled by the worker pool.",
	}, []string{"queue", "status"})
)
