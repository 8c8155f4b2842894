package marketmaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotesActive tracks the current number of posted market-maker Quotes.
	QuotesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_arb_mm_quotes_active",
		Help: "Current number of active market-maker quotes",
	})

	// QuotesPostedTotal counts new two-sided quote postings.
	QuotesPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_arb_mm_quotes_posted_total",
		Help: "Total number of market-maker quotes posted",
	})

	// QuotesRequotedTotal counts cancel-then-repost cycles.
	QuotesRequotedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_arb_mm_quotes_requoted_total",
		Help: "Total number of market-maker requotes",
	})

	// QuotesRejectedTotal counts quote candidates rejected by reason.
	QuotesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_arb_mm_quotes_rejected_total",
			Help: "Total number of market-maker quote candidates rejected",
		},
		[]string{"reason"},
	)

	// QuoteCancelErrorsTotal counts failed order cancellations.
	QuoteCancelErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_arb_mm_cancel_errors_total",
		Help: "Total number of market-maker order cancellation errors",
	})

	// QuotePostErrorsTotal counts failed order postings.
	QuotePostErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_arb_mm_post_errors_total",
		Help: "Total number of market-maker order posting errors",
	})
)
