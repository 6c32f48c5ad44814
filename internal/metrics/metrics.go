// Package metrics provides Prometheus instrumentation for the bot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PriceTicks counts live price-feed ticks processed.
	PriceTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyflip_price_ticks_total",
		Help: "Total live price ticks processed",
	})

	// BookUpdates counts order book replace events applied.
	BookUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyflip_book_updates_total",
		Help: "Total order book replace events applied",
	})

	// OrdersSubmitted counts buy orders dispatched, partitioned by side.
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyflip_orders_submitted_total",
		Help: "Total buy orders dispatched",
	}, []string{"side"})

	// OrderFailures counts order submissions that failed after retries.
	OrderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyflip_order_failures_total",
		Help: "Order submissions that failed after retries",
	})

	// OrderLatency tracks order submission round-trip time.
	OrderLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polyflip_order_latency_seconds",
		Help:    "Order submission latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// Sessions counts completed sessions, partitioned by outcome.
	Sessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyflip_sessions_total",
		Help: "Completed market sessions",
	}, []string{"outcome"})

	// CurrentDelta tracks the latest delta against the price to beat.
	CurrentDelta = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polyflip_current_delta",
		Help: "Latest price delta against the price to beat",
	})

	// RemainingSeconds tracks time left in the active session.
	RemainingSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polyflip_remaining_seconds",
		Help: "Seconds remaining in the active session",
	})
)

// Serve exposes /metrics on addr. It blocks, so run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
