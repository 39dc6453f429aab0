package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path", "status"},
	)

	// OrdersTotal counts order submissions by final status.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_orders_total",
			Help: "Total number of submitted orders by final status",
		},
		[]string{"market", "status"},
	)

	// TradesTotal counts executed trades.
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_trades_total",
			Help: "Total number of executed trades",
		},
		[]string{"market"},
	)

	// OrderBookDepth tracks resting order counts per side.
	OrderBookDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "venue_orderbook_depth",
			Help: "Current number of resting orders",
		},
		[]string{"market", "side"},
	)
)

// Prometheus records request metrics.
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Observe(duration)
	}
}
