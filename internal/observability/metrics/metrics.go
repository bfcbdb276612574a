package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tillpoint_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tillpoint_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	checkoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tillpoint_checkouts_total",
		Help: "Count of checkout commits by payment method and result",
	}, []string{"payment_method", "result"})

	checkoutDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tillpoint_checkout_duration_seconds",
		Help:    "Duration of checkout commits",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	salesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tillpoint_sales_total",
		Help: "Count of recorded sales by payment method",
	}, []string{"payment_method"})

	salesRevenue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_sales_revenue_total",
		Help: "Sum of recorded sale totals",
	})

	lowStockProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tillpoint_low_stock_products",
		Help: "Number of products at or below their minimum stock",
	})

	pendingPayments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tillpoint_pending_payments",
		Help: "Number of checkouts awaiting mobile-money confirmation",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveCheckout records a checkout commit with its result
func ObserveCheckout(paymentMethod, result string, duration time.Duration) {
	checkoutsTotal.WithLabelValues(paymentMethod, result).Inc()
	checkoutDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveSale records a completed sale and its revenue
func ObserveSale(paymentMethod string, amount float64) {
	salesTotal.WithLabelValues(paymentMethod).Inc()
	salesRevenue.Add(amount)
}

// SetLowStockProducts sets the low-stock gauge
func SetLowStockProducts(n int) {
	lowStockProducts.Set(float64(n))
}

// IncPendingPayments increments the pending payment gauge
func IncPendingPayments() {
	pendingPayments.Inc()
}

// DecPendingPayments decrements the pending payment gauge
func DecPendingPayments() {
	pendingPayments.Dec()
}
