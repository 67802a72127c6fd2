// Package metrics exposes the service's Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	orm "github.com/medatechnology/tenantorm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Order outcomes recorded by RecordOrder.
const (
	OrderCreated = "created"
	OrderPartial = "partial"
	OrderFailed  = "failed"
)

// Metrics holds every collector of the service, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	RequestDurationHistogram *prometheus.HistogramVec
	APIRequestCounter        *prometheus.CounterVec
	APIErrorCounter          *prometheus.CounterVec

	// Database operation metrics
	DBOperationHistogram *prometheus.HistogramVec

	// Domain metrics
	OrdersCounter *prometheus.CounterVec
	SignupCounter prometheus.Counter
	LoginCounter  *prometheus.CounterVec
}

// New creates the collectors under namespace. Go runtime and process
// collectors are included.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestDurationHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		APIRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "path"},
		),
		APIErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors",
			},
			[]string{"method", "path", "status"},
		),
		DBOperationHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_operation_duration_seconds",
				Help:      "Duration of database operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "table", "outcome"},
		),
		OrdersCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sales_orders_total",
				Help:      "Total number of sales order creations by outcome",
			},
			[]string{"outcome"},
		),
		SignupCounter: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Total number of tenant signups",
		}),
		LoginCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Total number of login attempts by result",
			},
			[]string{"result"},
		),
	}
}

// MetricsMiddleware tracks request metrics
func (m *Metrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			m.APIRequestCounter.With(prometheus.Labels{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).Inc()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			m.RequestDurationHistogram.With(prometheus.Labels{
				"method": c.Request().Method,
				"path":   c.Path(),
				"status": status,
			}).Observe(time.Since(start).Seconds())

			if c.Response().Status >= 400 {
				m.APIErrorCounter.With(prometheus.Labels{
					"method": c.Request().Method,
					"path":   c.Path(),
					"status": status,
				}).Inc()
			}

			return nil
		}
	}
}

// HandlerFunc returns a HTTP handler for metrics endpoint
func (m *Metrics) HandlerFunc() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
}

// ObserveDB records one database statement. Its signature matches
// postgres.Observer.
func (m *Metrics) ObserveDB(operation, table string, elapsed time.Duration, err error) {
	m.DBOperationHistogram.With(prometheus.Labels{
		"operation": operation,
		"table":     table,
		"outcome":   outcome(err),
	}).Observe(elapsed.Seconds())
}

// RecordOrder increments the order counter for outcome.
func (m *Metrics) RecordOrder(outcome string) {
	m.OrdersCounter.WithLabelValues(outcome).Inc()
}

// RecordSignup increments the signup counter.
func (m *Metrics) RecordSignup() {
	m.SignupCounter.Inc()
}

// RecordLogin increments the login counter.
func (m *Metrics) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.LoginCounter.WithLabelValues(result).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case orm.IsClientError(err):
		return "client_error"
	default:
		return "error"
	}
}
