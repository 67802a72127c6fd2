package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	orm "github.com/medatechnology/tenantorm"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequestsAndErrors(t *testing.T) {
	m := New("test")

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/products/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return echo.NewHTTPError(http.StatusNotFound, "missing")
		}
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/products/1", "/products/2", "/products/0"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.APIRequestCounter.WithLabelValues(http.MethodGet, "/products/:id")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIErrorCounter.WithLabelValues(http.MethodGet, "/products/:id", "404")))
}

func TestObserveDBOutcomes(t *testing.T) {
	m := New("test")

	m.ObserveDB("INSERT", "products", time.Millisecond, nil)
	m.ObserveDB("INSERT", "products", time.Millisecond, orm.ErrDuplicateKey)
	m.ObserveDB("INSERT", "products", time.Millisecond, errors.New("connection reset"))
	m.ObserveDB("SELECT", "products", time.Millisecond, nil)

	assert.Equal(t, 4, testutil.CollectAndCount(m.DBOperationHistogram))
}

func TestDomainCounters(t *testing.T) {
	m := New("test")

	m.RecordOrder(OrderCreated)
	m.RecordOrder(OrderCreated)
	m.RecordOrder(OrderPartial)
	m.RecordSignup()
	m.RecordLogin(true)
	m.RecordLogin(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersCounter.WithLabelValues(OrderCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCounter.WithLabelValues(OrderPartial)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignupCounter))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginCounter.WithLabelValues("failure")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("shop")
	m.RecordSignup()

	e := echo.New()
	e.GET("/metrics", m.HandlerFunc())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "shop_signups_total 1"))
}
