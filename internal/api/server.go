// Package api serves the commerce REST endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	orm "github.com/medatechnology/tenantorm"
	"github.com/medatechnology/tenantorm/internal/auth"
	"github.com/medatechnology/tenantorm/internal/logger"
	"github.com/medatechnology/tenantorm/internal/metrics"
	"github.com/medatechnology/tenantorm/internal/store"
	"go.uber.org/zap"
)

// Store is the repository surface the handlers use.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUser(ctx context.Context, tenantID int64) (orm.DBRecord, error)

	CreateProduct(ctx context.Context, tenantID int64, in store.ProductInput) (int64, error)
	GetProduct(ctx context.Context, tenantID, id int64) (orm.DBRecord, error)
	ListProducts(ctx context.Context, tenantID int64, page, pageSize int) (store.PageResult, error)
	UpdateProduct(ctx context.Context, tenantID, id int64, in store.ProductInput) (int64, error)
	DeleteProduct(ctx context.Context, tenantID, id int64) (int64, error)

	CreateCustomer(ctx context.Context, tenantID int64, in store.CustomerInput) (int64, error)
	GetCustomer(ctx context.Context, tenantID, id int64) (orm.DBRecord, error)
	ListCustomers(ctx context.Context, tenantID int64, page, pageSize int) (store.PageResult, error)
	UpdateCustomer(ctx context.Context, tenantID, id int64, in store.CustomerUpdate) (int64, error)
	DeleteCustomer(ctx context.Context, tenantID, id int64) (int64, error)

	CreateSalesOrder(ctx context.Context, tenantID int64, req store.NewSalesOrder) (store.SalesOrderCreated, error)
	ListSalesOrders(ctx context.Context, tenantID int64, page, pageSize int) (store.PageResult, error)
	ListSalesOrdersWindow(ctx context.Context, tenantID int64, limit, offset int) (store.PageResult, error)
	GetSalesOrder(ctx context.Context, tenantID, id int64) (orm.DBRecord, error)
	DeleteSalesOrder(ctx context.Context, tenantID, id int64) (int64, error)

	IsConnected() bool
	Status(ctx context.Context) (orm.StatusStruct, error)
}

var _ Store = (*store.Store)(nil)

// Deps are the collaborators of a Server.
type Deps struct {
	Store       Store
	Issuer      *auth.Issuer
	Metrics     *metrics.Metrics
	MetricsPath string
}

// Server wires the handlers onto an echo instance.
type Server struct {
	echo    *echo.Echo
	store   Store
	issuer  *auth.Issuer
	metrics *metrics.Metrics
}

// New builds the server and registers every route.
func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		store:   deps.Store,
		issuer:  deps.Issuer,
		metrics: deps.Metrics,
	}
	e.HTTPErrorHandler = s.errorHandler

	e.Use(RequestIDMiddleware())
	e.Use(logger.Middleware())
	if s.metrics != nil {
		e.Use(s.metrics.MetricsMiddleware())
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", s.health)
	if s.metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, s.metrics.HandlerFunc())
	}

	e.POST("/signup", s.signup)
	e.POST("/login", s.login)

	requireAuth := auth.JWTAuthMiddleware(s.issuer)
	e.GET("/me", s.me, requireAuth)

	products := e.Group("/products", requireAuth)
	products.POST("", s.createProduct)
	products.GET("", s.listProducts)
	products.GET("/:id", s.getProduct)
	products.PUT("/:id", s.updateProduct)
	products.DELETE("/:id", s.deleteProduct)

	customers := e.Group("/customers", requireAuth)
	customers.POST("", s.createCustomer)
	customers.GET("", s.listCustomers)
	customers.GET("/:id", s.getCustomer)
	customers.PUT("/:id", s.updateCustomer)
	customers.DELETE("/:id", s.deleteCustomer)

	orders := e.Group("/sales_orders", requireAuth)
	orders.POST("", s.createSalesOrder)
	orders.GET("", s.listSalesOrders)
	orders.GET("/:id", s.getSalesOrder)
	orders.DELETE("/:id", s.deleteSalesOrder)

	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	if !s.store.IsConnected() {
		logger.FromEcho(c).Warn("health check failed: database unreachable")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": orm.StatusStruct{}})
	}

	status, err := s.store.Status(c.Request().Context())
	if err != nil || !status.Connected {
		logger.FromEcho(c).Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": status})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": status})
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := httpError(err)
	log := logger.FromEcho(c)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, echo.Map{"error": msg})
	}
	if err != nil {
		log.Error("write error response", zap.Error(err))
	}
}
