package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/medatechnology/tenantorm/internal/logger"
	"go.uber.org/zap"
)

// RequestIDMiddleware tags each request with an id, echoed back in the
// X-Request-ID header and attached to the request logger. An id supplied by
// the client is kept.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			log := logger.FromEcho(c).With(zap.String("request_id", id))
			c.Set(logger.EchoKey, log)
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), log)))
			return next(c)
		}
	}
}
