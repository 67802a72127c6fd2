package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/medatechnology/tenantorm/internal/logger"
	"go.uber.org/zap"
)

const tenantKey = "tenant"

// JWTAuthMiddleware decodes the bearer token once and stores the tenant in
// the request context. Requests without a valid token get 401.
func JWTAuthMiddleware(issuer *Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return unauthorized(c, "Missing authorization header")
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				log.Warn("Invalid authorization header format")
				return unauthorized(c, "Invalid authorization header format")
			}

			tenant, err := issuer.Parse(token)
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				if errors.Is(err, ErrTokenExpired) {
					return unauthorized(c, "Token has expired")
				}
				return unauthorized(c, "Invalid token")
			}

			tl := log.With(zap.Int64("tenant_id", tenant.ID))
			c.Set(tenantKey, tenant)
			c.Set(logger.EchoKey, tl)
			c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), tl)))
			return next(c)
		}
	}
}

// TenantFromContext returns the tenant stored by JWTAuthMiddleware.
func TenantFromContext(c echo.Context) (Tenant, bool) {
	t, ok := c.Get(tenantKey).(Tenant)
	return t, ok
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
}
