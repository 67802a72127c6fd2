package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	orm "github.com/medatechnology/tenantorm"
	"github.com/medatechnology/tenantorm/internal/auth"
)

// httpError maps an error onto a status code and the message shown to the
// client. Server faults never leak their details.
func httpError(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}

	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		return status, http.StatusText(status)
	}
	return status, err.Error()
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, orm.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orm.ErrDuplicateKey), errors.Is(err, orm.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, orm.ErrInvalidData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, orm.ErrProductNotFound),
		errors.Is(err, orm.ErrEmptyOrder),
		errors.Is(err, orm.ErrEmptyPayload),
		errors.Is(err, orm.ErrEmptyFilters),
		errors.Is(err, orm.ErrInvalidFilterOperator),
		errors.Is(err, orm.ErrMissingTenantID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
