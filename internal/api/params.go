package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	orm "github.com/medatechnology/tenantorm"
	"github.com/medatechnology/tenantorm/internal/auth"
)

func tenantID(c echo.Context) (int64, error) {
	t, ok := auth.TenantFromContext(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return t.ID, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	return id, nil
}

// paging reads page and page_size, defaulting to the first page of
// DEFAULT_PAGINATION_LIMIT rows.
func paging(c echo.Context) (int, int, error) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	size, err := queryInt(c, "page_size", orm.DEFAULT_PAGINATION_LIMIT)
	if err != nil {
		return 0, 0, err
	}
	if page < 1 || size < 1 {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Page and page_size must be greater than 0")
	}
	return page, size, nil
}

// window reads limit and offset. ok is false when neither is given, in which
// case the caller falls back to paging.
func window(c echo.Context) (limit, offset int, ok bool, err error) {
	if c.QueryParam("limit") == "" && c.QueryParam("offset") == "" {
		return 0, 0, false, nil
	}
	if limit, err = queryInt(c, "limit", orm.DEFAULT_PAGINATION_LIMIT); err != nil {
		return 0, 0, false, err
	}
	if offset, err = queryInt(c, "offset", 0); err != nil {
		return 0, 0, false, err
	}
	if limit < 1 || offset < 0 {
		return 0, 0, false, echo.NewHTTPError(http.StatusBadRequest, "Limit must be greater than 0 and offset must not be negative")
	}
	return limit, offset, true, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return v, nil
}

func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}
