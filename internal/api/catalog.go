package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/medatechnology/tenantorm/internal/store"
)

// listResponse renames the records of a page to the resource they hold.
func listResponse(key string, page store.PageResult) echo.Map {
	return echo.Map{
		key:           page.Records,
		"page":        page.Page,
		"page_size":   page.PageSize,
		"total_count": page.TotalCount,
		"total_pages": page.TotalPages,
	}
}

func (s *Server) createProduct(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	var in store.ProductInput
	if err := bind(c, &in); err != nil {
		return err
	}

	ctx := c.Request().Context()
	id, err := s.store.CreateProduct(ctx, tid, in)
	if err != nil {
		return err
	}
	product, err := s.store.GetProduct(ctx, tid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"product_id": id, "status": "created", "product": product})
}

func (s *Server) getProduct(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	product, err := s.store.GetProduct(c.Request().Context(), tid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (s *Server) listProducts(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	page, size, err := paging(c)
	if err != nil {
		return err
	}
	result, err := s.store.ListProducts(c.Request().Context(), tid, page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse("products", result))
}

func (s *Server) updateProduct(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in store.ProductInput
	if err := bind(c, &in); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := s.store.UpdateProduct(ctx, tid, id, in); err != nil {
		return err
	}
	product, err := s.store.GetProduct(ctx, tid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"product_id": id, "status": "updated", "product": product})
}

func (s *Server) deleteProduct(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if _, err := s.store.DeleteProduct(c.Request().Context(), tid, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"product_id": id, "status": "deleted"})
}

func (s *Server) createCustomer(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	var in store.CustomerInput
	if err := bind(c, &in); err != nil {
		return err
	}
	id, err := s.store.CreateCustomer(c.Request().Context(), tid, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"customer_id": id, "status": "created"})
}

func (s *Server) getCustomer(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	customer, err := s.store.GetCustomer(c.Request().Context(), tid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

func (s *Server) listCustomers(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	page, size, err := paging(c)
	if err != nil {
		return err
	}
	result, err := s.store.ListCustomers(c.Request().Context(), tid, page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse("customers", result))
}

func (s *Server) updateCustomer(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in store.CustomerUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	if _, err := s.store.UpdateCustomer(c.Request().Context(), tid, id, in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"customer_id": id, "status": "updated"})
}

func (s *Server) deleteCustomer(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if _, err := s.store.DeleteCustomer(c.Request().Context(), tid, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"customer_id": id, "status": "deleted"})
}
