package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/medatechnology/tenantorm/internal/logger"
	"github.com/medatechnology/tenantorm/internal/metrics"
	"github.com/medatechnology/tenantorm/internal/store"
	"go.uber.org/zap"
)

func (s *Server) createSalesOrder(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	var req store.NewSalesOrder
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.OrderStatus == "" {
		req.OrderStatus = store.OrderPending
	}

	created, err := s.store.CreateSalesOrder(c.Request().Context(), tid, req)
	if err != nil {
		var partial *store.PartialOrderError
		if errors.As(err, &partial) {
			s.recordOrder(metrics.OrderPartial)
			status, msg := httpError(partial.Err)
			logger.FromEcho(c).Error("sales order partially created",
				zap.Int64("sales_order_id", partial.SalesOrderID),
				zap.Int64s("sale_items_ids", partial.ItemIDs),
				zap.Error(partial.Err))
			return c.JSON(status, echo.Map{
				"error":          msg,
				"status":         "partial",
				"sales_order_id": partial.SalesOrderID,
				"sale_items_ids": partial.ItemIDs,
			})
		}
		s.recordOrder(metrics.OrderFailed)
		return err
	}

	s.recordOrder(metrics.OrderCreated)
	return c.JSON(http.StatusCreated, echo.Map{
		"status":         "created",
		"sales_order_id": created.SalesOrderID,
		"sale_items_ids": created.ItemIDs,
		"order_total":    created.OrderTotal.StringFixed(2),
		"total_quantity": created.TotalQuantity,
	})
}

func (s *Server) recordOrder(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOrder(outcome)
	}
}

func (s *Server) listSalesOrders(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var result store.PageResult
	limit, offset, ok, err := window(c)
	switch {
	case err != nil:
		return err
	case ok:
		result, err = s.store.ListSalesOrdersWindow(ctx, tid, limit, offset)
	default:
		var page, size int
		if page, size, err = paging(c); err != nil {
			return err
		}
		result, err = s.store.ListSalesOrders(ctx, tid, page, size)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse("sales_orders", result))
}

func (s *Server) getSalesOrder(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	order, err := s.store.GetSalesOrder(c.Request().Context(), tid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (s *Server) deleteSalesOrder(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if _, err := s.store.DeleteSalesOrder(c.Request().Context(), tid, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"sales_order_id": id, "status": "deleted"})
}
