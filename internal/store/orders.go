package store

import (
	"context"
	"fmt"

	orm "github.com/medatechnology/tenantorm"
	"github.com/medatechnology/tenantorm/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PartialOrderError is returned when an order header was written but one of
// its items failed. The rows listed here stay in the database.
type PartialOrderError struct {
	SalesOrderID int64
	ItemIDs      []int64
	Err          error
}

func (e *PartialOrderError) Error() string {
	return fmt.Sprintf("sales order %d partially created (%d items persisted): %v",
		e.SalesOrderID, len(e.ItemIDs), e.Err)
}

func (e *PartialOrderError) Unwrap() error {
	return e.Err
}

// pricedLine is a validated order line with its resolved price.
type pricedLine struct {
	item      OrderItemInput
	unitPrice decimal.Decimal
	total     decimal.Decimal
}

// CreateSalesOrder writes an order header and one row per item. Prices come
// from the tenant's products; a missing product fails the call before
// anything is written. The header carries the sum of the line totals and the
// sum of the quantities.
func (s *Store) CreateSalesOrder(ctx context.Context, tenantID int64, req NewSalesOrder) (SalesOrderCreated, error) {
	if tenantID <= 0 {
		return SalesOrderCreated{}, orm.WrapInsertError(orm.ErrMissingTenantID, TableSalesOrders)
	}
	if err := validateOrder(req); err != nil {
		return SalesOrderCreated{}, err
	}

	lines, err := s.priceLines(ctx, tenantID, req.Items)
	if err != nil {
		return SalesOrderCreated{}, err
	}

	created := SalesOrderCreated{OrderTotal: decimal.Zero}
	for _, l := range lines {
		created.OrderTotal = created.OrderTotal.Add(l.total)
		created.TotalQuantity += l.item.Quantity
	}

	if !s.config.AtomicOrders {
		return s.writeOrder(ctx, s.db, tenantID, req, lines, created)
	}

	err = orm.RunInTransaction(ctx, s.db, func(tx orm.Transaction) error {
		var txErr error
		created, txErr = s.writeOrder(ctx, tx, tenantID, req, lines, created)
		return txErr
	})
	if err != nil {
		return SalesOrderCreated{}, err
	}
	return created, nil
}

func validateOrder(req NewSalesOrder) error {
	if len(req.Items) == 0 {
		return orm.WrapInsertError(orm.ErrEmptyOrder, TableSalesOrders)
	}
	if req.CustomerID <= 0 {
		return fmt.Errorf("%w: customer_id is required", orm.ErrInvalidData)
	}
	if !req.OrderStatus.IsValid() {
		return fmt.Errorf("%w: unknown order status %q", orm.ErrInvalidData, req.OrderStatus)
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be greater than 0", orm.ErrInvalidData, i+1)
		}
	}
	return nil
}

// priceLines reads the price of every product once and computes line totals.
func (s *Store) priceLines(ctx context.Context, tenantID int64, items []OrderItemInput) ([]pricedLine, error) {
	prices := make(map[int64]decimal.Decimal, len(items))
	lines := make([]pricedLine, 0, len(items))

	for _, item := range items {
		price, ok := prices[item.ProductID]
		if !ok {
			records, err := s.db.SelectRows(ctx, orm.SelectQuery{
				Table:        TableProducts,
				Fields:       []string{orm.IDColumn, "price"},
				Filters:      orm.Where(orm.Eq(orm.IDColumn, item.ProductID)),
				Limit:        1,
				TenantScoped: true,
				TenantID:     tenantID,
			})
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return nil, orm.WrapErrorWithFields(orm.ErrProductNotFound, "CREATE_ORDER", TableProducts,
					map[string]interface{}{"product_id": item.ProductID})
			}
			v, _ := records[0].Get("price")
			if price, err = toDecimal(v); err != nil {
				return nil, fmt.Errorf("product %d price: %w", item.ProductID, err)
			}
			prices[item.ProductID] = price
		}

		lines = append(lines, pricedLine{
			item:      item,
			unitPrice: price,
			total:     price.Mul(decimal.NewFromInt(item.Quantity)),
		})
	}
	return lines, nil
}

// writeOrder inserts the header, then the items in input order.
func (s *Store) writeOrder(ctx context.Context, ex orm.Executor, tenantID int64, req NewSalesOrder, lines []pricedLine, created SalesOrderCreated) (SalesOrderCreated, error) {
	header := orm.NewRow(
		orm.TenantColumn, tenantID,
		"customer_id", req.CustomerID,
		"order_status", string(req.OrderStatus),
		"order_total", created.OrderTotal,
		"total_quantity", created.TotalQuantity,
	)
	for _, opt := range []struct {
		name  string
		value *string
	}{
		{"shipping_address", req.ShippingAddress},
		{"billing_address", req.BillingAddress},
		{"payment_method", req.PaymentMethod},
		{"notes", req.Notes},
	} {
		if opt.value != nil {
			header = header.Set(opt.name, *opt.value)
		}
	}

	orderID, err := ex.Insert(ctx, TableSalesOrders, header)
	if err != nil {
		return SalesOrderCreated{}, err
	}
	created.SalesOrderID = orderID
	created.ItemIDs = make([]int64, 0, len(lines))

	for _, l := range lines {
		itemID, err := ex.Insert(ctx, TableSalesOrderItems, orm.NewRow(
			"sales_order_id", orderID,
			orm.TenantColumn, tenantID,
			"product_id", l.item.ProductID,
			"quantity", l.item.Quantity,
			"unit_price", l.unitPrice,
			"total_price", l.total,
		))
		if err != nil {
			if s.config.AtomicOrders {
				return SalesOrderCreated{}, err
			}
			logger.FromContext(ctx).Warn("sales order partially created",
				zap.Int64("sales_order_id", orderID),
				zap.Int("items_persisted", len(created.ItemIDs)),
				zap.Int("items_requested", len(lines)),
				zap.Error(err),
			)
			return SalesOrderCreated{}, &PartialOrderError{SalesOrderID: orderID, ItemIDs: created.ItemIDs, Err: err}
		}
		created.ItemIDs = append(created.ItemIDs, itemID)
	}

	return created, nil
}

// ListSalesOrders returns a page of the tenant's orders, each with its items.
func (s *Store) ListSalesOrders(ctx context.Context, tenantID int64, page, pageSize int) (PageResult, error) {
	result, err := s.list(ctx, TableSalesOrders, SalesOrderFields, tenantID, page, pageSize)
	return s.withItems(ctx, tenantID, result, err)
}

// ListSalesOrdersWindow is ListSalesOrders addressed by limit and offset.
func (s *Store) ListSalesOrdersWindow(ctx context.Context, tenantID int64, limit, offset int) (PageResult, error) {
	result, err := s.window(ctx, TableSalesOrders, SalesOrderFields, tenantID, limit, offset)
	return s.withItems(ctx, tenantID, result, err)
}

func (s *Store) withItems(ctx context.Context, tenantID int64, result PageResult, err error) (PageResult, error) {
	if err != nil {
		return PageResult{}, err
	}
	if err := s.attachItems(ctx, tenantID, result.Records); err != nil {
		return PageResult{}, err
	}
	return result, nil
}

// GetSalesOrder returns one of the tenant's orders with its items.
func (s *Store) GetSalesOrder(ctx context.Context, tenantID, id int64) (orm.DBRecord, error) {
	order, err := s.get(ctx, TableSalesOrders, SalesOrderFields, tenantID, id)
	if err != nil {
		return orm.DBRecord{}, err
	}
	orders := orm.DBRecords{order}
	if err := s.attachItems(ctx, tenantID, orders); err != nil {
		return orm.DBRecord{}, err
	}
	return orders[0], nil
}

// DeleteSalesOrder removes an order. Its items go with it.
func (s *Store) DeleteSalesOrder(ctx context.Context, tenantID, id int64) (int64, error) {
	return s.delete(ctx, TableSalesOrders, tenantID, id)
}

// attachItems loads the items of all orders with one query and sets them
// under "items" on each order.
func (s *Store) attachItems(ctx context.Context, tenantID int64, orders orm.DBRecords) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		id, err := o.Int64(orm.IDColumn)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	items, err := s.db.SelectRows(ctx, orm.SelectQuery{
		Table:        TableSalesOrderItems,
		Fields:       append([]string{"sales_order_id"}, SalesOrderItemFields...),
		Filters:      orm.Where(orm.Predicate{Column: "sales_order_id", Operator: orm.OpIn, Value: ids}),
		OrderBy:      []orm.Order{{Column: orm.IDColumn}},
		TenantScoped: true,
		TenantID:     tenantID,
	})
	if err != nil {
		return err
	}

	byOrder := make(map[int64]orm.DBRecords, len(orders))
	for _, item := range items {
		orderID, err := item.Int64("sales_order_id")
		if err != nil {
			return err
		}
		byOrder[orderID] = append(byOrder[orderID], item)
	}

	for i := range orders {
		orderItems := byOrder[ids[i]]
		if orderItems == nil {
			orderItems = orm.DBRecords{}
		}
		orders[i].Set("items", orderItems)
	}
	return nil
}

// toDecimal reads a NUMERIC value as the driver or a caller may hand it over.
func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch p := v.(type) {
	case decimal.Decimal:
		return p, nil
	case string:
		return decimal.NewFromString(p)
	case []byte:
		return decimal.NewFromString(string(p))
	case float64:
		return decimal.NewFromFloat(p), nil
	case int64:
		return decimal.NewFromInt(p), nil
	case nil:
		return decimal.Decimal{}, fmt.Errorf("%w: price is null", orm.ErrInvalidData)
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unexpected price type %T", orm.ErrInvalidData, v)
	}
}
