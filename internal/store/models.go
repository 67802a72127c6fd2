package store

import (
	"fmt"
	"strings"

	orm "github.com/medatechnology/tenantorm"
	"github.com/shopspring/decimal"
)

// User is a tenant account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// ProductInput is the payload for creating or updating a product. Nil fields
// are left out of the statement.
type ProductInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int64           `json:"stock"`
}

// Row returns the non-nil fields as an ordered payload.
func (p ProductInput) Row() orm.Row {
	var row orm.Row
	if p.Name != nil {
		row = row.Set("name", *p.Name)
	}
	if p.Description != nil {
		row = row.Set("description", *p.Description)
	}
	if p.Price != nil {
		row = row.Set("price", *p.Price)
	}
	if p.Stock != nil {
		row = row.Set("stock", *p.Stock)
	}
	return row
}

// ValidateCreate checks the fields a new product needs.
func (p ProductInput) ValidateCreate() error {
	if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: product name is required", orm.ErrInvalidData)
	}
	if p.Price == nil {
		return fmt.Errorf("%w: product price is required", orm.ErrInvalidData)
	}
	return p.validate()
}

func (p ProductInput) validate() error {
	if p.Price != nil && p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", orm.ErrInvalidData)
	}
	if p.Stock != nil && *p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", orm.ErrInvalidData)
	}
	return nil
}

// CustomerInput is the payload for creating a customer.
type CustomerInput struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// Row returns the customer as an ordered payload.
func (c CustomerInput) Row() orm.Row {
	row := orm.NewRow("name", c.Name, "email", c.Email)
	if c.Phone != nil {
		row = row.Set("phone", *c.Phone)
	}
	if c.Address != nil {
		row = row.Set("address", *c.Address)
	}
	return row
}

// Validate checks the required fields.
func (c CustomerInput) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: customer name is required", orm.ErrInvalidData)
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: customer email is invalid", orm.ErrInvalidData)
	}
	return nil
}

// CustomerUpdate is the payload for updating a customer. The email of a
// customer is fixed at creation.
type CustomerUpdate struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// Row returns the non-nil fields as an ordered payload.
func (c CustomerUpdate) Row() orm.Row {
	var row orm.Row
	if c.Name != nil {
		row = row.Set("name", *c.Name)
	}
	if c.Phone != nil {
		row = row.Set("phone", *c.Phone)
	}
	if c.Address != nil {
		row = row.Set("address", *c.Address)
	}
	return row
}

// OrderStatus is the lifecycle state of a sales order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderReturned   OrderStatus = "returned"
)

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderReturned:
		return true
	}
	return false
}

// OrderItemInput is one requested line.
type OrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// NewSalesOrder is the request to create an order with its items.
type NewSalesOrder struct {
	CustomerID      int64            `json:"customer_id"`
	OrderStatus     OrderStatus      `json:"order_status"`
	Items           []OrderItemInput `json:"items"`
	ShippingAddress *string          `json:"shipping_address"`
	BillingAddress  *string          `json:"billing_address"`
	PaymentMethod   *string          `json:"payment_method"`
	Notes           *string          `json:"notes"`
}

// SalesOrderCreated reports what CreateSalesOrder persisted.
type SalesOrderCreated struct {
	SalesOrderID  int64           `json:"sales_order_id"`
	ItemIDs       []int64         `json:"sale_items_ids"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	TotalQuantity int64           `json:"total_quantity"`
}

// PageResult is one page of a tenant's rows.
type PageResult struct {
	Records    orm.DBRecords `json:"records"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int64         `json:"total_pages"`
}
