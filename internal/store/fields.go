package store

// Table names.
const (
	TableUsers           = "users"
	TableProducts        = "products"
	TableCustomers       = "customers"
	TableSalesOrders     = "sales_orders"
	TableSalesOrderItems = "sales_order_items"
)

// Default projections returned by reads.
var (
	UserFields = []string{"id", "username", "email"}

	ProductFields = []string{"id", "name", "description", "price", "stock"}

	CustomerFields = []string{"id", "name", "email", "phone", "address"}

	SalesOrderFields = []string{
		"id",
		"total_quantity",
		"customer_id",
		"order_date",
		"order_status",
		"order_total",
		"shipping_address",
		"billing_address",
		"payment_method",
		"notes",
	}

	SalesOrderItemFields = []string{"id", "product_id", "quantity", "unit_price", "total_price"}
)

// login needs the hash as well
var userLoginFields = append([]string{"password"}, UserFields...)
