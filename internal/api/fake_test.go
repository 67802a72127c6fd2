package api

import (
	"context"
	"errors"

	orm "github.com/medatechnology/tenantorm"
	"github.com/medatechnology/tenantorm/internal/store"
)

// fakeStore answers from canned values and records the tenant of each call.
type fakeStore struct {
	unreachable bool
	down        bool
	statusCalls int

	users     map[string]store.User
	createErr error
	getErr    error
	updateErr error
	orderErr  error
	order     store.SalesOrderCreated
	page      store.PageResult
	record    orm.DBRecord

	tenants []int64
	paged   [][2]int
	windows [][2]int
	orders  []store.NewSalesOrder
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  map[string]store.User{},
		page:   store.PageResult{Records: orm.DBRecords{}},
		record: orm.NewDBRecord(store.TableProducts, []string{"id", "name"}, []interface{}{int64(1), "Widget"}),
	}
}

func (f *fakeStore) seen(tenantID int64) { f.tenants = append(f.tenants, tenantID) }

func (f *fakeStore) CreateUser(ctx context.Context, username, email, hash string) (int64, error) {
	if _, ok := f.users[email]; ok {
		return 0, orm.ErrDuplicateKey
	}
	id := int64(len(f.users) + 1)
	f.users[email] = store.User{ID: id, Username: username, Email: email, PasswordHash: hash}
	return id, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	u, ok := f.users[email]
	if !ok {
		return store.User{}, orm.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUser(ctx context.Context, tenantID int64) (orm.DBRecord, error) {
	f.seen(tenantID)
	return orm.NewDBRecord(store.TableUsers, []string{"id", "email"}, []interface{}{tenantID, "ann@example.com"}), f.getErr
}

func (f *fakeStore) create(tenantID int64) (int64, error) {
	f.seen(tenantID)
	if f.createErr != nil {
		return 0, f.createErr
	}
	return 1, nil
}

func (f *fakeStore) get(tenantID int64) (orm.DBRecord, error) {
	f.seen(tenantID)
	if f.getErr != nil {
		return orm.DBRecord{}, f.getErr
	}
	return f.record, nil
}

func (f *fakeStore) list(tenantID int64, page, size int) (store.PageResult, error) {
	f.seen(tenantID)
	f.paged = append(f.paged, [2]int{page, size})
	p := f.page
	p.Page, p.PageSize = page, size
	return p, nil
}

func (f *fakeStore) update(tenantID, id int64) (int64, error) {
	f.seen(tenantID)
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	return id, nil
}

func (f *fakeStore) CreateProduct(ctx context.Context, tenantID int64, in store.ProductInput) (int64, error) {
	if err := in.ValidateCreate(); err != nil {
		return 0, err
	}
	return f.create(tenantID)
}

func (f *fakeStore) GetProduct(ctx context.Context, tenantID, id int64) (orm.DBRecord, error) {
	return f.get(tenantID)
}

func (f *fakeStore) ListProducts(ctx context.Context, tenantID int64, page, size int) (store.PageResult, error) {
	return f.list(tenantID, page, size)
}

func (f *fakeStore) UpdateProduct(ctx context.Context, tenantID, id int64, in store.ProductInput) (int64, error) {
	if len(in.Row()) == 0 {
		return 0, orm.ErrEmptyPayload
	}
	return f.update(tenantID, id)
}

func (f *fakeStore) DeleteProduct(ctx context.Context, tenantID, id int64) (int64, error) {
	return f.update(tenantID, id)
}

func (f *fakeStore) CreateCustomer(ctx context.Context, tenantID int64, in store.CustomerInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	return f.create(tenantID)
}

func (f *fakeStore) GetCustomer(ctx context.Context, tenantID, id int64) (orm.DBRecord, error) {
	return f.get(tenantID)
}

func (f *fakeStore) ListCustomers(ctx context.Context, tenantID int64, page, size int) (store.PageResult, error) {
	return f.list(tenantID, page, size)
}

func (f *fakeStore) UpdateCustomer(ctx context.Context, tenantID, id int64, in store.CustomerUpdate) (int64, error) {
	return f.update(tenantID, id)
}

func (f *fakeStore) DeleteCustomer(ctx context.Context, tenantID, id int64) (int64, error) {
	return f.update(tenantID, id)
}

func (f *fakeStore) CreateSalesOrder(ctx context.Context, tenantID int64, req store.NewSalesOrder) (store.SalesOrderCreated, error) {
	f.seen(tenantID)
	f.orders = append(f.orders, req)
	if f.orderErr != nil {
		return store.SalesOrderCreated{}, f.orderErr
	}
	return f.order, nil
}

func (f *fakeStore) ListSalesOrders(ctx context.Context, tenantID int64, page, size int) (store.PageResult, error) {
	return f.list(tenantID, page, size)
}

func (f *fakeStore) ListSalesOrdersWindow(ctx context.Context, tenantID int64, limit, offset int) (store.PageResult, error) {
	f.seen(tenantID)
	f.windows = append(f.windows, [2]int{limit, offset})
	p := f.page
	p.Page, p.PageSize = offset/limit+1, limit
	return p, nil
}

func (f *fakeStore) GetSalesOrder(ctx context.Context, tenantID, id int64) (orm.DBRecord, error) {
	return f.get(tenantID)
}

func (f *fakeStore) DeleteSalesOrder(ctx context.Context, tenantID, id int64) (int64, error) {
	return f.update(tenantID, id)
}

func (f *fakeStore) IsConnected() bool { return !f.unreachable }

func (f *fakeStore) Status(ctx context.Context) (orm.StatusStruct, error) {
	f.statusCalls++
	if f.down {
		return orm.StatusStruct{DBMS: "fake"}, errors.New("connection refused")
	}
	return orm.StatusStruct{DBMS: "fake", Connected: true}, nil
}
