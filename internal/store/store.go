// Package store is the tenant-aware repository of the commerce service. Every
// read and write except the login lookup and the tenant's own record is
// scoped to the caller's tenant_id.
package store

import (
	"context"
	"errors"
	"fmt"

	orm "github.com/medatechnology/tenantorm"
)

// Config holds repository behaviour switches.
type Config struct {
	// AtomicOrders creates a sales order header and its items in one
	// transaction. Off by default: rows are written one by one and a failure
	// part-way leaves the earlier rows in place.
	AtomicOrders bool
}

// Store runs the service's queries against one database handle.
type Store struct {
	db     orm.Database
	config Config
}

// New creates a Store over db.
func New(db orm.Database, config Config) *Store {
	return &Store{db: db, config: config}
}

// CreateUser stores a new tenant account and returns its id.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error) {
	return s.db.Insert(ctx, TableUsers, orm.NewRow(
		"username", username,
		"email", email,
		"password", passwordHash,
	))
}

// GetUserByEmail looks a user up for login. This lookup is not tenant scoped.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	records, err := s.db.SelectRows(ctx, orm.SelectQuery{
		Table:   TableUsers,
		Fields:  userLoginFields,
		Filters: orm.Where(orm.Eq("email", email)),
		Limit:   1,
	})
	if err != nil {
		return User{}, err
	}
	if len(records) == 0 {
		return User{}, orm.WrapSelectError(orm.ErrNotFound, TableUsers)
	}

	rec := records[0]
	id, err := rec.Int64("id")
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           id,
		Username:     rec.String("username"),
		Email:        rec.String("email"),
		PasswordHash: rec.String("password"),
	}, nil
}

// GetUser returns the tenant's own record.
func (s *Store) GetUser(ctx context.Context, tenantID int64) (orm.DBRecord, error) {
	records, err := s.db.SelectRows(ctx, orm.SelectQuery{
		Table:   TableUsers,
		Fields:  UserFields,
		Filters: orm.Where(orm.Eq("id", tenantID)),
		Limit:   1,
	})
	if err != nil {
		return orm.DBRecord{}, err
	}
	if len(records) == 0 {
		return orm.DBRecord{}, orm.WrapSelectError(orm.ErrNotFound, TableUsers)
	}
	return records[0], nil
}

// CreateProduct stores a product for the tenant and returns its id.
func (s *Store) CreateProduct(ctx context.Context, tenantID int64, in ProductInput) (int64, error) {
	if err := in.ValidateCreate(); err != nil {
		return 0, err
	}
	return s.create(ctx, TableProducts, tenantID, in.Row())
}

// GetProduct returns one of the tenant's products.
func (s *Store) GetProduct(ctx context.Context, tenantID, id int64) (orm.DBRecord, error) {
	return s.get(ctx, TableProducts, ProductFields, tenantID, id)
}

// ListProducts returns a page of the tenant's products.
func (s *Store) ListProducts(ctx context.Context, tenantID int64, page, pageSize int) (PageResult, error) {
	return s.list(ctx, TableProducts, ProductFields, tenantID, page, pageSize)
}

// UpdateProduct changes the given fields of one of the tenant's products.
func (s *Store) UpdateProduct(ctx context.Context, tenantID, id int64, in ProductInput) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	return s.update(ctx, TableProducts, tenantID, id, in.Row())
}

// DeleteProduct removes one of the tenant's products.
func (s *Store) DeleteProduct(ctx context.Context, tenantID, id int64) (int64, error) {
	return s.delete(ctx, TableProducts, tenantID, id)
}

// CreateCustomer stores a customer for the tenant and returns its id.
func (s *Store) CreateCustomer(ctx context.Context, tenantID int64, in CustomerInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	return s.create(ctx, TableCustomers, tenantID, in.Row())
}

// GetCustomer returns one of the tenant's customers.
func (s *Store) GetCustomer(ctx context.Context, tenantID, id int64) (orm.DBRecord, error) {
	return s.get(ctx, TableCustomers, CustomerFields, tenantID, id)
}

// ListCustomers returns a page of the tenant's customers.
func (s *Store) ListCustomers(ctx context.Context, tenantID int64, page, pageSize int) (PageResult, error) {
	return s.list(ctx, TableCustomers, CustomerFields, tenantID, page, pageSize)
}

// UpdateCustomer changes the given fields of one of the tenant's customers.
func (s *Store) UpdateCustomer(ctx context.Context, tenantID, id int64, in CustomerUpdate) (int64, error) {
	return s.update(ctx, TableCustomers, tenantID, id, in.Row())
}

// DeleteCustomer removes one of the tenant's customers.
func (s *Store) DeleteCustomer(ctx context.Context, tenantID, id int64) (int64, error) {
	return s.delete(ctx, TableCustomers, tenantID, id)
}

// IsConnected reports whether the database answers a ping.
func (s *Store) IsConnected() bool {
	return s.db.IsConnected()
}

// Status reports database status for the health endpoint.
func (s *Store) Status(ctx context.Context) (orm.StatusStruct, error) {
	return s.db.Status(ctx)
}

func (s *Store) create(ctx context.Context, table string, tenantID int64, row orm.Row) (int64, error) {
	if tenantID <= 0 {
		return 0, orm.WrapInsertError(orm.ErrMissingTenantID, table)
	}
	return s.db.Insert(ctx, table, row.Set(orm.TenantColumn, tenantID))
}

func (s *Store) get(ctx context.Context, table string, fields []string, tenantID, id int64) (orm.DBRecord, error) {
	records, err := s.db.SelectRows(ctx, orm.SelectQuery{
		Table:        table,
		Fields:       fields,
		Filters:      orm.Where(orm.Eq(orm.IDColumn, id)),
		Limit:        1,
		TenantScoped: true,
		TenantID:     tenantID,
	})
	if err != nil {
		return orm.DBRecord{}, err
	}
	if len(records) == 0 {
		return orm.DBRecord{}, orm.WrapSelectError(orm.ErrNotFound, table)
	}
	return records[0], nil
}

func (s *Store) list(ctx context.Context, table string, fields []string, tenantID int64, page, pageSize int) (PageResult, error) {
	if page < 1 || pageSize < 1 {
		return PageResult{}, fmt.Errorf("%w: page and page_size must be greater than 0", orm.ErrInvalidData)
	}
	limit, offset := orm.Page(page, pageSize)
	return s.window(ctx, table, fields, tenantID, limit, offset)
}

// window reads up to limit of the tenant's rows after skipping offset, in id
// order. Page in the result is the page the window starts on.
func (s *Store) window(ctx context.Context, table string, fields []string, tenantID int64, limit, offset int) (PageResult, error) {
	if limit < 1 || offset < 0 {
		return PageResult{}, fmt.Errorf("%w: limit must be greater than 0 and offset not negative", orm.ErrInvalidData)
	}
	if limit > orm.MAX_PAGINATION_LIMIT {
		limit = orm.MAX_PAGINATION_LIMIT
	}

	records, err := s.db.SelectRows(ctx, orm.SelectQuery{
		Table:        table,
		Fields:       fields,
		OrderBy:      []orm.Order{{Column: orm.IDColumn}},
		Limit:        limit,
		Offset:       offset,
		TenantScoped: true,
		TenantID:     tenantID,
	})
	if err != nil {
		return PageResult{}, err
	}

	total, err := s.db.Count(ctx, table, tenantID)
	if err != nil {
		return PageResult{}, err
	}

	return PageResult{
		Records:    records,
		Page:       offset/limit + 1,
		PageSize:   limit,
		TotalCount: total,
		TotalPages: orm.TotalPages(total, limit),
	}, nil
}

func (s *Store) update(ctx context.Context, table string, tenantID, id int64, row orm.Row) (int64, error) {
	if len(row) == 0 {
		return 0, orm.WrapUpdateError(orm.ErrEmptyPayload, table)
	}
	if tenantID <= 0 {
		return 0, orm.WrapUpdateError(orm.ErrMissingTenantID, table)
	}
	return s.db.Update(ctx, orm.UpdateQuery{
		Table:        table,
		Data:         row.Set(orm.TenantColumn, tenantID),
		Filters:      orm.Where(orm.Eq(orm.IDColumn, id)),
		TenantScoped: true,
	})
}

func (s *Store) delete(ctx context.Context, table string, tenantID, id int64) (int64, error) {
	if tenantID <= 0 {
		return 0, orm.WrapDeleteError(orm.ErrMissingTenantID, table)
	}
	return s.db.Delete(ctx, orm.DeleteQuery{
		Table:        table,
		Filters:      orm.Where(orm.Eq(orm.IDColumn, id), orm.Eq(orm.TenantColumn, tenantID)),
		TenantScoped: true,
	})
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, orm.ErrNotFound)
}
