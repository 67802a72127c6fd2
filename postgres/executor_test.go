package postgres

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	orm "github.com/medatechnology/tenantorm"
)

const insertCustomerSQL = `INSERT INTO "customers" ("tenant_id", "name", "email") VALUES ($1, $2, $3) RETURNING "id"`

func newMockDB(t *testing.T, opts ...Option) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFromDB(db, *NewDefaultConfig(), opts...), mock
}

func customerRow() orm.Row {
	return orm.NewRow("tenant_id", int64(1), "name", "Ann", "email", "ann@example.com")
}

func TestInsertCommits(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(insertCustomerSQL).
		WithArgs(int64(1), "Ann", "ann@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	id, err := pdb.Insert(context.Background(), "customers", customerRow())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id != 11 {
		t.Errorf("Expected id 11, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestInsertDuplicateRollsBackAndConnectionIsReusable(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(insertCustomerSQL).
		WillReturnError(&pq.Error{Code: ErrCodeUniqueViolation, Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(insertCustomerSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectCommit()

	_, err := pdb.Insert(context.Background(), "customers", customerRow())
	if !errors.Is(err, orm.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
	if !IsUniqueViolation(err) {
		t.Errorf("Expected IsUniqueViolation to be true")
	}
	ctx, ok := orm.GetErrorContext(err)
	if !ok || ctx.Operation != "INSERT" || ctx.Table != "customers" {
		t.Errorf("Expected INSERT context on customers, got %+v", ctx)
	}

	id, err := pdb.Insert(context.Background(), "customers", customerRow())
	if err != nil {
		t.Fatalf("Expected second insert to succeed, got %v", err)
	}
	if id != 12 {
		t.Errorf("Expected id 12, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestDriverErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pq.Error{Code: "23505"}, orm.ErrDuplicateKey},
		{"foreign key", &pq.Error{Code: "23503"}, orm.ErrConstraintViolation},
		{"not null", &pq.Error{Code: "23502"}, orm.ErrConstraintViolation},
		{"bad numeric", &pq.Error{Code: "22P02"}, orm.ErrInvalidData},
		{"undefined table", &pq.Error{Code: "42P01"}, orm.ErrQuery},
		{"admin shutdown", &pq.Error{Code: "57P01"}, ErrPostgresQueryFailed},
		{"starting up", &pq.Error{Code: "57P03"}, ErrPostgresConnectionFailed},
		{"connection failure", &pq.Error{Code: "08006"}, ErrPostgresConnectionFailed},
		{"plain error", errors.New("connection reset"), ErrPostgresQueryFailed},
		{"deadline", context.DeadlineExceeded, ErrPostgresTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapPostgreSQLError(tt.err, "SELECT", "products", "")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected the driver error to stay reachable")
			}
		})
	}

	if WrapPostgreSQLError(nil, "SELECT", "", "") != nil {
		t.Errorf("Expected nil for a nil error")
	}
}

func TestInsertDataErrorClassifiedAsInvalidData(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(insertCustomerSQL).
		WillReturnError(&pq.Error{Code: "22001", Message: "value too long for type character varying(100)"})
	mock.ExpectRollback()

	_, err := pdb.Insert(context.Background(), "customers", customerRow())
	if !errors.Is(err, orm.ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData, got %v", err)
	}
	if !orm.IsClientError(err) {
		t.Errorf("Expected a client error")
	}
}

func TestInsertEmptyPayloadNeverReachesDriver(t *testing.T) {
	pdb, mock := newMockDB(t)

	_, err := pdb.Insert(context.Background(), "customers", nil)
	if !errors.Is(err, orm.ErrEmptyPayload) {
		t.Errorf("Expected ErrEmptyPayload, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUpdateReturnsID(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectQuery(`UPDATE "products" SET "tenant_id" = $1, "name" = $2 WHERE "id" = $3 AND "tenant_id" = $4 RETURNING "id"`).
		WithArgs(int64(7), "Gadget", int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := pdb.Update(context.Background(), orm.UpdateQuery{
		Table:        "products",
		Data:         orm.NewRow("tenant_id", int64(7), "name", "Gadget"),
		Filters:      orm.Where(orm.Eq("id", int64(3))),
		TenantScoped: true,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id != 3 {
		t.Errorf("Expected id 3, got %d", id)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectQuery(`UPDATE "products" SET "tenant_id" = $1, "name" = $2 WHERE "id" = $3 AND "tenant_id" = $4 RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`DELETE FROM "products" WHERE "id" = $1 AND "tenant_id" = $2 RETURNING "id"`).
		WithArgs(int64(99), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := pdb.Update(context.Background(), orm.UpdateQuery{
		Table:        "products",
		Data:         orm.NewRow("tenant_id", int64(7), "name", "Gadget"),
		Filters:      orm.Where(orm.Eq("id", int64(99))),
		TenantScoped: true,
	})
	if !errors.Is(err, orm.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from update, got %v", err)
	}

	_, err = pdb.Delete(context.Background(), orm.DeleteQuery{
		Table:        "products",
		Filters:      orm.Where(orm.Eq("id", int64(99)), orm.Eq("tenant_id", int64(7))),
		TenantScoped: true,
	})
	if !errors.Is(err, orm.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from delete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSelectRowsMapsColumns(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT "id", "name", "price" FROM "products" WHERE "tenant_id" = $1 ORDER BY "id" LIMIT $2`).
		WithArgs(int64(7), 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).
			AddRow(int64(1), "Widget", []byte("9.99")).
			AddRow(int64(2), "Gadget", []byte("5.00")))

	records, err := pdb.SelectRows(context.Background(), orm.SelectQuery{
		Table:        "products",
		Fields:       []string{"id", "name", "price"},
		OrderBy:      []orm.Order{{Column: "id"}},
		Limit:        10,
		TenantScoped: true,
		TenantID:     7,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].TableName != "products" {
		t.Errorf("Expected table products, got %s", records[0].TableName)
	}
	if got := records[0].String("price"); got != "9.99" {
		t.Errorf("Expected price 9.99, got %q", got)
	}
	if id, _ := records[1].Int64("id"); id != 2 {
		t.Errorf("Expected id 2, got %d", id)
	}
}

func TestSelectRowsEmptyIsEmptySlice(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT "id" FROM "customers" WHERE "tenant_id" = $1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	records, err := pdb.SelectRows(context.Background(), orm.SelectQuery{
		Table: "customers", Fields: []string{"id"}, TenantScoped: true, TenantID: 3,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("Expected an empty non-nil slice, got %#v", records)
	}
}

func TestSelectRowsRepeatableRead(t *testing.T) {
	pdb, mock := newMockDB(t)

	const query = `SELECT "id", "name", "price" FROM "products" WHERE "tenant_id" = $1 ORDER BY "id" LIMIT $2`
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "price"}).
			AddRow(int64(1), "Widget", []byte("9.99")).
			AddRow(int64(2), "Gadget", nil)
	}
	mock.ExpectQuery(query).WithArgs(int64(7), 10).WillReturnRows(rows())
	mock.ExpectQuery(query).WithArgs(int64(7), 10).WillReturnRows(rows())

	q := orm.SelectQuery{
		Table:        "products",
		Fields:       []string{"id", "name", "price"},
		OrderBy:      []orm.Order{{Column: "id"}},
		Limit:        10,
		TenantScoped: true,
		TenantID:     7,
	}
	first, err := pdb.SelectRows(context.Background(), q)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := pdb.SelectRows(context.Background(), q)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical records, got %#v and %#v", first, second)
	}
	for i := range first {
		if !reflect.DeepEqual(first[i].Columns, []string{"id", "name", "price"}) {
			t.Errorf("Expected columns in select order, got %v", first[i].Columns)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSelectRowsMissingTenant(t *testing.T) {
	pdb, _ := newMockDB(t)

	_, err := pdb.SelectRows(context.Background(), orm.SelectQuery{
		Table: "customers", Fields: []string{"id"}, TenantScoped: true,
	})
	if !errors.Is(err, orm.ErrMissingTenantID) {
		t.Errorf("Expected ErrMissingTenantID, got %v", err)
	}
}

func TestCount(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT COUNT(*) FROM "sales_orders" WHERE "tenant_id" = $1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := pdb.Count(context.Background(), "sales_orders", 5)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3, got %d", n)
	}
}

func TestObserverSeesEveryStatement(t *testing.T) {
	var ops []string
	var failed int
	pdb, mock := newMockDB(t, WithObserver(func(op, table string, elapsed time.Duration, err error) {
		ops = append(ops, op+" "+table)
		if err != nil {
			failed++
		}
	}), WithLogger(orm.NewNoopLogger()))

	mock.ExpectQuery(`SELECT COUNT(*) FROM "products" WHERE "tenant_id" = $1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT COUNT(*) FROM "products" WHERE "tenant_id" = $1`).
		WillReturnError(&pq.Error{Code: "42P01"})

	_, _ = pdb.Count(context.Background(), "products", 1)
	_, err := pdb.Count(context.Background(), "products", 1)
	if !errors.Is(err, orm.ErrQuery) {
		t.Errorf("Expected ErrQuery, got %v", err)
	}

	if len(ops) != 2 || ops[0] != "COUNT products" {
		t.Errorf("Expected two COUNT observations, got %v", ops)
	}
	if failed != 1 {
		t.Errorf("Expected one failed observation, got %d", failed)
	}
}

func TestTransactionCommitAndRollback(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(insertCustomerSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(insertCustomerSQL).
		WillReturnError(&pq.Error{Code: ErrCodeForeignKeyViolation})
	mock.ExpectRollback()

	err := orm.RunInTransaction(context.Background(), pdb, func(tx orm.Transaction) error {
		_, err := tx.Insert(context.Background(), "customers", customerRow())
		return err
	})
	if err != nil {
		t.Fatalf("Expected commit, got %v", err)
	}

	err = orm.RunInTransaction(context.Background(), pdb, func(tx orm.Transaction) error {
		_, err := tx.Insert(context.Background(), "customers", customerRow())
		return err
	})
	if !errors.Is(err, orm.ErrConstraintViolation) {
		t.Errorf("Expected ErrConstraintViolation, got %v", err)
	}
	if !IsForeignKeyViolation(err) {
		t.Errorf("Expected IsForeignKeyViolation to be true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	pdb, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := pdb.BeginTransaction(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Expected rollback after commit to be a no-op, got %v", err)
	}
}

func TestMigrate(t *testing.T) {
	pdb, mock := newMockDB(t)

	stmts := SchemaStatements()
	if len(stmts) != 9 {
		t.Fatalf("Expected 9 schema statements, got %d", len(stmts))
	}

	mock.ExpectBegin()
	for _, stmt := range stmts {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	if err := pdb.Migrate(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	pdb, mock := newMockDB(t)

	stmts := SchemaStatements()
	mock.ExpectBegin()
	mock.ExpectExec(stmts[0]).WillReturnError(&pq.Error{Code: "42501", Message: "permission denied"})
	mock.ExpectRollback()

	if err := pdb.Migrate(context.Background()); err == nil {
		t.Fatalf("Expected an error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestStatus(t *testing.T) {
	pdb, mock := newMockDB(t)

	started := time.Now().Add(-time.Hour)
	mock.ExpectQuery("SELECT current_setting('server_version'), current_database(), pg_postmaster_start_time()").
		WillReturnRows(sqlmock.NewRows([]string{"version", "db", "started"}).AddRow("16.2", "shop", started))

	status, err := pdb.Status(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !status.Connected || status.Version != "16.2" || status.Database != "shop" {
		t.Errorf("Unexpected status %+v", status)
	}
	if status.Uptime < time.Hour {
		t.Errorf("Expected uptime of at least an hour, got %v", status.Uptime)
	}
}
