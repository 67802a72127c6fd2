// Package postgres provides a PostgreSQL implementation for the orm.Database interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	orm "github.com/medatechnology/tenantorm"
)

// Observer is called after every statement with its operation, table,
// duration and the classified error (nil on success). Metrics hook in here.
type Observer func(operation, table string, elapsed time.Duration, err error)

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for statement and fault logging.
func WithLogger(logger orm.Logger) Option {
	return func(pdb *DB) {
		if logger != nil {
			pdb.logger = logger
		}
	}
}

// WithObserver registers a statement observer.
func WithObserver(observer Observer) Option {
	return func(pdb *DB) {
		pdb.observer = observer
	}
}

// queryer is what both *sql.DB and *sql.Tx provide.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// executor runs orm statements against a queryer.
type executor struct {
	q        queryer
	logger   orm.Logger
	observer Observer
	timeout  time.Duration
}

// DB implements orm.Database for PostgreSQL.
type DB struct {
	executor
	db        *sql.DB
	config    PostgresConfig
	startTime time.Time
}

var _ orm.Database = (*DB)(nil)

// NewDatabase opens and verifies a connection pool described by config.
func NewDatabase(ctx context.Context, config PostgresConfig, opts ...Option) (*DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	connStr, err := config.ToSimpleDSN()
	if err != nil {
		return nil, fmt.Errorf("failed to build DSN: %w", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostgresConnectionFailed, WrapPostgreSQLError(err, "CONNECT", "", ""))
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrPostgresConnectionFailed, WrapPostgreSQLError(err, "PING", "", ""))
	}

	return NewFromDB(db, config, opts...), nil
}

// NewFromDB wraps an already opened *sql.DB, applying the pool settings of
// config. The caller's handle is used as is.
func NewFromDB(db *sql.DB, config PostgresConfig, opts ...Option) *DB {
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	pdb := &DB{
		executor: executor{
			q:       db,
			logger:  orm.NewNoopLogger(),
			timeout: config.QueryTimeout,
		},
		db:        db,
		config:    config,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(pdb)
	}
	return pdb
}

// Close closes the database connection.
func (pdb *DB) Close() error {
	return pdb.db.Close()
}

// IsConnected pings the server.
func (pdb *DB) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return pdb.db.PingContext(ctx) == nil
}

// Insert inserts one row and returns its id. The statement runs in its own
// transaction that is rolled back on failure, so a failed insert leaves
// nothing behind and the connection is immediately reusable.
func (pdb *DB) Insert(ctx context.Context, table string, data orm.Row) (int64, error) {
	stmt, err := orm.BuildInsert(table, data)
	if err != nil {
		return 0, orm.WrapInsertError(err, table)
	}

	tx, err := pdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, pdb.fail("INSERT", table, stmt.Query, err)
	}

	id, err := pdb.withTx(tx).insertStatement(ctx, table, stmt)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			pdb.logger.Error("rollback after failed insert", orm.String("table", table), orm.Error(rbErr))
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, pdb.fail("INSERT", table, stmt.Query, err)
	}
	return id, nil
}

// withTx returns an executor bound to tx sharing this executor's settings.
func (e executor) withTx(tx *sql.Tx) executor {
	e.q = tx
	return e
}

// Insert builds and runs an INSERT ... RETURNING id.
func (e executor) Insert(ctx context.Context, table string, data orm.Row) (int64, error) {
	stmt, err := orm.BuildInsert(table, data)
	if err != nil {
		return 0, orm.WrapInsertError(err, table)
	}
	return e.insertStatement(ctx, table, stmt)
}

func (e executor) insertStatement(ctx context.Context, table string, stmt orm.ParameterizedSQL) (int64, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var id int64
	err := e.q.QueryRowContext(ctx, stmt.Query, stmt.Values...).Scan(&id)
	if err != nil {
		err = e.fail("INSERT", table, stmt.Query, err)
	}
	e.observe("INSERT", table, stmt, start, err)
	return id, err
}

// Update runs UPDATE ... RETURNING id and returns the first matched id.
// orm.ErrNotFound is returned when no row matched.
func (e executor) Update(ctx context.Context, query orm.UpdateQuery) (int64, error) {
	stmt, err := orm.BuildUpdate(query)
	if err != nil {
		return 0, orm.WrapUpdateError(err, query.Table)
	}
	return e.returningID(ctx, "UPDATE", query.Table, stmt)
}

// Delete runs DELETE ... RETURNING id and returns the first deleted id.
// orm.ErrNotFound is returned when no row matched.
func (e executor) Delete(ctx context.Context, query orm.DeleteQuery) (int64, error) {
	stmt, err := orm.BuildDelete(query)
	if err != nil {
		return 0, orm.WrapDeleteError(err, query.Table)
	}
	return e.returningID(ctx, "DELETE", query.Table, stmt)
}

func (e executor) returningID(ctx context.Context, op, table string, stmt orm.ParameterizedSQL) (int64, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var id int64
	err := e.q.QueryRowContext(ctx, stmt.Query, stmt.Values...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		e.observe(op, table, stmt, start, nil)
		return 0, orm.WrapErrorWithQuery(orm.ErrNotFound, op, table, stmt.Query)
	case err != nil:
		err = e.fail(op, table, stmt.Query, err)
	}
	e.observe(op, table, stmt, start, err)
	return id, err
}

// SelectRows runs a SELECT and maps every row. No rows is an empty slice.
func (e executor) SelectRows(ctx context.Context, query orm.SelectQuery) (orm.DBRecords, error) {
	stmt, err := orm.BuildSelect(query)
	if err != nil {
		return nil, orm.WrapSelectError(err, query.Table)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	records, err := e.selectStatement(ctx, query.Table, stmt)
	e.observe("SELECT", query.Table, stmt, start, err)
	return records, err
}

func (e executor) selectStatement(ctx context.Context, table string, stmt orm.ParameterizedSQL) (orm.DBRecords, error) {
	rows, err := e.q.QueryContext(ctx, stmt.Query, stmt.Values...)
	if err != nil {
		return nil, e.fail("SELECT", table, stmt.Query, err)
	}
	defer rows.Close()

	records, err := scanRowsToDBRecords(rows, table)
	if err != nil {
		return nil, e.fail("SELECT", table, stmt.Query, err)
	}
	return records, nil
}

// Count returns the number of rows of table owned by tenantID.
func (e executor) Count(ctx context.Context, table string, tenantID int64) (int64, error) {
	stmt, err := orm.BuildCount(table, tenantID)
	if err != nil {
		return 0, orm.WrapSelectError(err, table)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var n int64
	err = e.q.QueryRowContext(ctx, stmt.Query, stmt.Values...).Scan(&n)
	if err != nil {
		err = e.fail("COUNT", table, stmt.Query, err)
	}
	e.observe("COUNT", table, stmt, start, err)
	return n, err
}

func (e executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

// fail classifies a driver error, wraps it with statement context and logs it.
func (e executor) fail(op, table, query string, err error) error {
	wrapped := orm.WrapErrorWithQuery(WrapPostgreSQLError(err, op, table, query), op, table, query)
	orm.LogErrorWithContext(e.logger, wrapped)
	return wrapped
}

func (e executor) observe(op, table string, stmt orm.ParameterizedSQL, start time.Time, err error) {
	elapsed := time.Since(start)
	e.logger.Debug("statement executed",
		orm.String("operation", op),
		orm.String("table", table),
		orm.String("query", stmt.Query),
		orm.Int("params", len(stmt.Values)),
		orm.F("elapsed_ms", orm.SecondToMs(elapsed.Seconds())),
	)
	if e.observer != nil {
		e.observer(op, table, elapsed, err)
	}
}

// Status reports server version, uptime and pool usage.
func (pdb *DB) Status(ctx context.Context) (orm.StatusStruct, error) {
	stats := pdb.db.Stats()
	status := orm.StatusStruct{
		DBMS:       "postgresql",
		DBMSDriver: "lib/pq",
		MaxPool:    stats.MaxOpenConnections,
		OpenConns:  stats.OpenConnections,
		InUse:      stats.InUse,
		Idle:       stats.Idle,
		WaitCount:  stats.WaitCount,
	}

	ctx, cancel := pdb.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := pdb.db.QueryRowContext(ctx,
		"SELECT current_setting('server_version'), current_database(), pg_postmaster_start_time()",
	).Scan(&status.Version, &status.Database, &status.StartTime)
	if err != nil {
		return status, pdb.fail("STATUS", "", "", err)
	}

	status.Connected = true
	status.PingDuration = time.Since(start)
	status.Uptime = time.Since(status.StartTime)
	return status, nil
}
