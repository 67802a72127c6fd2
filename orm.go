package orm

import "context"

// Executor is the statement surface shared by a connection and a transaction.
// Every statement is built by this package's builder, so identifiers are quoted
// and values are always bound parameters.
type Executor interface {
	Insert(ctx context.Context, table string, data Row) (int64, error)
	// Update and Delete return ErrNotFound when nothing matched.
	Update(ctx context.Context, query UpdateQuery) (int64, error)
	Delete(ctx context.Context, query DeleteQuery) (int64, error)
	// SelectRows never returns a nil slice on success.
	SelectRows(ctx context.Context, query SelectQuery) (DBRecords, error)
	Count(ctx context.Context, table string, tenantID int64) (int64, error)
}

// Database is the connection-level handle. It is created once at startup and
// passed explicitly to whoever needs it.
type Database interface {
	Executor

	BeginTransaction(ctx context.Context) (Transaction, error)
	Status(ctx context.Context) (StatusStruct, error)

	// Status and Health check
	IsConnected() bool
	Close() error
}

// Transaction runs the same statements as Database inside one BEGIN/COMMIT.
// Rollback after Commit is a no-op.
type Transaction interface {
	Executor

	Commit() error
	Rollback() error
}
