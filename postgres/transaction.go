package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	orm "github.com/medatechnology/tenantorm"
)

// Tx implements orm.Transaction. Statements run on the transaction's
// connection, a failed statement leaves the transaction aborted until
// Rollback.
type Tx struct {
	executor
	tx *sql.Tx
}

var _ orm.Transaction = (*Tx)(nil)

// BeginTransaction starts a new database transaction. ctx governs the whole
// transaction: cancelling it rolls the transaction back.
func (pdb *DB) BeginTransaction(ctx context.Context) (orm.Transaction, error) {
	tx, err := pdb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, orm.WrapTransactionError(fmt.Errorf("%w: %v", ErrPostgresTransactionFailed, err), "BEGIN")
	}

	return &Tx{
		executor: pdb.withTx(tx),
		tx:       tx,
	}, nil
}

// Commit commits the transaction
func (ptx *Tx) Commit() error {
	if ptx.tx == nil {
		return fmt.Errorf("transaction is nil or already closed")
	}
	if err := ptx.tx.Commit(); err != nil {
		return orm.WrapTransactionError(fmt.Errorf("%w: %v", ErrPostgresTransactionFailed, err), "COMMIT")
	}
	return nil
}

// Rollback rolls back the transaction. Rolling back a finished transaction is a no-op.
func (ptx *Tx) Rollback() error {
	if ptx.tx == nil {
		return fmt.Errorf("transaction is nil or already closed")
	}
	err := ptx.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return orm.WrapTransactionError(fmt.Errorf("%w: %v", ErrPostgresTransactionFailed, err), "ROLLBACK")
	}
	return nil
}
