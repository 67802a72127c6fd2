package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	orm "github.com/medatechnology/tenantorm"
)

//go:embed schema.sql
var schemaSQL string

// SchemaStatements returns the bootstrap DDL split into single statements.
func SchemaStatements() []string {
	return orm.ConvertSQLCommands(strings.Split(schemaSQL, "\n"))
}

// Migrate creates the tables and indexes if they do not exist. All statements
// run in one transaction.
func (pdb *DB) Migrate(ctx context.Context) error {
	tx, err := pdb.db.BeginTx(ctx, nil)
	if err != nil {
		return orm.WrapTransactionError(fmt.Errorf("%w: %v", ErrPostgresTransactionFailed, err), "BEGIN")
	}

	for i, stmt := range SchemaStatements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return pdb.fail("MIGRATE", "", stmt, fmt.Errorf("statement %d: %w", i+1, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return orm.WrapTransactionError(fmt.Errorf("%w: %v", ErrPostgresTransactionFailed, err), "COMMIT")
	}
	pdb.logger.Info("schema migrated", orm.Int("statements", len(SchemaStatements())))
	return nil
}
