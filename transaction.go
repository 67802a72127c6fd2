package orm

import (
	"context"
	"fmt"
)

// RunInTransaction runs fn inside a transaction, committing when fn returns
// nil and rolling back otherwise. A panic in fn rolls back and re-panics.
// Usage:
//
//	err := orm.RunInTransaction(ctx, db, func(tx orm.Transaction) error {
//	  _, err := tx.Insert(ctx, "customers", row)
//	  return err
//	})
func RunInTransaction(ctx context.Context, db Database, fn func(tx Transaction) error) (err error) {
	tx, err := db.BeginTransaction(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}
