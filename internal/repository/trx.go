package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// handleTrx runs fn inside a transaction, or directly on q when q already
// is one, so repositories can be composed inside a caller's transaction.
func handleTrx(ctx context.Context, db *sqlx.DB, q sqlx.ExtContext, fn func(q sqlx.ExtContext) error) (err error) {
	if _, ok := q.(*sqlx.Tx); ok {
		return fn(q)
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)

	return err
}
