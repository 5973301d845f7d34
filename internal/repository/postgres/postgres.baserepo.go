package postgres

import (
	"context"
	"database/sql"

	"github.com/airflowiq/hub/internal/database"
	"github.com/airflowiq/hub/internal/errors"
)

type PostgresBaseRepo struct {
	db database.DB
}

func (r *PostgresBaseRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to begin transaction", err)
	}
	return tx, nil
}

func (r *PostgresBaseRepo) Ping(ctx context.Context) error {
	if err := r.db.GetDB().PingContext(ctx); err != nil {
		return errors.NewDatabaseError("failed to ping database", err)
	}
	return nil
}

// execAffecting runs a statement and reports how many rows it touched
func (r *PostgresBaseRepo) execAffecting(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := r.db.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// getOne wraps GetContext and maps a missing row onto a NotFound error
func (r *PostgresBaseRepo) getOne(ctx context.Context, dest interface{}, what, query string, args ...interface{}) error {
	err := r.db.GetDB().GetContext(ctx, dest, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return errors.NewNotFoundError(what+" not found", err)
		}
		return errors.NewDatabaseError("failed to get "+what, err)
	}
	return nil
}
