package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpi-retail/mpi/internal/shared"
)

// WithTx runs fn inside a repeatable-read transaction. The transaction is
// rolled back when fn returns an error, committed otherwise. A transient
// abort (serialization failure or deadlock) comes back as a conflict error
// via WrapRetryable so the caller can re-run the whole transaction.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return WrapRetryable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return WrapRetryable(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

// WrapRetryable converts transaction aborts that are safe to re-run, a
// serialization failure (40001) or deadlock (40P01) under repeatable read,
// into errors matching shared.ErrConflict so bounded retry loops start a
// fresh attempt instead of surfacing a raw SQLSTATE. Every other error
// passes through unchanged.
func WrapRetryable(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("platform/db: transaction aborted (SQLSTATE %s): %w: %w", pgErr.Code, shared.ErrConflict, err)
		}
	}
	return err
}
