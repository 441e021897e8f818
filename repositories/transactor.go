package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Transactor runs a unit of work in one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx SQLExecutor) error) error
}

type postgresTransactor struct {
	db          *sql.DB
	maxAttempts int
	logger      *slog.Logger
}

// NewPostgresTransactor returns a Transactor that re-runs fn from scratch when
// PostgreSQL aborts the transaction with a serialization failure or deadlock.
func NewPostgresTransactor(db *sql.DB, maxAttempts int, logger *slog.Logger) Transactor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresTransactor{db: db, maxAttempts: maxAttempts, logger: logger}
}

func (t *postgresTransactor) WithinTx(ctx context.Context, fn func(tx SQLExecutor) error) error {
	var err error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		err = t.runOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		t.logger.Warn("transaction conflict, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", t.maxAttempts),
			slog.Any("error", err))
	}
	return err
}

func (t *postgresTransactor) runOnce(ctx context.Context, fn func(tx SQLExecutor) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}
