package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/ingestkit/retry"
)

// IsBusy reports whether err is a SQLITE_BUSY or locked-database error.
// modernc's driver surfaces these as formatted strings, so this matches
// on the message rather than a sentinel.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// busyExecutor retries only lock contention, with short waits. Anything
// else propagates on the first attempt.
var busyExecutor = retry.New(
	retry.WithWait(retry.Expo(50*time.Millisecond, time.Second)),
	retry.RetryIf(IsBusy),
)

// busyStrategy bounds the contention retries.
var busyStrategy = &retry.Strategy{MaxTries: 6}

// RunTx runs fn inside a transaction, retrying the whole transaction
// when SQLite reports lock contention. fn must be safe to re-run.
func RunTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	return busyExecutor.Run(ctx, busyStrategy, "dbopen.tx", func(ctx context.Context) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// Exec runs a single statement with busy retries.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	return retry.Do(ctx, busyExecutor, busyStrategy, "dbopen.exec",
		func(ctx context.Context) (sql.Result, error) {
			return db.ExecContext(ctx, query, args...)
		})
}
