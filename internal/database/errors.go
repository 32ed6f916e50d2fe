package database

import (
	"errors"
	"fmt"

	"interviewsched/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Postgres SQLSTATE codes that mean "another writer got there first".
var pgConflictCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled (statement or lock timeout)
}

// classify maps lock contention and serialization failures to ErrConcurrentModification.
func classify(err error) error {
	if err == nil || errors.Is(err, models.ErrConcurrentModification) {
		return err
	}
	if isConflict(err) {
		return fmt.Errorf("%w: %v", models.ErrConcurrentModification, err)
	}
	return err
}

func isConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgConflictCodes[pgErr.Code]
	}
	return false
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
