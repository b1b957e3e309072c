// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"studio-settlement/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Storage struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*Storage)(nil)

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// sanitizeString drops invisible and control characters and collapses runs
// of whitespace, so names pasted from spreadsheets compare equal.
func sanitizeString(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			result = append(result, ' ')
		} else if unicode.IsPrint(r) {
			result = append(result, r)
		}
	}
	return strings.Join(strings.Fields(string(result)), " ")
}

// translate maps constraint violations onto storage sentinels.
func translate(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", what, storage.ErrConflict)
		case "23503": // foreign_key_violation
			if strings.HasPrefix(pgErr.Message, "update or delete") {
				return fmt.Errorf("%s is still referenced: %w", what, storage.ErrConflict)
			}
			return fmt.Errorf("%s references %s: %w", what, pgErr.ConstraintName, storage.ErrBadReference)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func parseMonth(month string) (*time.Time, error) {
	if month == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	return &t, nil
}

func formatMonth(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01")
}

func nullIfZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
