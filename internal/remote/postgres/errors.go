package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapError converts pgx/pgconn errors to common sentinel errors.
// Context errors pass through unchanged.
func mapError(err error, entity string, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return fmt.Errorf("%s %s: %w", entity, id, common.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, id, common.ErrConflict)
		case "23503", "23514", "22P02": // foreign key, check, invalid text representation
			return fmt.Errorf("%s %s: %w: %s", entity, id, common.ErrValidation, pgErr.Message)
		case "28000", "28P01", "42501": // auth failures, insufficient privilege
			return fmt.Errorf("%s %s: %w", entity, id, common.ErrUnauthorized)
		}
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%s %s: %w: %v", entity, id, common.ErrUnavailable, err)
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
