package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound оставлен для совместимости с вызовами errors.Is(err, repository.ErrNotFound).
var ErrNotFound = apperr.ErrNotFound

// wrap переводит ошибки pgx в классы apperr: нет строки — NotFound, обрыв/таймаут — Unavailable.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isTransient(err):
		return apperr.Unavailable(op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx — connection exception, 57P01..03 — сервер останавливается.
		return len(pgErr.Code) == 5 && (pgErr.Code[:2] == "08" || pgErr.Code[:3] == "57P")
	}
	return false
}
