package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

type Repositories struct {
	Users     repo.Users
	Homes     repo.Homes
	Exchanges repo.Exchanges
	AuditLogs repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:     &usersRepo{pool},
		Homes:     &homesRepo{pool},
		Exchanges: &exchangesRepo{pool},
		AuditLogs: &auditLogsRepo{pool},
	}
}

// withTx runs fn in one read-committed transaction. Row locks taken with
// FOR UPDATE inside fn are what serialize concurrent writers.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const (
	pgUniqueViolation  = "23505"
	pgInvalidTextValue = "22P02"
)

// translate maps driver errors onto repository errors. A malformed uuid can
// never match a row, so it is reported as not found.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInvalidTextValue:
			return repo.ErrNotFound
		case pgUniqueViolation:
			return repo.ErrDuplicate
		}
	}
	return err
}
