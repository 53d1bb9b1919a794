package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swapbnb/exchange-coordinator/internal/models"
)

type homesRepo struct{ pool *pgxpool.Pool }

const homeCols = `id, owner_id, title, city, created_at`

func scanHome(row pgx.Row) (models.Home, error) {
	var h models.Home
	err := row.Scan(&h.ID, &h.OwnerID, &h.Title, &h.City, &h.CreatedAt)
	return h, translate(err)
}

func (r *homesRepo) Create(ctx context.Context, h models.Home) (models.Home, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return scanHome(r.pool.QueryRow(ctx,
		`INSERT INTO homes(id, owner_id, title, city) VALUES($1,$2,$3,$4) RETURNING `+homeCols,
		h.ID, h.OwnerID, h.Title, h.City,
	))
}

func (r *homesRepo) GetByID(ctx context.Context, id string) (models.Home, error) {
	return scanHome(r.pool.QueryRow(ctx, `SELECT `+homeCols+` FROM homes WHERE id=$1`, id))
}

func (r *homesRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Home, error) {
	return r.list(ctx, `SELECT `+homeCols+` FROM homes WHERE owner_id=$1 ORDER BY created_at DESC, id`, ownerID)
}

func (r *homesRepo) List(ctx context.Context, limit, offset int) ([]models.Home, error) {
	return r.list(ctx, `SELECT `+homeCols+` FROM homes ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *homesRepo) list(ctx context.Context, q string, args ...any) ([]models.Home, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []models.Home
	for rows.Next() {
		h, err := scanHome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
