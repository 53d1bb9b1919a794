package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swapbnb/exchange-coordinator/internal/models"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

type usersRepo struct{ pool *pgxpool.Pool }

const userCols = `id, username, email, password_hash, role, credits, identity_status, identity_session_id, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Credits,
		&u.IdentityStatus, &u.IdentitySessionID, &u.CreatedAt, &u.UpdatedAt)
	return u, translate(err)
}

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.IdentityStatus == "" {
		u.IdentityStatus = models.IdentityUnverified
	}
	return scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users(id, username, email, password_hash, role, credits, identity_status)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 RETURNING `+userCols,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Credits, u.IdentityStatus,
	))
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE lower(email)=lower($1)`, email))
}

func (r *usersRepo) AddCredits(ctx context.Context, id string, delta int) (models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users
		    SET credits = credits + $2,
		        updated_at = now()
		  WHERE id = $1 AND credits + $2 >= 0
		  RETURNING `+userCols,
		id, delta,
	))
	if errors.Is(err, repo.ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return models.User{}, repo.ErrInsufficientCredits
		}
	}
	return u, err
}

func (r *usersRepo) SetIdentitySession(ctx context.Context, id, sessionID string) (models.User, error) {
	var out models.User
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		// exchanges before users, same order as Confirm
		if err := lockLiveExchanges(ctx, tx, id); err != nil {
			return err
		}
		u, err := scanUser(tx.QueryRow(ctx,
			`UPDATE users
			    SET identity_session_id = $2,
			        identity_status = CASE WHEN identity_status = 'unverified' THEN 'pending' ELSE identity_status END,
			        updated_at = now()
			  WHERE id = $1 AND identity_session_id IS NULL
			  RETURNING `+userCols,
			id, sessionID,
		))
		if errors.Is(err, repo.ErrNotFound) {
			out, err = scanUser(tx.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
			return err
		}
		if err != nil {
			return err
		}
		out = u
		return mirrorIdentity(ctx, tx, id, u.IdentityStatus)
	})
	return out, err
}

func lockLiveExchanges(ctx context.Context, tx pgx.Tx, userID string) error {
	rows, err := tx.Query(ctx,
		`SELECT id FROM exchanges
		  WHERE (requester_id = $1 OR host_id = $1) AND status IN ('pending', 'accepted')
		  ORDER BY id
		  FOR UPDATE`, userID)
	if err != nil {
		return translate(err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

func mirrorIdentity(ctx context.Context, tx pgx.Tx, userID string, status models.VerificationStatus) error {
	_, err := tx.Exec(ctx,
		`UPDATE exchanges
		    SET requester_identity_verification_status =
		            CASE WHEN requester_id = $1 THEN $2::text ELSE requester_identity_verification_status END,
		        host_identity_verification_status =
		            CASE WHEN host_id = $1 THEN $2::text ELSE host_identity_verification_status END,
		        updated_at = now()
		  WHERE (requester_id = $1 OR host_id = $1) AND status IN ('pending', 'accepted')`,
		userID, status,
	)
	return err
}
