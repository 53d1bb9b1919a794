package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swapbnb/exchange-coordinator/internal/exchange"
	"github.com/swapbnb/exchange-coordinator/internal/models"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

type exchangesRepo struct{ pool *pgxpool.Pool }

const exchangeCols = `id, requester_id, host_id, requester_home_id, host_home_id, start_date, end_date, guests, message, status,
	requester_confirmed, host_confirmed, requester_payment_status, host_payment_status,
	requester_identity_verification_status, host_identity_verification_status,
	requester_payment_session_id, host_payment_session_id, created_at, updated_at, confirmed_at, completed_at`

func scanExchange(row pgx.Row) (models.Exchange, error) {
	var e models.Exchange
	err := row.Scan(&e.ID, &e.RequesterID, &e.HostID, &e.RequesterHomeID, &e.HostHomeID,
		&e.StartDate, &e.EndDate, &e.Guests, &e.Message, &e.Status,
		&e.RequesterConfirmed, &e.HostConfirmed, &e.RequesterPaymentStatus, &e.HostPaymentStatus,
		&e.RequesterIdentityStatus, &e.HostIdentityStatus,
		&e.RequesterPaymentSessionID, &e.HostPaymentSessionID,
		&e.CreatedAt, &e.UpdatedAt, &e.ConfirmedAt, &e.CompletedAt)
	return e, translate(err)
}

// per-role column names; never built from input
type partyCols struct{ confirmed, payment, session string }

func colsFor(r models.Role) partyCols {
	if r == models.RoleHost {
		return partyCols{"host_confirmed", "host_payment_status", "host_payment_session_id"}
	}
	return partyCols{"requester_confirmed", "requester_payment_status", "requester_payment_session_id"}
}

func lockExchange(ctx context.Context, tx pgx.Tx, id string) (models.Exchange, error) {
	return scanExchange(tx.QueryRow(ctx, `SELECT `+exchangeCols+` FROM exchanges WHERE id=$1 FOR UPDATE`, id))
}

// recordEvent inserts into the idempotency ledger; false means the event
// was seen before.
func recordEvent(ctx context.Context, tx pgx.Tx, ev models.ProviderEvent) (bool, error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO provider_events(provider, event_id, kind) VALUES($1,$2,$3)
		 ON CONFLICT (provider, event_id) DO NOTHING`,
		ev.Provider, ev.EventID, ev.Kind)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func eventSeen(ctx context.Context, tx pgx.Tx, ev models.ProviderEvent) (bool, error) {
	var seen bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM provider_events WHERE provider=$1 AND event_id=$2)`,
		ev.Provider, ev.EventID).Scan(&seen)
	return seen, err
}

func (r *exchangesRepo) Create(ctx context.Context, ex models.Exchange) (models.Exchange, error) {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	return scanExchange(r.pool.QueryRow(ctx,
		`INSERT INTO exchanges (
		   id, requester_id, host_id, requester_home_id, host_home_id, start_date, end_date, guests, message, status,
		   requester_payment_status, host_payment_status,
		   requester_identity_verification_status, host_identity_verification_status
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 RETURNING `+exchangeCols,
		ex.ID, ex.RequesterID, ex.HostID, ex.RequesterHomeID, ex.HostHomeID, ex.StartDate, ex.EndDate,
		ex.Guests, ex.Message, ex.Status,
		ex.RequesterPaymentStatus, ex.HostPaymentStatus,
		ex.RequesterIdentityStatus, ex.HostIdentityStatus,
	))
}

func (r *exchangesRepo) GetByID(ctx context.Context, id string) (models.Exchange, error) {
	return scanExchange(r.pool.QueryRow(ctx, `SELECT `+exchangeCols+` FROM exchanges WHERE id=$1`, id))
}

func (r *exchangesRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Exchange, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+exchangeCols+`
		   FROM exchanges
		  WHERE requester_id=$1 OR host_id=$1
		  ORDER BY created_at DESC, id
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []models.Exchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (r *exchangesRepo) Transition(ctx context.Context, id string, fn repo.TransitionFunc) (models.Exchange, models.ExchangeStatus, error) {
	var out models.Exchange
	var from models.ExchangeStatus
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		ex, err := lockExchange(ctx, tx, id)
		if err != nil {
			return err
		}
		from = ex.Status
		to, err := fn(ex)
		if err != nil {
			return err
		}
		out, err = scanExchange(tx.QueryRow(ctx,
			`UPDATE exchanges
			    SET status = $2::text,
			        completed_at = CASE WHEN $2::text = 'completed' THEN now() ELSE completed_at END,
			        updated_at = now()
			  WHERE id = $1
			  RETURNING `+exchangeCols,
			id, to,
		))
		return err
	})
	return out, from, err
}

func (r *exchangesRepo) Confirm(ctx context.Context, id, actorID string, policy exchange.ConfirmPolicy) (repo.ConfirmOutcome, error) {
	var out repo.ConfirmOutcome
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		ex, err := lockExchange(ctx, tx, id)
		if err != nil {
			return err
		}
		var credits int
		err = tx.QueryRow(ctx, `SELECT credits FROM users WHERE id=$1 FOR UPDATE`, actorID).Scan(&credits)
		if err != nil && !errors.Is(translate(err), repo.ErrNotFound) {
			return err
		}

		plan, err := policy(ex, actorID, credits)
		if err != nil {
			return err
		}
		out = repo.ConfirmOutcome{Exchange: ex, Plan: plan, Credits: credits}
		if plan.AlreadyConfirmed {
			return nil
		}

		if plan.SpendCredit {
			err = tx.QueryRow(ctx,
				`UPDATE users SET credits = credits - 1, updated_at = now()
				  WHERE id = $1 AND credits > 0
				  RETURNING credits`, actorID).Scan(&out.Credits)
			if errors.Is(err, pgx.ErrNoRows) {
				return repo.ErrInsufficientCredits
			}
			if err != nil {
				return err
			}
		}

		mine, other := colsFor(plan.Role), colsFor(plan.Role.Other())
		q := fmt.Sprintf(`UPDATE exchanges
		    SET %[1]s = true,
		        status = CASE WHEN %[2]s THEN 'confirmed' ELSE status END,
		        confirmed_at = CASE WHEN %[2]s THEN now() ELSE confirmed_at END,
		        updated_at = now()
		  WHERE id = $1 AND status = 'accepted' AND %[1]s = false
		  RETURNING `+exchangeCols, mine.confirmed, other.confirmed)
		out.Exchange, err = scanExchange(tx.QueryRow(ctx, q, id))
		if errors.Is(err, repo.ErrNotFound) {
			// the row is locked, so this means the snapshot and the guard disagree
			return fmt.Errorf("confirm %s: guarded update matched no row", id)
		}
		return err
	})
	return out, err
}

func (r *exchangesRepo) SetPaymentSession(ctx context.Context, id string, role models.Role, sessionID string) (models.Exchange, error) {
	c := colsFor(role)
	q := fmt.Sprintf(`UPDATE exchanges
	    SET %[1]s = $2,
	        %[2]s = CASE WHEN %[2]s = 'unpaid' THEN 'pending' ELSE %[2]s END,
	        updated_at = now()
	  WHERE id = $1 AND %[1]s IS NULL
	  RETURNING `+exchangeCols, c.session, c.payment)
	ex, err := scanExchange(r.pool.QueryRow(ctx, q, id, sessionID))
	if errors.Is(err, repo.ErrNotFound) {
		return r.GetByID(ctx, id)
	}
	return ex, err
}

func (r *exchangesRepo) ApplyPayment(ctx context.Context, u repo.PaymentUpdate) (models.Exchange, bool, error) {
	var out models.Exchange
	var applied bool
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		ex, err := lockExchange(ctx, tx, u.ExchangeID)
		if err != nil {
			return err
		}
		out = ex
		if seen, err := eventSeen(ctx, tx, u.Event); err != nil || seen {
			return err
		}
		role, ok := ex.RoleOf(u.ActorID)
		if !ok {
			return repo.ErrNotParty
		}
		if u.Check != nil {
			if err := u.Check(ex, role); err != nil {
				return err
			}
		}
		if applied, err = recordEvent(ctx, tx, u.Event); err != nil || !applied {
			return err
		}

		c := colsFor(role)
		q := fmt.Sprintf(`UPDATE exchanges SET %[1]s = $2::text, updated_at = now()
		  WHERE id = $1 AND ($3::text = '' OR %[1]s = $3::text)
		  RETURNING `+exchangeCols, c.payment)
		updated, err := scanExchange(tx.QueryRow(ctx, q, u.ExchangeID, u.Status, u.OnlyFrom))
		if errors.Is(err, repo.ErrNotFound) {
			// OnlyFrom did not match; the event is still recorded
			return nil
		}
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	return out, applied, err
}

func (r *exchangesRepo) ApplyIdentity(ctx context.Context, ev models.ProviderEvent, userID string, status models.VerificationStatus) (bool, error) {
	var applied bool
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockLiveExchanges(ctx, tx, userID); err != nil {
			return err
		}
		var cur models.VerificationStatus
		err := tx.QueryRow(ctx, `SELECT identity_status FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&cur)
		if err != nil {
			return translate(err)
		}
		if applied, err = recordEvent(ctx, tx, ev); err != nil || !applied {
			return err
		}
		if !status.Replaces(cur) {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`UPDATE users SET identity_status = $2::text, updated_at = now() WHERE id = $1`,
			userID, status); err != nil {
			return err
		}
		return mirrorIdentity(ctx, tx, userID, status)
	})
	return applied, err
}

func (r *exchangesRepo) ApplyCredits(ctx context.Context, ev models.ProviderEvent, userID string, credits int) (bool, error) {
	var applied bool
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `SELECT 1 FROM users WHERE id=$1 FOR UPDATE`, userID)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return repo.ErrNotFound
		}
		if applied, err = recordEvent(ctx, tx, ev); err != nil || !applied {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE users SET credits = credits + $2, updated_at = now() WHERE id = $1`,
			userID, credits)
		return err
	})
	return applied, err
}
