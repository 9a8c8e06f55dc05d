package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/royalbook/royalbook/internal/domain/user"
	"github.com/royalbook/royalbook/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, email, name, role, verified, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Verified, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Upsert creates or updates the record keyed by email. Role and verified are
// set only on first insert; a re-upsert from the public endpoint must not let
// a caller promote themselves or clear an admin's verification.
func (r *UsersRepo) Upsert(ctx context.Context, req user.UpsertRequest) (u user.User, err error) {
	role := req.Role

	if role == "" {
		role = user.RoleUser
	}

	err = r.observe("users.upsert", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, role, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, now(), now())
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
		    updated_at = now()
		RETURNING `+userColumns,
			uuid.NewString(), req.Email, req.Name, role,
		))
		return e
	})

	return
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_by_email", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return e
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = user.ErrNotFound
	}

	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	err = r.observe("users.get_by_id", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return e
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = user.ErrNotFound
	}

	return
}

func (r *UsersRepo) ListByRole(ctx context.Context, role string) (users []user.User, err error) {
	var rows pgx.Rows

	err = r.observe("users.list_by_role", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at ASC`, role)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	users = make([]user.User, 0)

	for rows.Next() {
		u, e := scanUser(rows)
		if e != nil {
			err = e
			return
		}
		users = append(users, u)
	}

	err = rows.Err()
	return
}

func (r *UsersRepo) SetVerified(ctx context.Context, id string) (err error) {
	err = r.observe("users.set_verified", func() error {
		tag, e := r.pool.Exec(ctx,
			`UPDATE users SET verified = true, updated_at = now() WHERE id = $1`, id)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})

	return
}

// Delete removes the account and returns its email so the caller can deny
// outstanding sessions. Listings and bookings keep their email references:
// payment history must stay auditable after the account is gone.
func (r *UsersRepo) Delete(ctx context.Context, id string) (email string, err error) {
	err = r.observe("users.delete", func() error {
		return r.pool.QueryRow(ctx,
			`DELETE FROM users WHERE id = $1 RETURNING email`, id).Scan(&email)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = user.ErrNotFound
	}

	return
}
