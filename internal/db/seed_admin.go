package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/royalbook/royalbook/internal/config"
	"github.com/royalbook/royalbook/internal/domain/user"
)

// EnsureAdminUser seeds the configured admin account on first boot. Accounts
// are passwordless; the admin signs in through the same token flow as
// everyone else.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" {
		return nil
	}

	// check if the user exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:        uuid.NewString(),
		Email:     cfg.AdminEmail,
		Name:      cfg.AdminName,
		Role:      user.RoleAdmin,
		Verified:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, name, role, verified, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		u.ID, u.Email, u.Name, u.Role, u.Verified, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
