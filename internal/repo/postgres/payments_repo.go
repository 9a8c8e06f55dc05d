package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/royalbook/royalbook/internal/domain/payment"
	"github.com/royalbook/royalbook/internal/observability"
)

type PaymentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPaymentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PaymentsRepo {
	return &PaymentsRepo{pool: pool, prom: prom}
}

func (r *PaymentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *PaymentsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

// InsertTx writes the payment row inside the reconciliation transaction.
// payments.booking_id is UNIQUE; a second insert for the same booking is
// rejected by the store even if the row lock were somehow bypassed.
func (r *PaymentsRepo) InsertTx(ctx context.Context, tx pgx.Tx, p payment.Payment) error {
	err := r.observe("payments.insert_tx", func() error {
		_, e := tx.Exec(ctx, `
		INSERT INTO payments (id, booking_id, book_id, user_email, amount_cents, transaction_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, p.ID, p.BookingID, p.BookID, p.UserEmail, p.AmountCents, p.TransactionID, p.CreatedAt)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return payment.ErrDuplicate
		}
		return err
	}

	return nil
}

func (r *PaymentsRepo) GetByBooking(ctx context.Context, bookingID string) (p payment.Payment, err error) {
	err = r.observe("payments.get_by_booking", func() error {
		return r.pool.QueryRow(ctx, `
		SELECT id, booking_id, book_id, user_email, amount_cents, transaction_id, created_at
		FROM payments
		WHERE booking_id = $1
	`, bookingID).Scan(&p.ID, &p.BookingID, &p.BookID, &p.UserEmail, &p.AmountCents, &p.TransactionID, &p.CreatedAt)
	})

	return
}

func (r *PaymentsRepo) CountByBooking(ctx context.Context, bookingID string) (int, error) {
	op := "payments.count_by_booking"
	var total int
	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE booking_id = $1`, bookingID).Scan(&total)
	})
	return total, err
}
