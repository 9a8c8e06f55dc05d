package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/royalbook/royalbook/internal/domain/book"
	"github.com/royalbook/royalbook/internal/domain/booking"
	"github.com/royalbook/royalbook/internal/observability"
)

type BookingsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewBookingsRepo(pool *pgxpool.Pool, prom *observability.Prom) *BookingsRepo {
	return &BookingsRepo{pool: pool, prom: prom}
}

func (r *BookingsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const bookingColumns = `id, book_id, user_email, book_title, price_cents, meeting_location, phone, paid, transaction_id, created_at, updated_at`

func scanBooking(row pgx.Row) (booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(&b.ID, &b.BookID, &b.UserEmail, &b.BookTitle, &b.PriceCents, &b.MeetingLocation, &b.Phone, &b.Paid, &b.TransactionID, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *BookingsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

// Create reserves a book for a buyer. The book row is locked so the sold
// check and the insert see the same state; the (book_id, user_email) unique
// constraint backstops duplicate reservations.
func (r *BookingsRepo) Create(ctx context.Context, req booking.CreateBookingRequest) (bk booking.Booking, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var title string
	var priceCents int64
	var sold bool

	err = r.observe("bookings.create.lock_book", func() error {
		return tx.QueryRow(ctx, `
		SELECT title, price_cents, sold
		FROM books
		WHERE id = $1
		FOR UPDATE
	`, req.BookID).Scan(&title, &priceCents, &sold)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = book.ErrNotFound
		}
		return
	}

	if sold {
		err = book.ErrAlreadySold
		return
	}

	bk = booking.NewFromCreateRequest(req, title, priceCents)

	err = r.observe("bookings.create.insert", func() error {
		_, e := tx.Exec(ctx, `
		INSERT INTO bookings (id, book_id, user_email, book_title, price_cents, meeting_location, phone, paid, transaction_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, bk.ID, bk.BookID, bk.UserEmail, bk.BookTitle, bk.PriceCents, bk.MeetingLocation, bk.Phone, bk.Paid, bk.TransactionID, bk.CreatedAt, bk.UpdatedAt)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = booking.ErrAlreadyBooked
		}
		bk = booking.Booking{}
		return
	}

	err = tx.Commit(ctx)

	if err != nil {
		bk = booking.Booking{}
		return
	}

	return
}

func (r *BookingsRepo) GetByID(ctx context.Context, id string) (bk booking.Booking, err error) {
	err = r.observe("bookings.get_by_id", func() error {
		var e error
		bk, e = scanBooking(r.pool.QueryRow(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
		return e
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = booking.ErrNotFound
	}

	return
}

func (r *BookingsRepo) ListByUser(ctx context.Context, userEmail string) (bookings []booking.Booking, err error) {
	var rows pgx.Rows

	err = r.observe("bookings.list_by_user", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE user_email = $1 ORDER BY created_at DESC`, userEmail)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	bookings = make([]booking.Booking, 0)

	for rows.Next() {
		b, e := scanBooking(rows)
		if e != nil {
			err = e
			return
		}
		bookings = append(bookings, b)
	}

	err = rows.Err()
	return
}

// LockForPaymentTx takes the row lock that serializes reconciliations for
// one booking: a second payment for the same booking blocks here and then
// observes paid = true.
func (r *BookingsRepo) LockForPaymentTx(ctx context.Context, tx pgx.Tx, id string) (bk booking.Booking, err error) {
	err = r.observe("bookings.lock_for_payment", func() error {
		var e error
		bk, e = scanBooking(tx.QueryRow(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
		return e
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = booking.ErrNotFound
	}

	return
}

func (r *BookingsRepo) MarkPaidTx(ctx context.Context, tx pgx.Tx, id, transactionID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET paid = true,
		    transaction_id = $2,
		    updated_at = now()
		WHERE id = $1 AND paid = false
	`, id, transactionID)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}

	return nil
}
