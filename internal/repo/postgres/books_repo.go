package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/royalbook/royalbook/internal/domain/book"
	"github.com/royalbook/royalbook/internal/observability"
)

type BooksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewBooksRepo(pool *pgxpool.Pool, prom *observability.Prom) *BooksRepo {
	return &BooksRepo{pool: pool, prom: prom}
}

func (r *BooksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const bookColumns = `id, seller_email, title, category, price_cents, sold, advertise, image_url, created_at, updated_at`

func scanBook(row pgx.Row) (book.Book, error) {
	var b book.Book
	err := row.Scan(&b.ID, &b.SellerEmail, &b.Title, &b.Category, &b.PriceCents, &b.Sold, &b.Advertise, &b.ImageURL, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *BooksRepo) Create(ctx context.Context, req book.CreateBookRequest) (b book.Book, err error) {
	b = book.NewFromCreateRequest(req)

	err = r.observe("books.create", func() error {
		_, e := r.pool.Exec(ctx, `
		INSERT INTO books (id, seller_email, title, category, price_cents, sold, advertise, image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, b.ID, b.SellerEmail, b.Title, b.Category, b.PriceCents, b.Sold, b.Advertise, b.ImageURL, b.CreatedAt, b.UpdatedAt)
		return e
	})

	if err != nil {
		b = book.Book{}
	}

	return
}

func (r *BooksRepo) GetByID(ctx context.Context, id string) (b book.Book, err error) {
	err = r.observe("books.get_by_id", func() error {
		var e error
		b, e = scanBook(r.pool.QueryRow(ctx,
			`SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
		return e
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = book.ErrNotFound
	}

	return
}

func (r *BooksRepo) Delete(ctx context.Context, id string) (err error) {
	var tag pgconn.CommandTag

	err = r.observe("books.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		err = book.ErrNotFound
	}

	return
}

func (r *BooksRepo) DeleteTx(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}

	return nil
}

func (r *BooksRepo) ListBySeller(ctx context.Context, sellerEmail string) ([]book.Book, error) {
	return r.list(ctx, "books.list_by_seller",
		`SELECT `+bookColumns+` FROM books WHERE seller_email = $1 ORDER BY created_at DESC`, sellerEmail)
}

// ListByCategory is the public browse query: unsold listings whose advertise
// flag is on.
func (r *BooksRepo) ListByCategory(ctx context.Context, category string) ([]book.Book, error) {
	return r.list(ctx, "books.list_by_category",
		`SELECT `+bookColumns+` FROM books WHERE category = $1 AND sold = false AND advertise = true ORDER BY created_at DESC`, category)
}

func (r *BooksRepo) list(ctx context.Context, op, query string, args ...any) (books []book.Book, err error) {
	var rows pgx.Rows

	err = r.observe(op, func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	books = make([]book.Book, 0)

	for rows.Next() {
		b, e := scanBook(rows)
		if e != nil {
			err = e
			return
		}
		books = append(books, b)
	}

	err = rows.Err()
	return
}

func (r *BooksRepo) Categories(ctx context.Context) (categories []string, err error) {
	var rows pgx.Rows

	err = r.observe("books.categories", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT DISTINCT category FROM books WHERE sold = false ORDER BY category ASC`)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	categories = make([]string, 0)

	for rows.Next() {
		var c string
		if e := rows.Scan(&c); e != nil {
			err = e
			return
		}
		categories = append(categories, c)
	}

	err = rows.Err()
	return
}

// ToggleAdvertise flips the flag in a single statement. Read-then-write from
// the application would lose one of two concurrent toggles; the conditional
// update makes the flip atomic so n calls always flip n times.
func (r *BooksRepo) ToggleAdvertise(ctx context.Context, id string) (advertise bool, err error) {
	err = r.observe("books.toggle_advertise", func() error {
		return r.pool.QueryRow(ctx, `
		UPDATE books
		SET advertise = NOT advertise,
		    updated_at = now()
		WHERE id = $1
		RETURNING advertise
	`, id).Scan(&advertise)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = book.ErrNotFound
	}

	return
}

// MarkSoldTx participates in the payment reconciliation transaction.
func (r *BooksRepo) MarkSoldTx(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE books SET sold = true, updated_at = now() WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}

	return nil
}
