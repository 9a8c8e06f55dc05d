package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/royalbook/royalbook/internal/domain/report"
	"github.com/royalbook/royalbook/internal/observability"
)

type ReportsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewReportsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ReportsRepo {
	return &ReportsRepo{pool: pool, prom: prom}
}

func (r *ReportsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ReportsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

func (r *ReportsRepo) Create(ctx context.Context, req report.CreateReportRequest) (rep report.Report, err error) {
	rep = report.NewFromCreateRequest(req)

	err = r.observe("reports.create", func() error {
		_, e := r.pool.Exec(ctx, `
		INSERT INTO reports (id, book_id, reporter_email, reason, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, rep.ID, rep.BookID, rep.ReporterEmail, rep.Reason, rep.CreatedAt)
		return e
	})

	if err != nil {
		rep = report.Report{}
	}

	return
}

func (r *ReportsRepo) List(ctx context.Context) (reports []report.Report, err error) {
	var rows pgx.Rows

	err = r.observe("reports.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx, `
		SELECT id, book_id, reporter_email, reason, created_at
		FROM reports
		ORDER BY created_at ASC
	`)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	reports = make([]report.Report, 0)

	for rows.Next() {
		var rep report.Report
		if e := rows.Scan(&rep.ID, &rep.BookID, &rep.ReporterEmail, &rep.Reason, &rep.CreatedAt); e != nil {
			err = e
			return
		}
		reports = append(reports, rep)
	}

	err = rows.Err()
	return
}

// DeleteByBookTx removes every report row for a book inside the same
// transaction that deletes the book, so a deleted book can never keep a
// dangling report.
func (r *ReportsRepo) DeleteByBookTx(ctx context.Context, tx pgx.Tx, bookID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM reports WHERE book_id = $1`, bookID)
	return err
}

func (r *ReportsRepo) DeleteByBook(ctx context.Context, bookID string) (err error) {
	err = r.observe("reports.delete_by_book", func() error {
		_, e := r.pool.Exec(ctx, `DELETE FROM reports WHERE book_id = $1`, bookID)
		return e
	})
	return
}
