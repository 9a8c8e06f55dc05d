package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/royalbook/royalbook/internal/domain/booking"
	"github.com/royalbook/royalbook/internal/domain/job"
	"github.com/royalbook/royalbook/internal/domain/payment"
	"github.com/royalbook/royalbook/internal/jobs"
)

// ErrInconsistent reports that the booking and inventory records disagree
// (e.g. a booking references a book that no longer exists). The transaction
// is rolled back, so the inconsistency is detected, never persisted.
var ErrInconsistent = errors.New("booking and inventory records are out of sync")

// ErrWrongUser reports a payment submitted against someone else's booking.
var ErrWrongUser = errors.New("booking belongs to a different user")

type BookingLedger interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	LockForPaymentTx(ctx context.Context, tx pgx.Tx, id string) (booking.Booking, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, id, transactionID string) error
}

type InventoryStore interface {
	MarkSoldTx(ctx context.Context, tx pgx.Tx, id string) error
}

type PaymentRecorder interface {
	InsertTx(ctx context.Context, tx pgx.Tx, p payment.Payment) error
}

type JobsCreator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error)
}

// Reconciler applies the post-payment state transition: one transaction that
// records the payment, marks the booking paid and the book sold, and enqueues
// the buyer's confirmation. The FOR UPDATE lock on the booking row serializes
// reconciliations per booking, so of two concurrent submissions exactly one
// commits and the other observes paid = true.
type Reconciler struct {
	bookings BookingLedger
	books    InventoryStore
	payments PaymentRecorder
	jobsRepo JobsCreator
}

func New(bookings BookingLedger, books InventoryStore, payments PaymentRecorder, jobsRepo JobsCreator) *Reconciler {
	return &Reconciler{
		bookings: bookings,
		books:    books,
		payments: payments,
		jobsRepo: jobsRepo,
	}
}

func (r *Reconciler) Apply(ctx context.Context, req payment.RecordPaymentRequest) (pay payment.Payment, err error) {
	tx, err := r.bookings.BeginTx(ctx)
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	bk, err := r.bookings.LockForPaymentTx(ctx, tx, req.BookingID)
	if err != nil {
		return
	}

	if bk.UserEmail != req.UserEmail {
		err = ErrWrongUser
		return
	}

	if bk.Paid {
		err = payment.ErrDuplicate
		return
	}

	// The amount is checked against the price captured at booking time, not
	// the live listing: a seller edit between intent and settlement must not
	// change what the buyer owes.
	if req.AmountCents != bk.PriceCents {
		err = payment.ErrAmountMismatch
		return
	}

	pay = payment.New(req, bk.BookID)

	err = r.payments.InsertTx(ctx, tx, pay)
	if err != nil {
		pay = payment.Payment{}
		return
	}

	err = r.bookings.MarkPaidTx(ctx, tx, bk.ID, req.TransactionID)
	if err != nil {
		pay = payment.Payment{}
		return
	}

	err = r.books.MarkSoldTx(ctx, tx, bk.BookID)
	if err != nil {
		pay = payment.Payment{}
		err = fmt.Errorf("%w: %v", ErrInconsistent, err)
		return
	}

	payload, err := jobs.PaymentConfirmationPayload{
		BookingID:     bk.ID,
		BookID:        bk.BookID,
		BookTitle:     bk.BookTitle,
		Email:         bk.UserEmail,
		TransactionID: req.TransactionID,
	}.JSON()

	if err != nil {
		pay = payment.Payment{}
		return
	}

	key := "payment:confirm:" + bk.ID

	_, err = r.jobsRepo.CreateTx(ctx, tx, job.CreateRequest{
		Type:           jobs.TypePaymentConfirmation,
		Payload:        payload,
		MaxAttempts:    10,
		IdempotencyKey: &key,
	})

	if err != nil {
		// duplicate idempotency key inside the same tx is safe to ignore
		if !isUniqueViolation(err) {
			pay = payment.Payment{}
			return
		}
		err = nil
	}

	err = tx.Commit(ctx)

	if err != nil {
		pay = payment.Payment{}
		return
	}

	return
}
