package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Payment is immutable once inserted. The booking ID doubles as the
// idempotency key: at most one payment row may exist per booking.
type Payment struct {
	ID            string    `json:"id"`
	BookingID     string    `json:"bookingId"`
	BookID        string    `json:"bookId"`
	UserEmail     string    `json:"userEmail"`
	AmountCents   int64     `json:"amountCents"`
	TransactionID string    `json:"transactionId"`
	CreatedAt     time.Time `json:"createdAt"`
}

var (
	// ErrDuplicate means the booking has already transitioned to paid.
	ErrDuplicate = errors.New("booking is already paid")
	// ErrAmountMismatch means the submitted amount differs from the price
	// captured when the booking was created.
	ErrAmountMismatch = errors.New("payment amount does not match booking price")
)

type RecordPaymentRequest struct {
	// UserEmail comes from the authenticated claims.
	UserEmail     string `json:"-"`
	BookingID     string `json:"bookingId" binding:"required,uuid"`
	TransactionID string `json:"transactionId" binding:"required,min=1,max=200"`
	AmountCents   int64  `json:"amountCents" binding:"required,min=1"`
}

func New(req RecordPaymentRequest, bookID string) Payment {
	return Payment{
		ID:            uuid.NewString(),
		BookingID:     req.BookingID,
		BookID:        bookID,
		UserEmail:     req.UserEmail,
		AmountCents:   req.AmountCents,
		TransactionID: req.TransactionID,
		CreatedAt:     time.Now().UTC(),
	}
}
