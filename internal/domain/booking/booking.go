package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// A Booking reserves one book for one buyer, pending payment. PriceCents is
// captured from the listing at creation time; the reconciler checks payments
// against this captured price, not the live listing.
type Booking struct {
	ID              string     `json:"id"`
	BookID          string     `json:"bookId"`
	UserEmail       string     `json:"userEmail"`
	BookTitle       string     `json:"bookTitle"`
	PriceCents      int64      `json:"priceCents"`
	MeetingLocation string     `json:"meetingLocation,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Paid            bool       `json:"paid"`
	TransactionID   *string    `json:"transactionId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

var (
	ErrNotFound      = errors.New("booking not found")
	ErrAlreadyBooked = errors.New("book already booked by this user")
)

type CreateBookingRequest struct {
	// UserEmail comes from the authenticated claims.
	UserEmail       string `json:"-"`
	BookID          string `json:"bookId" binding:"required,uuid"`
	MeetingLocation string `json:"meetingLocation" binding:"omitempty,max=200"`
	Phone           string `json:"phone" binding:"omitempty,max=30"`
}

func NewFromCreateRequest(req CreateBookingRequest, bookTitle string, priceCents int64) Booking {
	now := time.Now().UTC()
	return Booking{
		ID:              uuid.NewString(),
		BookID:          req.BookID,
		UserEmail:       req.UserEmail,
		BookTitle:       bookTitle,
		PriceCents:      priceCents,
		MeetingLocation: req.MeetingLocation,
		Phone:           req.Phone,
		Paid:            false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
