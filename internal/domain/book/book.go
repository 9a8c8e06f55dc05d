package book

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Book struct {
	ID          string    `json:"id"`
	SellerEmail string    `json:"sellerEmail"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"priceCents"`
	Sold        bool      `json:"sold"`
	Advertise   bool      `json:"advertise"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("book not found")

// ErrAlreadySold guards writes that only make sense on an unsold listing.
var ErrAlreadySold = errors.New("book is already sold")

type CreateBookRequest struct {
	// SellerEmail is taken from the authenticated claims, never the body.
	SellerEmail string `json:"-"`
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Category    string `json:"category" binding:"required,min=2,max=80"`
	PriceCents  int64  `json:"priceCents" binding:"required,min=1"`
	ImageURL    string `json:"imageUrl" binding:"omitempty,url,max=500"`
}

func NewFromCreateRequest(req CreateBookRequest) Book {
	now := time.Now().UTC()
	return Book{
		ID:          uuid.NewString(),
		SellerEmail: req.SellerEmail,
		Title:       req.Title,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Sold:        false,
		Advertise:   false,
		ImageURL:    req.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
