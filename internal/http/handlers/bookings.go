package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/royalbook/royalbook/internal/config"
	"github.com/royalbook/royalbook/internal/domain/book"
	"github.com/royalbook/royalbook/internal/domain/booking"
	"github.com/royalbook/royalbook/internal/domain/user"
	"github.com/royalbook/royalbook/internal/http/middlewares"
	"github.com/royalbook/royalbook/internal/utils"
)

type BookingsStore interface {
	Create(ctx context.Context, req booking.CreateBookingRequest) (booking.Booking, error)
	GetByID(ctx context.Context, id string) (booking.Booking, error)
	ListByUser(ctx context.Context, userEmail string) ([]booking.Booking, error)
}

type BookingsHandler struct {
	repo BookingsStore
}

func NewBookingsHandler(repo BookingsStore) *BookingsHandler {
	return &BookingsHandler{repo: repo}
}

// Create reserves a book for the authenticated buyer. The listing's title and
// price are captured into the booking at this point.
func (h *BookingsHandler) Create(ctx *gin.Context) {
	var req booking.CreateBookingRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email, ok := middlewares.EmailFromContext(ctx)

	if !ok || email == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	req.UserEmail = email

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	bk, err := h.repo.Create(cctx, req)

	if err != nil {
		switch {
		case errors.Is(err, book.ErrNotFound):
			RespondNotFound(ctx, "Book not found")
		case errors.Is(err, book.ErrAlreadySold):
			RespondConflict(ctx, "book_sold", "This book has already been sold.")
		case errors.Is(err, booking.ErrAlreadyBooked):
			RespondConflict(ctx, "already_booked", "You have already booked this book.")
		default:
			RespondInternal(ctx, "Could not create booking")
			fmt.Println(err)
		}
		return
	}

	ctx.JSON(http.StatusCreated, bk)
}

func (h *BookingsHandler) ListForUser(ctx *gin.Context) {
	email := ctx.Param("email")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	bookings, err := h.repo.ListByUser(cctx, email)

	if err != nil {
		RespondInternal(ctx, "Could not list bookings")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count":    len(bookings),
		"bookings": bookings,
	})
}

// Get serves the payment page: the booking with its captured price. Only the
// booking's owner or an admin may see it.
func (h *BookingsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", "booking id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	bk, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			RespondNotFound(ctx, "Booking not found")
			return
		}

		RespondInternal(ctx, "Could not load booking")
		return
	}

	email, _ := middlewares.EmailFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	if role != user.RoleAdmin && bk.UserEmail != email {
		RespondForbidden(ctx, "You can only view your own bookings")
		return
	}

	ctx.JSON(http.StatusOK, bk)
}
