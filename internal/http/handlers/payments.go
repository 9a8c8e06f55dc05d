package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/royalbook/royalbook/internal/config"
	"github.com/royalbook/royalbook/internal/domain/booking"
	"github.com/royalbook/royalbook/internal/domain/payment"
	"github.com/royalbook/royalbook/internal/http/middlewares"
	"github.com/royalbook/royalbook/internal/payments"
	"github.com/royalbook/royalbook/internal/reconcile"
)

type IntentCreator interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error)
}

type PaymentReconciler interface {
	Apply(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error)
}

type PaymentsHandler struct {
	gateway    IntentCreator
	reconciler PaymentReconciler
	bookings   BookingsStore
}

func NewPaymentsHandler(gateway IntentCreator, reconciler PaymentReconciler, bookings BookingsStore) *PaymentsHandler {
	return &PaymentsHandler{
		gateway:    gateway,
		reconciler: reconciler,
		bookings:   bookings,
	}
}

type createIntentRequest struct {
	BookingID string `json:"bookingId" binding:"required,uuid"`
}

// CreateIntent opens a payment with the gateway for a booking. The amount is
// the price captured on the booking, never a figure from the client.
func (h *PaymentsHandler) CreateIntent(ctx *gin.Context) {
	var req createIntentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email, ok := middlewares.EmailFromContext(ctx)

	if !ok || email == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	bk, err := h.bookings.GetByID(cctx, req.BookingID)

	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			RespondNotFound(ctx, "Booking not found")
			return
		}

		RespondInternal(ctx, "Could not load booking")
		return
	}

	if bk.UserEmail != email {
		RespondForbidden(ctx, "You can only pay for your own bookings")
		return
	}

	if bk.Paid {
		RespondConflict(ctx, "duplicate_payment", "This booking is already paid.")
		return
	}

	clientSecret, err := h.gateway.CreateIntent(cctx, bk.PriceCents, "usd")

	if err != nil {
		var gwErr *payments.GatewayError

		switch {
		case errors.Is(err, payments.ErrInvalidAmount):
			RespondBadRequest(ctx, "amount must be positive", nil)
		case errors.As(err, &gwErr):
			// surface the gateway's own code so the client can react to
			// card_declined and friends
			RespondError(ctx, http.StatusBadGateway, "gateway_error", gwErr.Message, gin.H{
				"gatewayCode": gwErr.Code,
			})
		default:
			RespondInternal(ctx, "Could not create payment intent")
			fmt.Println(err)
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"clientSecret": clientSecret,
		"amountCents":  bk.PriceCents,
	})
}

// RecordPayment settles a booking: payment row, paid flag and sold flag move
// together in one transaction or not at all.
func (h *PaymentsHandler) RecordPayment(ctx *gin.Context) {
	var req payment.RecordPaymentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email, ok := middlewares.EmailFromContext(ctx)

	if !ok || email == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	req.UserEmail = email

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	pay, err := h.reconciler.Apply(cctx, req)

	if err != nil {
		switch {
		case errors.Is(err, booking.ErrNotFound):
			RespondNotFound(ctx, "Booking not found")
		case errors.Is(err, reconcile.ErrWrongUser):
			RespondForbidden(ctx, "You can only pay for your own bookings")
		case errors.Is(err, payment.ErrDuplicate):
			RespondConflict(ctx, "duplicate_payment", "This booking is already paid.")
		case errors.Is(err, payment.ErrAmountMismatch):
			RespondConflict(ctx, "amount_mismatch", "Payment amount does not match the booking price.")
		default:
			RespondInternal(ctx, "Could not record payment")
			fmt.Println(err)
		}
		return
	}

	ctx.JSON(http.StatusCreated, pay)
}
