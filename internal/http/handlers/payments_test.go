package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/royalbook/royalbook/internal/domain/booking"
	"github.com/royalbook/royalbook/internal/domain/payment"
	"github.com/royalbook/royalbook/internal/http/handlers"
	"github.com/royalbook/royalbook/internal/http/middlewares"
	"github.com/royalbook/royalbook/internal/payments"
	"github.com/royalbook/royalbook/internal/reconcile"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

// Fake implementations of the handler interfaces

type fakeGateway struct {
	createIntentFn func(ctx context.Context, amountCents int64, currency string) (string, error)
}

func (f *fakeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error) {
	if f.createIntentFn != nil {
		return f.createIntentFn(ctx, amountCents, currency)
	}
	return "secret", nil
}

type fakeReconciler struct {
	applyFn func(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error)
}

func (f *fakeReconciler) Apply(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error) {
	if f.applyFn != nil {
		return f.applyFn(ctx, req)
	}
	return payment.Payment{}, nil
}

type fakeBookingsRepo struct {
	createFn func(ctx context.Context, req booking.CreateBookingRequest) (booking.Booking, error)
	getFn    func(ctx context.Context, id string) (booking.Booking, error)
	listFn   func(ctx context.Context, userEmail string) ([]booking.Booking, error)
}

func (f *fakeBookingsRepo) Create(ctx context.Context, req booking.CreateBookingRequest) (booking.Booking, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return booking.Booking{}, nil
}

func (f *fakeBookingsRepo) GetByID(ctx context.Context, id string) (booking.Booking, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return booking.Booking{}, nil
}

func (f *fakeBookingsRepo) ListByUser(ctx context.Context, userEmail string) ([]booking.Booking, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userEmail)
	}
	return nil, nil
}

// helper which mounts one handler behind a fake identity

func setupAuthedRouter(method, path, email, role string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, func(c *gin.Context) {
		middlewares.SetIdentity(c, email, role)
	}, h)

	return r
}

func TestRecordPaymentHandler(t *testing.T) {
	bookingID := newUUID()

	validBody := `{
		"bookingId": "` + bookingID + `",
		"transactionId": "txn_123",
		"amountCents": 2500
	}`

	tests := []struct {
		name           string
		body           string
		applyFn        func(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error)
		wantStatusCode int
		wantErrCode    string
	}{
		{
			name: "success",
			body: validBody,
			applyFn: func(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error) {
				if req.UserEmail != "buyer@example.com" {
					return payment.Payment{}, errors.New("identity not attached")
				}
				return payment.New(req, newUUID()), nil
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "validation_error",
			body:           `{"bookingId": "not-a-uuid"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "duplicate_payment",
			body: validBody,
			applyFn: func(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error) {
				return payment.Payment{}, payment.ErrDuplicate
			},
			wantStatusCode: http.StatusConflict,
			wantErrCode:    "duplicate_payment",
		},
		{
			name: "amount_mismatch",
			body: validBody,
			applyFn: func(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error) {
				return payment.Payment{}, payment.ErrAmountMismatch
			},
			wantStatusCode: http.StatusConflict,
			wantErrCode:    "amount_mismatch",
		},
		{
			name: "booking_not_found",
			body: validBody,
			applyFn: func(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error) {
				return payment.Payment{}, booking.ErrNotFound
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "someone_elses_booking",
			body: validBody,
			applyFn: func(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error) {
				return payment.Payment{}, reconcile.ErrWrongUser
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name: "storage_error",
			body: validBody,
			applyFn: func(ctx context.Context, req payment.RecordPaymentRequest) (payment.Payment, error) {
				return payment.Payment{}, errors.New("db error")
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewPaymentsHandler(
				&fakeGateway{},
				&fakeReconciler{applyFn: tt.applyFn},
				&fakeBookingsRepo{},
			)

			r := setupAuthedRouter(http.MethodPut, "/payments", "buyer@example.com", "user", h.RecordPayment)

			req := httptest.NewRequest(http.MethodPut, "/payments", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantErrCode != "" {
				var resp struct {
					Error handlers.APIError `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("bad error body: %v", err)
				}
				if resp.Error.Code != tt.wantErrCode {
					t.Errorf("got error code %q, want %q", resp.Error.Code, tt.wantErrCode)
				}
			}
		})
	}
}

func TestCreateIntentHandler(t *testing.T) {
	bookingID := newUUID()

	ownBooking := func(paid bool) func(ctx context.Context, id string) (booking.Booking, error) {
		return func(ctx context.Context, id string) (booking.Booking, error) {
			return booking.Booking{
				ID:         id,
				UserEmail:  "buyer@example.com",
				PriceCents: 2500,
				Paid:       paid,
			}, nil
		}
	}

	tests := []struct {
		name           string
		body           string
		getFn          func(ctx context.Context, id string) (booking.Booking, error)
		createIntentFn func(ctx context.Context, amountCents int64, currency string) (string, error)
		wantStatusCode int
	}{
		{
			name:  "success_uses_captured_price",
			body:  `{"bookingId": "` + bookingID + `"}`,
			getFn: ownBooking(false),
			createIntentFn: func(ctx context.Context, amountCents int64, currency string) (string, error) {
				if amountCents != 2500 {
					return "", errors.New("amount not taken from booking")
				}
				return "pi_secret", nil
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "booking_not_found",
			body:           `{"bookingId": "` + bookingID + `"}`,
			getFn:          func(ctx context.Context, id string) (booking.Booking, error) { return booking.Booking{}, booking.ErrNotFound },
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "someone_elses_booking",
			body: `{"bookingId": "` + bookingID + `"}`,
			getFn: func(ctx context.Context, id string) (booking.Booking, error) {
				return booking.Booking{ID: id, UserEmail: "other@example.com", PriceCents: 2500}, nil
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "already_paid",
			body:           `{"bookingId": "` + bookingID + `"}`,
			getFn:          ownBooking(true),
			wantStatusCode: http.StatusConflict,
		},
		{
			name:  "gateway_error_propagated",
			body:  `{"bookingId": "` + bookingID + `"}`,
			getFn: ownBooking(false),
			createIntentFn: func(ctx context.Context, amountCents int64, currency string) (string, error) {
				return "", &payments.GatewayError{Status: 402, Code: "card_declined", Message: "Your card was declined."}
			},
			wantStatusCode: http.StatusBadGateway,
		},
		{
			name:           "validation_error",
			body:           `{}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewPaymentsHandler(
				&fakeGateway{createIntentFn: tt.createIntentFn},
				&fakeReconciler{},
				&fakeBookingsRepo{getFn: tt.getFn},
			)

			r := setupAuthedRouter(http.MethodPost, "/create-payment-intent", "buyer@example.com", "user", h.CreateIntent)

			req := httptest.NewRequest(http.MethodPost, "/create-payment-intent", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
