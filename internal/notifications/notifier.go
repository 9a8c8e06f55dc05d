package notifications

import "context"

type SendPaymentConfirmationInput struct {
	Email         string
	BookTitle     string
	BookingID     string
	TransactionID string
}

type Notifier interface {
	SendPaymentConfirmation(ctx context.Context, input SendPaymentConfirmationInput) error
}
