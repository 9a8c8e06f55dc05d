package jobs

import "encoding/json"

type PaymentConfirmationPayload struct {
	BookingID     string `json:"bookingId"`
	BookID        string `json:"bookId"`
	BookTitle     string `json:"bookTitle"`
	Email         string `json:"email"`
	TransactionID string `json:"transactionId"`
}

func (p PaymentConfirmationPayload) JSON() (json.RawMessage, error) {
	return json.Marshal(p)
}

type ReportCleanupPayload struct {
	BookID string `json:"bookId"`
}

func (p ReportCleanupPayload) JSON() (json.RawMessage, error) {
	return json.Marshal(p)
}
