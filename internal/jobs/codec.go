package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/royalbook/royalbook/internal/domain/job"
)

// DecodePayload unmarshals a claimed job's payload into its typed struct.
func DecodePayload(j job.Job) (any, error) {
	if !IsValidType(j.Type) {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case TypePaymentConfirmation:
		var p PaymentConfirmationPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		if p.BookingID == "" || p.Email == "" {
			return nil, ErrInvalidJobPayload
		}
		return p, nil

	case TypeReportCleanup:
		var p ReportCleanupPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		if p.BookID == "" {
			return nil, ErrInvalidJobPayload
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}
