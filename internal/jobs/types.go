package jobs

const (
	// TypePaymentConfirmation notifies the buyer after a sale settles.
	TypePaymentConfirmation = "payment.confirmation"
	// TypeReportCleanup retries removing report rows for a deleted book.
	TypeReportCleanup = "report.cleanup"
)

func IsValidType(t string) bool {
	switch t {
	case TypePaymentConfirmation, TypeReportCleanup:
		return true
	default:
		return false
	}
}
