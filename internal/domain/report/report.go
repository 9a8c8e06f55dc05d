package report

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Report struct {
	ID            string    `json:"id"`
	BookID        string    `json:"bookId"`
	ReporterEmail string    `json:"reporterEmail"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

var ErrNotFound = errors.New("report not found")

type CreateReportRequest struct {
	ReporterEmail string `json:"-"`
	BookID        string `json:"bookId" binding:"required,uuid"`
	Reason        string `json:"reason" binding:"omitempty,max=500"`
}

func NewFromCreateRequest(req CreateReportRequest) Report {
	return Report{
		ID:            uuid.NewString(),
		BookID:        req.BookID,
		ReporterEmail: req.ReporterEmail,
		Reason:        req.Reason,
		CreatedAt:     time.Now().UTC(),
	}
}
