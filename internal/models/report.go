package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus tracks an export job from request to downloadable file.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportCompleted ReportStatus = "completed"
	ReportFailed    ReportStatus = "failed"
)

// FinancialReport is one requested CSV export. Role is captured at request
// time so the worker filters with the same policy the requester had then.
// S3Key is set once the worker has uploaded the file.
type FinancialReport struct {
	ID          uuid.UUID    `json:"id"`
	RequestedBy uuid.UUID    `json:"requested_by"`
	Role        Role         `json:"role"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
	Status      ReportStatus `json:"status"`
	S3Key       string       `json:"s3_key,omitempty"`
	SizeBytes   int64        `json:"size_bytes,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
