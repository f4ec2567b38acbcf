// Package ports defines shared interfaces for the verification module.
// Interfaces are placed here when consumed by multiple packages to avoid
// duplication.
package ports

import (
	"context"
	"time"

	"bursary/internal/verification/models"
	id "bursary/pkg/domain"
)

// Clock supplies the current time. Injected so date checks are deterministic
// under test.
type Clock func() time.Time

// OCRToken is a single recognized token with its confidence in [0,100].
type OCRToken struct {
	Text       string
	Confidence float64
}

// OCRClient is the narrow contract to the external OCR engine. Implementations
// may block; callers bound them with a context deadline. Any failure must be
// returned as an error, never a panic.
type OCRClient interface {
	// Extract runs OCR over an encoded image and returns per-token results.
	Extract(ctx context.Context, image []byte, lang string) ([]OCRToken, error)
}

// RequestStore persists verification requests and their documents.
type RequestStore interface {
	// CreateRequest stores a new request. Fails with a conflict error when the
	// ID already exists.
	CreateRequest(ctx context.Context, req *models.Request) error

	// GetRequest retrieves a request by ID.
	GetRequest(ctx context.Context, reqID id.RequestID) (*models.Request, error)

	// UpdateStatus transitions a request and bumps its updated timestamp.
	UpdateStatus(ctx context.Context, reqID id.RequestID, status models.RequestStatus, priority models.ReviewPriority) error

	// ListByStatus returns requests in a given status, newest first.
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]*models.Request, error)

	// AddDocument stores an uploaded document under a request.
	AddDocument(ctx context.Context, doc *models.Document) error

	// ListDocuments returns all documents of a request in upload order.
	ListDocuments(ctx context.Context, reqID id.RequestID) ([]*models.Document, error)

	// SaveReport persists the latest verification report for a request.
	SaveReport(ctx context.Context, report *models.VerificationReport) error

	// GetReport returns the latest report for a request.
	GetReport(ctx context.Context, reqID id.RequestID) (*models.VerificationReport, error)
}

// HistoryStore keeps prior extractions per subject for the fraud detector.
type HistoryStore interface {
	// Append records an extraction for a subject, trimming to a bounded window.
	Append(ctx context.Context, subject id.SubjectID, entry models.HistoryEntry) error

	// List returns the recorded entries for a subject, oldest first.
	List(ctx context.Context, subject id.SubjectID) ([]models.HistoryEntry, error)
}

// DecisionPublisher emits decision events after a run completes. Publish
// failures are logged by the caller and never fail the run.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, reqID id.RequestID, decision models.Decision) error
}
