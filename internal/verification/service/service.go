// Package service orchestrates the verification pipeline: extraction, the
// five checks, the decision, and the report, plus request lifecycle state.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"bursary/internal/verification/authenticity"
	"bursary/internal/verification/completeness"
	"bursary/internal/verification/decision"
	"bursary/internal/verification/fraud"
	"bursary/internal/verification/identity"
	"bursary/internal/verification/metrics"
	"bursary/internal/verification/models"
	"bursary/internal/verification/ports"
	"bursary/internal/verification/report"
	"bursary/internal/verification/validity"
	id "bursary/pkg/domain"
	derrors "bursary/pkg/domain-errors"
)

var tracer = otel.Tracer("bursary/verification")

// Extractor turns raw document bytes into extracted text and fields. Satisfied
// by extract.Engine; tests swap in a canned implementation.
type Extractor interface {
	Extract(ctx context.Context, content []byte, ext string) models.ExtractedDocument
}

// Service runs the verification pipeline and owns request lifecycle state.
type Service struct {
	store     ports.RequestStore
	history   ports.HistoryStore
	extractor Extractor
	publisher ports.DecisionPublisher

	identity     *identity.Verifier
	authenticity *authenticity.Verifier
	validity     *validity.Verifier
	completeness *completeness.Checker
	fraud        *fraud.Detector
	engine       *decision.Engine
	reports      *report.Generator

	requirements models.Requirements
	requiredDocs []string

	logger  *slog.Logger
	metrics *metrics.Metrics
	now     ports.Clock
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(publisher ports.DecisionPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithClock overrides the time source, making date checks and report
// timestamps deterministic under test.
func WithClock(now ports.Clock) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRequirements overrides the default eligibility thresholds.
func WithRequirements(reqs models.Requirements) Option {
	return func(s *Service) {
		s.requirements = reqs
	}
}

// WithRequiredDocuments overrides the default required document type set.
func WithRequiredDocuments(types []string) Option {
	return func(s *Service) {
		s.requiredDocs = types
	}
}

// Default eligibility policy applied when the deployment does not configure
// its own.
var (
	defaultRequirements = models.Requirements{MinGrade: 7.0, MaxIncome: 600000}
	defaultRequiredDocs = []string{"income_certificate", "grade_sheet", "bank_details", "id_proof"}
)

// New constructs a Service.
func New(store ports.RequestStore, history ports.HistoryStore, extractor Extractor, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("request store is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	s := &Service{
		store:        store,
		history:      history,
		extractor:    extractor,
		identity:     identity.New(),
		authenticity: authenticity.New(),
		completeness: completeness.New(),
		engine:       decision.New(),
		requirements: defaultRequirements,
		requiredDocs: defaultRequiredDocs,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.validity = validity.New(s.now)
	s.fraud = fraud.New(s.now)
	s.reports = report.New(s.now)
	return s, nil
}

// SubmitRequest registers a new verification request for a subject.
func (s *Service) SubmitRequest(ctx context.Context, subject models.Subject) (*models.Request, error) {
	if subject.ID.IsNil() {
		return nil, derrors.New(derrors.CodeInvalidInput, "subject id is required")
	}
	if strings.TrimSpace(subject.FullName) == "" {
		return nil, derrors.New(derrors.CodeInvalidInput, "subject full name is required")
	}

	now := s.now()
	req := &models.Request{
		ID:            id.NewRequestID(),
		RequestNumber: s.newRequestNumber(now),
		Subject:       subject,
		Status:        models.RequestSubmitted,
		Priority:      models.PriorityNormal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification request submitted",
		"request_id", req.ID.String(),
		"request_number", req.RequestNumber)
	return req, nil
}

// UploadDocument stores a document under a request and runs the per-document
// analysis (extraction, identity, authenticity). The analysis is advisory; the
// authoritative run happens in VerifyRequest.
func (s *Service) UploadDocument(ctx context.Context, reqID id.RequestID, filename, docType string, content []byte) (*models.Document, *models.DocumentAnalysis, error) {
	if len(content) == 0 {
		return nil, nil, derrors.New(derrors.CodeInvalidInput, "document content is empty")
	}
	if strings.TrimSpace(docType) == "" {
		return nil, nil, derrors.New(derrors.CodeInvalidInput, "document type is required")
	}
	req, err := s.store.GetRequest(ctx, reqID)
	if err != nil {
		return nil, nil, err
	}

	doc := &models.Document{
		ID:         id.NewDocumentID(),
		RequestID:  reqID,
		Filename:   filename,
		Type:       strings.ToLower(strings.TrimSpace(docType)),
		Extension:  strings.ToLower(filepath.Ext(filename)),
		Content:    content,
		UploadedAt: s.now(),
	}
	if err := s.store.AddDocument(ctx, doc); err != nil {
		return nil, nil, err
	}

	analysis := s.analyzeDocument(ctx, doc, req.Subject)
	s.logger.InfoContext(ctx, "document uploaded",
		"request_id", reqID.String(),
		"document_id", doc.ID.String(),
		"document_type", doc.Type,
		"extraction_method", extractionMethod(analysis))
	return doc, &analysis, nil
}

// GetRequest returns a request's current state.
func (s *Service) GetRequest(ctx context.Context, reqID id.RequestID) (*models.Request, error) {
	return s.store.GetRequest(ctx, reqID)
}

// GetReport returns the latest report for a request.
func (s *Service) GetReport(ctx context.Context, reqID id.RequestID) (*models.VerificationReport, error) {
	return s.store.GetReport(ctx, reqID)
}

// PendingReviews lists requests waiting on a human decision, newest first.
func (s *Service) PendingReviews(ctx context.Context) ([]*models.Request, error) {
	return s.store.ListByStatus(ctx, models.RequestUnderReview)
}

// ManualReview records a reviewer's approve or reject on a request that is
// under review.
func (s *Service) ManualReview(ctx context.Context, reqID id.RequestID, approve bool, reviewer string) (*models.Request, error) {
	req, err := s.store.GetRequest(ctx, reqID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestUnderReview {
		return nil, derrors.New(derrors.CodeConflict,
			fmt.Sprintf("request is %s, only under_review requests can be reviewed", req.Status))
	}

	status := models.RequestRejected
	if approve {
		status = models.RequestApproved
	}
	if err := s.store.UpdateStatus(ctx, reqID, status, models.PriorityNormal); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "manual review recorded",
		"request_id", reqID.String(),
		"status", string(status),
		"reviewer", reviewer)
	return s.store.GetRequest(ctx, reqID)
}

// newRequestNumber builds the human-facing request number, e.g.
// REQ-20250131-9F3A1C2B.
func (s *Service) newRequestNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("REQ-%s-%s", now.Format("20060102"), suffix)
}

func extractionMethod(analysis models.DocumentAnalysis) string {
	if analysis.Extracted == nil {
		return string(models.MethodNone)
	}
	return string(analysis.Extracted.Method)
}
