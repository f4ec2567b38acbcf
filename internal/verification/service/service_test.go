package service_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bursary/internal/notification"
	"bursary/internal/verification/models"
	"bursary/internal/verification/service"
	"bursary/internal/verification/store"
	id "bursary/pkg/domain"
	derrors "bursary/pkg/domain-errors"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var requiredDocTypes = []string{"income_certificate", "grade_sheet", "bank_details", "id_proof"}

// fakeExtractor returns the same canned extraction for every document, an
// extraction failure when fail is set, or a panic when panics is set.
type fakeExtractor struct {
	out    models.ExtractedDocument
	fail   bool
	panics bool
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _ string) models.ExtractedDocument {
	if f.panics {
		panic("extractor blew up")
	}
	if f.fail {
		return models.ExtractedDocument{Method: models.MethodError}
	}
	return f.out
}

type ServiceSuite struct {
	suite.Suite
	ctx context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func (s *ServiceSuite) newSubject() models.Subject {
	return models.Subject{
		ID:         id.SubjectID(uuid.NewString()),
		FullName:   "Ravi Kumar",
		StudentID:  "S123456",
		Department: "Computer Science",
		Email:      "ravi@example.edu",
	}
}

// matchingExtraction agrees with the subject from newSubject and satisfies the
// default eligibility thresholds.
func (s *ServiceSuite) matchingExtraction() models.ExtractedDocument {
	return models.ExtractedDocument{
		Text:       "Name: Ravi Kumar\nStudent ID: S123456\nCGPA: 8.5\nAmount: Rs. 450,000",
		Confidence: 0.95,
		Method:     models.MethodOCRImg,
		Fields: models.StructuredFields{
			Name:       "Ravi Kumar",
			StudentID:  "S123456",
			Department: "Computer Science",
			Grade:      "8.5",
			Amounts:    []string{"450,000"},
		},
		ContentHash: "canned-hash",
	}
}

func (s *ServiceSuite) newPipeline(extractor service.Extractor) (*service.Service, *store.InMemoryHistory, *notification.MemoryPublisher) {
	history := store.NewInMemoryHistory()
	pub := notification.NewMemory()
	svc, err := service.New(
		store.NewInMemoryStore(func() time.Time { return testNow }),
		history,
		extractor,
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithClock(func() time.Time { return testNow }),
		service.WithPublisher(pub),
	)
	s.Require().NoError(err)
	return svc, history, pub
}

// certificateImage paints a synthetic certificate: white paper, a red stamp
// patch, a thin dark signature stroke, and noisy texture for sharpness.
func (s *ServiceSuite) certificateImage() []byte {
	const size = 100
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	rng := rand.New(rand.NewSource(42))

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(200 + rng.Intn(56))
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	for y := 5; y < 25; y++ {
		for x := 5; x < 25; x++ {
			img.Set(x, y, color.NRGBA{R: 230, G: 30, B: 30, A: 255})
		}
	}
	for y := 80; y < 84; y++ {
		for x := 20; x < 80; x++ {
			img.Set(x, y, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
		}
	}

	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, img))
	return buf.Bytes()
}

func (s *ServiceSuite) uploadAll(svc *service.Service, reqID id.RequestID, content []byte, ext string) {
	for _, docType := range requiredDocTypes {
		_, _, err := svc.UploadDocument(s.ctx, reqID, docType+ext, docType, content)
		s.Require().NoError(err)
	}
}

// ---------------------------------------------------------------------------
// Request lifecycle
// ---------------------------------------------------------------------------

func (s *ServiceSuite) TestSubmitRequest() {
	svc, _, _ := s.newPipeline(&fakeExtractor{out: s.matchingExtraction()})

	s.Run("creates a submitted request with a dated number", func() {
		req, err := svc.SubmitRequest(s.ctx, s.newSubject())
		s.Require().NoError(err)

		s.Equal(models.RequestSubmitted, req.Status)
		s.Equal(models.PriorityNormal, req.Priority)
		s.Regexp(`^REQ-20250601-[0-9A-F]{8}$`, req.RequestNumber)
		s.True(req.CreatedAt.Equal(testNow))

		got, err := svc.GetRequest(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(req.RequestNumber, got.RequestNumber)
	})

	s.Run("rejects a missing subject id", func() {
		subject := s.newSubject()
		subject.ID = ""
		_, err := svc.SubmitRequest(s.ctx, subject)
		s.Equal(derrors.CodeInvalidInput, derrors.CodeOf(err))
	})

	s.Run("rejects a blank full name", func() {
		subject := s.newSubject()
		subject.FullName = "   "
		_, err := svc.SubmitRequest(s.ctx, subject)
		s.Equal(derrors.CodeInvalidInput, derrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestUploadDocument() {
	svc, _, _ := s.newPipeline(&fakeExtractor{out: s.matchingExtraction()})
	req, err := svc.SubmitRequest(s.ctx, s.newSubject())
	s.Require().NoError(err)

	s.Run("stores the document and returns the advisory analysis", func() {
		doc, analysis, err := svc.UploadDocument(s.ctx, req.ID, "Certificate.PNG", " Income_Certificate ", s.certificateImage())
		s.Require().NoError(err)

		s.Equal("income_certificate", doc.Type)
		s.Equal(".png", doc.Extension)
		s.Equal(req.ID, doc.RequestID)

		s.Require().NotNil(analysis)
		s.Require().NotNil(analysis.Extracted)
		s.Require().NotNil(analysis.Identity)
		s.Require().NotNil(analysis.Authenticity)
		s.Equal(models.StatusVerified, analysis.Identity.Status)
	})

	s.Run("rejects empty content", func() {
		_, _, err := svc.UploadDocument(s.ctx, req.ID, "a.png", "id_proof", nil)
		s.Equal(derrors.CodeInvalidInput, derrors.CodeOf(err))
	})

	s.Run("rejects a blank document type", func() {
		_, _, err := svc.UploadDocument(s.ctx, req.ID, "a.png", "  ", []byte("x"))
		s.Equal(derrors.CodeInvalidInput, derrors.CodeOf(err))
	})

	s.Run("rejects an unknown request", func() {
		_, _, err := svc.UploadDocument(s.ctx, id.NewRequestID(), "a.png", "id_proof", []byte("x"))
		s.Equal(derrors.CodeNotFound, derrors.CodeOf(err))
	})
}

// ---------------------------------------------------------------------------
// Verification runs
// ---------------------------------------------------------------------------

func (s *ServiceSuite) TestVerifyRequestApproves() {
	svc, history, pub := s.newPipeline(&fakeExtractor{out: s.matchingExtraction()})
	subject := s.newSubject()
	req, err := svc.SubmitRequest(s.ctx, subject)
	s.Require().NoError(err)
	s.uploadAll(svc, req.ID, s.certificateImage(), ".png")

	result, err := svc.VerifyRequest(s.ctx, req.ID)
	s.Require().NoError(err)

	s.Equal(models.ActionApprove, result.Decision.Action)
	s.GreaterOrEqual(result.Decision.Confidence, 0.8)
	s.False(result.Decision.RequiresReview)
	s.Len(result.Analyses, 4)

	s.Equal(models.StatusVerified, result.Results.Identity.Status)
	s.InDelta(1.0, result.Results.Identity.Confidence, 1e-9)
	s.Equal(models.StatusVerified, result.Results.Authenticity.Status)
	s.Equal(models.StatusValid, result.Results.Validity.Status)
	s.Equal(models.StatusComplete, result.Results.Completeness.Status)
	s.Equal(models.RiskLow, result.Results.Fraud.RiskLevel)

	updated, err := svc.GetRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestApproved, updated.Status)

	report, err := svc.GetReport(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.ActionApprove, report.OverallStatus)
	s.True(report.GeneratedAt.Equal(testNow))
	s.Contains(report.NextActions, "Process scholarship disbursement")

	entries, err := history.List(s.ctx, subject.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	s.Equal(req.ID, entries[0].RequestID)

	events := pub.Events()
	s.Require().Len(events, 1)
	s.Equal(req.ID.String(), events[0].RequestID)
	s.Equal("approve", events[0].Action)
}

func (s *ServiceSuite) TestVerifyRequestRejectsNonPhotographicAuthenticity() {
	svc, _, pub := s.newPipeline(&fakeExtractor{out: s.matchingExtraction()})
	req, err := svc.SubmitRequest(s.ctx, s.newSubject())
	s.Require().NoError(err)
	s.uploadAll(svc, req.ID, []byte("%PDF-1.7 not really"), ".pdf")

	result, err := svc.VerifyRequest(s.ctx, req.ID)
	s.Require().NoError(err)

	s.Equal(models.ActionReject, result.Decision.Action)
	s.Contains(result.Decision.Reason, "Document authenticity suspicious")
	s.True(result.Decision.RequiresReview)
	s.Equal(models.PriorityHigh, result.Decision.ReviewPriority)
	s.Equal(models.StatusSuspicious, result.Results.Authenticity.Status)

	updated, err := svc.GetRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestRejected, updated.Status)

	events := pub.Events()
	s.Require().Len(events, 1)
	s.Equal("reject", events[0].Action)
}

func (s *ServiceSuite) TestVerifyRequestRoutesToReview() {
	extraction := s.matchingExtraction()
	extraction.Fields.Name = "Someone Else"
	extraction.Fields.Department = ""
	extraction.Fields.Amounts = []string{"750,000"}

	svc, _, _ := s.newPipeline(&fakeExtractor{out: extraction})
	req, err := svc.SubmitRequest(s.ctx, s.newSubject())
	s.Require().NoError(err)
	s.uploadAll(svc, req.ID, s.certificateImage(), ".png")

	result, err := svc.VerifyRequest(s.ctx, req.ID)
	s.Require().NoError(err)

	s.Equal(models.ActionReview, result.Decision.Action)
	s.True(result.Decision.RequiresReview)
	s.Equal(models.PriorityMedium, result.Decision.ReviewPriority)

	s.Equal(models.StatusReviewRequired, result.Results.Identity.Status)
	s.InDelta(0.5, result.Results.Identity.Confidence, 1e-9)
	s.Equal(models.StatusReviewRequired, result.Results.Validity.Status)
	s.InDelta(0.5, result.Results.Validity.Confidence, 1e-9)

	updated, err := svc.GetRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestUnderReview, updated.Status)
	s.Equal(models.PriorityMedium, updated.Priority)
}

func (s *ServiceSuite) TestVerifyRequestFlagsResubmission() {
	svc, _, _ := s.newPipeline(&fakeExtractor{out: s.matchingExtraction()})
	subject := s.newSubject()
	req, err := svc.SubmitRequest(s.ctx, subject)
	s.Require().NoError(err)
	s.uploadAll(svc, req.ID, s.certificateImage(), ".png")

	first, err := svc.VerifyRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.ActionApprove, first.Decision.Action)

	// Re-running the same request skips its own recorded extractions, so the
	// outcome is stable.
	rerun, err := svc.VerifyRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.ActionApprove, rerun.Decision.Action)
	s.False(rerun.Results.Fraud.IsDuplicate)

	// A new request from the same subject with the same documents collides
	// with the recorded history.
	resub, err := svc.SubmitRequest(s.ctx, subject)
	s.Require().NoError(err)
	s.uploadAll(svc, resub.ID, s.certificateImage(), ".png")

	second, err := svc.VerifyRequest(s.ctx, resub.ID)
	s.Require().NoError(err)

	s.Equal(models.ActionReject, second.Decision.Action)
	s.Contains(second.Decision.Reason, "High fraud risk detected")
	s.True(second.Results.Fraud.IsDuplicate)
	s.Equal(models.RiskHigh, second.Results.Fraud.RiskLevel)
}

func (s *ServiceSuite) TestVerifyRequestWithoutDocuments() {
	svc, _, _ := s.newPipeline(&fakeExtractor{out: s.matchingExtraction()})
	req, err := svc.SubmitRequest(s.ctx, s.newSubject())
	s.Require().NoError(err)

	_, err = svc.VerifyRequest(s.ctx, req.ID)
	s.Equal(derrors.CodeInvalidInput, derrors.CodeOf(err))
}

func (s *ServiceSuite) TestVerifyRequestExtractionFailure() {
	svc, history, _ := s.newPipeline(&fakeExtractor{fail: true})
	subject := s.newSubject()
	req, err := svc.SubmitRequest(s.ctx, subject)
	s.Require().NoError(err)
	s.uploadAll(svc, req.ID, []byte("garbage"), ".png")

	result, err := svc.VerifyRequest(s.ctx, req.ID)
	s.Require().NoError(err)

	s.Equal(models.ActionReview, result.Decision.Action)
	s.Equal(models.PriorityHigh, result.Decision.ReviewPriority)
	s.Equal(models.StatusError, result.Results.Identity.Status)
	s.Zero(result.Results.Identity.Confidence)
	s.Contains(result.Results.Identity.Issues[0], "extraction failed for")
	s.Contains(result.Analyses[0].Err, "extraction failed for")

	// Checks that never ran score zero; only completeness and the clean fraud
	// default contribute, keeping the weighted confidence firmly in the
	// high-priority review band.
	s.Equal(models.StatusPending, result.Results.Authenticity.Status)
	s.Zero(result.Results.Authenticity.Confidence)
	s.Equal(models.StatusPending, result.Results.Validity.Status)
	s.Zero(result.Results.Validity.Confidence)
	s.InDelta(1.0, result.Results.Fraud.Confidence, 1e-9)
	s.InDelta(0.30, result.Decision.Confidence, 1e-9)

	// Failed extractions never enter history.
	entries, err := history.List(s.ctx, subject.ID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ServiceSuite) TestVerifyRequestDegradesPanicToErrorDecision() {
	ext := &fakeExtractor{out: s.matchingExtraction()}
	svc, _, pub := s.newPipeline(ext)
	req, err := svc.SubmitRequest(s.ctx, s.newSubject())
	s.Require().NoError(err)
	s.uploadAll(svc, req.ID, s.certificateImage(), ".png")

	ext.panics = true
	result, err := svc.VerifyRequest(s.ctx, req.ID)
	s.Require().NoError(err)

	s.Equal(models.ActionError, result.Decision.Action)
	s.Equal(models.PriorityUrgent, result.Decision.ReviewPriority)
	s.True(result.Decision.RequiresReview)
	s.Equal(models.ActionError, result.Report.OverallStatus)
	s.Contains(result.Report.NextActions, "Assign to admin reviewer")

	updated, err := svc.GetRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestUnderReview, updated.Status)
	s.Equal(models.PriorityUrgent, updated.Priority)

	events := pub.Events()
	s.Require().Len(events, 1)
	s.Equal("error", events[0].Action)
}

// ---------------------------------------------------------------------------
// Manual review
// ---------------------------------------------------------------------------

func (s *ServiceSuite) underReviewRequest(svc *service.Service) *models.Request {
	req, err := svc.SubmitRequest(s.ctx, s.newSubject())
	s.Require().NoError(err)
	s.uploadAll(svc, req.ID, s.certificateImage(), ".png")
	_, err = svc.VerifyRequest(s.ctx, req.ID)
	s.Require().NoError(err)

	got, err := svc.GetRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.RequestUnderReview, got.Status)
	return got
}

func (s *ServiceSuite) reviewPipeline() *service.Service {
	extraction := s.matchingExtraction()
	extraction.Fields.Name = "Someone Else"
	extraction.Fields.Department = ""
	extraction.Fields.Amounts = []string{"750,000"}
	svc, _, _ := s.newPipeline(&fakeExtractor{out: extraction})
	return svc
}

func (s *ServiceSuite) TestManualReview() {
	svc := s.reviewPipeline()

	s.Run("approve moves the request to approved", func() {
		req := s.underReviewRequest(svc)
		got, err := svc.ManualReview(s.ctx, req.ID, true, "admin@example.edu")
		s.Require().NoError(err)
		s.Equal(models.RequestApproved, got.Status)
	})

	s.Run("reject moves the request to rejected", func() {
		req := s.underReviewRequest(svc)
		got, err := svc.ManualReview(s.ctx, req.ID, false, "admin@example.edu")
		s.Require().NoError(err)
		s.Equal(models.RequestRejected, got.Status)
	})

	s.Run("reviewing a decided request conflicts", func() {
		req := s.underReviewRequest(svc)
		_, err := svc.ManualReview(s.ctx, req.ID, true, "admin@example.edu")
		s.Require().NoError(err)

		_, err = svc.ManualReview(s.ctx, req.ID, false, "admin@example.edu")
		s.Equal(derrors.CodeConflict, derrors.CodeOf(err))
	})

	s.Run("unknown request is not found", func() {
		_, err := svc.ManualReview(s.ctx, id.NewRequestID(), true, "admin@example.edu")
		s.Equal(derrors.CodeNotFound, derrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestPendingReviews() {
	svc := s.reviewPipeline()

	first := s.underReviewRequest(svc)
	second := s.underReviewRequest(svc)

	pending, err := svc.PendingReviews(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)

	ids := []id.RequestID{pending[0].ID, pending[1].ID}
	s.Contains(ids, first.ID)
	s.Contains(ids, second.ID)
}
