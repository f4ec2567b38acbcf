package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"bursary/internal/verification/decision"
	"bursary/internal/verification/models"
	id "bursary/pkg/domain"
	derrors "bursary/pkg/domain-errors"
)

// maxConcurrentDocuments bounds the per-run fan-out so one large request
// cannot starve the OCR sidecar.
const maxConcurrentDocuments = 4

// documentRun is everything the pipeline produced for one document.
type documentRun struct {
	analysis models.DocumentAnalysis
	validity *models.ValidityResult
	fraud    *models.FraudResult
}

// VerifyRequest runs the full pipeline over every uploaded document, decides,
// generates the report, persists both, and publishes the decision event.
func (s *Service) VerifyRequest(ctx context.Context, reqID id.RequestID) (*models.RunResult, error) {
	ctx, span := tracer.Start(ctx, "verification.run")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", reqID.String()))

	start := time.Now()
	req, err := s.store.GetRequest(ctx, reqID)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocuments(ctx, reqID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, derrors.New(derrors.CodeInvalidInput, "request has no documents to verify")
	}

	runs, runErr := s.runDocuments(ctx, reqID, docs, req.Subject)

	results := s.aggregate(runs, docs)
	var dec models.Decision
	if runErr != nil {
		s.logger.ErrorContext(ctx, "verification run fault",
			"request_id", reqID.String(), "error", runErr)
		dec = decision.ErrorDecision("Internal error during document verification")
	} else {
		dec = s.engine.Decide(results)
	}
	rep := s.reports.Generate(reqID, results, dec)

	if err := s.store.SaveReport(ctx, &rep); err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, reqID, requestStatusFor(dec), dec.ReviewPriority); err != nil {
		return nil, err
	}
	s.recordHistory(ctx, reqID, req.Subject.ID, runs)
	s.publishDecision(ctx, reqID, dec)

	s.metrics.IncrementRunOutcome(string(dec.Action))
	s.metrics.ObserveRunLatency(time.Since(start))
	s.observeCheckConfidences(results)
	s.logger.InfoContext(ctx, "verification run completed",
		"request_id", reqID.String(),
		"action", string(dec.Action),
		"confidence", dec.Confidence,
		"documents", len(docs))
	span.SetAttributes(
		attribute.String("decision.action", string(dec.Action)),
		attribute.Float64("decision.confidence", dec.Confidence),
	)

	analyses := make([]models.DocumentAnalysis, 0, len(runs))
	for _, run := range runs {
		analyses = append(analyses, run.analysis)
	}
	return &models.RunResult{
		RequestID: reqID,
		Analyses:  analyses,
		Results:   results,
		Decision:  dec,
		Report:    rep,
	}, nil
}

// runDocuments fans out the per-document pipeline. A failed document is
// captured in its analysis and never aborts the others; a panic anywhere in
// the pipeline surfaces as the returned error so the caller can degrade the
// run to an error decision instead of crashing.
func (s *Service) runDocuments(ctx context.Context, reqID id.RequestID, docs []*models.Document, subject models.Subject) ([]documentRun, error) {
	runs := make([]documentRun, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDocuments)
	for i, doc := range docs {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("document %s: panic: %v", doc.ID.String(), r)
				}
			}()
			runs[i] = s.runDocument(ctx, reqID, doc, subject)
			return nil
		})
	}
	return runs, g.Wait()
}

func (s *Service) runDocument(ctx context.Context, reqID id.RequestID, doc *models.Document, subject models.Subject) documentRun {
	ctx, span := tracer.Start(ctx, "verification.document")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", doc.ID.String()),
		attribute.String("document.type", doc.Type),
	)

	analysis := s.analyzeDocument(ctx, doc, subject)
	run := documentRun{analysis: analysis}
	if analysis.Extracted == nil {
		return run
	}

	validityResult := s.validity.Verify(*analysis.Extracted, s.requirements)
	run.validity = &validityResult

	entries, err := s.history.List(ctx, subject.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "history lookup failed, fraud check runs without history",
			"document_id", doc.ID.String(), "error", err)
	}
	// A re-run must not collide with its own earlier extractions.
	history := make([]models.ExtractedDocument, 0, len(entries))
	for _, entry := range entries {
		if entry.RequestID != reqID {
			history = append(history, entry.Extracted)
		}
	}
	fraudResult := s.fraud.Detect(*analysis.Extracted, history)
	run.fraud = &fraudResult
	return run
}

// analyzeDocument runs extraction plus the per-document checks that need the
// raw content: identity and authenticity.
func (s *Service) analyzeDocument(ctx context.Context, doc *models.Document, subject models.Subject) models.DocumentAnalysis {
	analysis := models.DocumentAnalysis{
		DocumentID:   doc.ID,
		DocumentName: doc.Filename,
		DocumentType: doc.Type,
	}

	extracted := s.extractor.Extract(ctx, doc.Content, doc.Extension)
	s.metrics.IncrementExtraction(string(extracted.Method))
	if extracted.Method == models.MethodError {
		analysis.Err = fmt.Sprintf("extraction failed for %s", doc.Filename)
		return analysis
	}
	analysis.Extracted = &extracted

	identityResult := s.identity.Verify(extracted, subject)
	analysis.Identity = &identityResult

	authenticityResult := s.authenticity.Verify(doc.Content, doc.Extension, extracted)
	analysis.Authenticity = &authenticityResult
	return analysis
}

// aggregate folds per-document results into one representative result per
// check. The representative is the lowest-confidence result of its kind, so a
// single bad document drags the whole request down.
func (s *Service) aggregate(runs []documentRun, docs []*models.Document) models.CheckResults {
	// Checks that never ran contribute zero confidence, so a request whose
	// documents all failed extraction cannot score its way past review. Fraud
	// is the exception: no extractions means nothing to flag, so it stays at
	// its clean value.
	results := models.CheckResults{
		Identity:     models.IdentityResult{Status: models.StatusPending},
		Authenticity: models.AuthenticityResult{Status: models.StatusPending},
		Validity:     models.ValidityResult{Status: models.StatusPending},
		Fraud:        models.FraudResult{Status: models.StatusPending, RiskLevel: models.RiskLow, Confidence: 1},
	}

	var sawIdentity, sawAuthenticity, sawValidity, sawFraud bool
	for _, run := range runs {
		if run.analysis.Err != "" {
			results.Identity = models.IdentityResult{
				Status:     models.StatusError,
				Confidence: 0,
				Issues:     []string{run.analysis.Err},
			}
			sawIdentity = true
			continue
		}
		if r := run.analysis.Identity; r != nil && (!sawIdentity || r.Confidence < results.Identity.Confidence) {
			results.Identity = *r
			sawIdentity = true
		}
		if r := run.analysis.Authenticity; r != nil && (!sawAuthenticity || r.Confidence < results.Authenticity.Confidence) {
			results.Authenticity = *r
			sawAuthenticity = true
		}
		if r := run.validity; r != nil && (!sawValidity || r.Confidence < results.Validity.Confidence) {
			results.Validity = *r
			sawValidity = true
		}
		if r := run.fraud; r != nil && (!sawFraud || r.Confidence < results.Fraud.Confidence) {
			results.Fraud = *r
			sawFraud = true
		}
	}

	uploaded := make([]string, 0, len(docs))
	for _, doc := range docs {
		uploaded = append(uploaded, doc.Type)
	}
	results.Completeness = s.completeness.Check(uploaded, s.requiredDocs)
	return results
}

// recordHistory appends every successful extraction so future submissions can
// be compared against it. Failures are logged, never fatal.
func (s *Service) recordHistory(ctx context.Context, reqID id.RequestID, subject id.SubjectID, runs []documentRun) {
	for _, run := range runs {
		if run.analysis.Extracted == nil {
			continue
		}
		entry := models.HistoryEntry{RequestID: reqID, Extracted: *run.analysis.Extracted}
		if err := s.history.Append(ctx, subject, entry); err != nil {
			s.logger.WarnContext(ctx, "history append failed",
				"subject_id", subject.String(), "error", err)
		}
	}
}

// publishDecision emits the decision event. Publish failures are logged and
// never fail the run.
func (s *Service) publishDecision(ctx context.Context, reqID id.RequestID, dec models.Decision) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDecision(ctx, reqID, dec); err != nil {
		s.logger.ErrorContext(ctx, "decision publish failed",
			"request_id", reqID.String(), "error", err)
	}
}

func (s *Service) observeCheckConfidences(results models.CheckResults) {
	s.metrics.ObserveCheckConfidence("identity", results.Identity.Confidence)
	s.metrics.ObserveCheckConfidence("authenticity", results.Authenticity.Confidence)
	s.metrics.ObserveCheckConfidence("validity", results.Validity.Confidence)
	s.metrics.ObserveCheckConfidence("completeness", results.Completeness.Confidence)
	s.metrics.ObserveCheckConfidence("fraud", results.Fraud.Confidence)
}

// requestStatusFor maps the decision action onto the request lifecycle. Review
// and error outcomes both land in the human queue.
func requestStatusFor(dec models.Decision) models.RequestStatus {
	switch dec.Action {
	case models.ActionApprove:
		return models.RequestApproved
	case models.ActionReject:
		return models.RequestRejected
	default:
		return models.RequestUnderReview
	}
}
