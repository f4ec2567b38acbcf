// Package models defines the data contracts of the verification pipeline:
// extraction output, per-check results, the aggregated decision, and the
// report handed back to callers for persistence.
package models

import (
	"time"

	id "bursary/pkg/domain"
)

// ExtractionMethod records how document text was obtained.
type ExtractionMethod string

const (
	MethodPDFText ExtractionMethod = "pdf_text_extraction"
	MethodOCRPDF  ExtractionMethod = "ocr_pdf"
	MethodOCRImg  ExtractionMethod = "ocr_image"
	MethodDOCX    ExtractionMethod = "docx_extraction"
	MethodXLSX    ExtractionMethod = "xlsx_extraction"
	MethodText    ExtractionMethod = "text_extraction"
	MethodError   ExtractionMethod = "error"
	MethodNone    ExtractionMethod = "none"
)

// IsValid checks if the extraction method is one of the supported enum values.
func (m ExtractionMethod) IsValid() bool {
	switch m {
	case MethodPDFText, MethodOCRPDF, MethodOCRImg, MethodDOCX, MethodXLSX, MethodText, MethodError, MethodNone:
		return true
	}
	return false
}

func (m ExtractionMethod) String() string {
	return string(m)
}

// StructuredFields holds the labeled values parsed out of free document text.
// Absent fields stay at their zero value; Dates and Amounts collect every
// pattern match in document order.
type StructuredFields struct {
	Name       string   `json:"name,omitempty"`
	StudentID  string   `json:"student_id,omitempty"`
	Dates      []string `json:"dates,omitempty"`
	Amounts    []string `json:"amounts,omitempty"`
	Grade      string   `json:"grade,omitempty"`
	Department string   `json:"department,omitempty"`
	Year       string   `json:"year,omitempty"`
}

// IsEmpty reports whether parsing found nothing at all.
func (f StructuredFields) IsEmpty() bool {
	return f.Name == "" && f.StudentID == "" && len(f.Dates) == 0 &&
		len(f.Amounts) == 0 && f.Grade == "" && f.Department == "" && f.Year == ""
}

// ExtractedDocument is the immutable output of text extraction for one
// uploaded document. Created once per verification run and never mutated.
type ExtractedDocument struct {
	Text        string           `json:"text"`
	Confidence  float64          `json:"confidence"`
	Method      ExtractionMethod `json:"method"`
	Fields      StructuredFields `json:"structured_fields"`
	ContentHash string           `json:"content_hash,omitempty"`
}

// HistoryEntry is one recorded extraction together with the request that
// produced it, so a re-run can skip its own prior extractions.
type HistoryEntry struct {
	RequestID id.RequestID      `json:"request_id"`
	Extracted ExtractedDocument `json:"extracted"`
}

// Subject is the student record the document is verified against. It comes
// from the external user store; the core never looks students up itself.
type Subject struct {
	ID         id.SubjectID `json:"id"`
	FullName   string       `json:"full_name"`
	StudentID  string       `json:"student_id"`
	Department string       `json:"department"`
	Email      string       `json:"email"`
}

// Requirements are the eligibility thresholds a request is checked against.
type Requirements struct {
	MinGrade  float64 `json:"min_grade"`
	MaxIncome float64 `json:"max_income"`
}

// CheckStatus is the shared status vocabulary across all five checkers. Each
// checker uses the subset documented on its verifier.
type CheckStatus string

const (
	StatusPending           CheckStatus = "pending"
	StatusVerified          CheckStatus = "verified"
	StatusReviewRequired    CheckStatus = "review_required"
	StatusFailed            CheckStatus = "failed"
	StatusSuspicious        CheckStatus = "suspicious"
	StatusValid             CheckStatus = "valid"
	StatusInvalid           CheckStatus = "invalid"
	StatusComplete          CheckStatus = "complete"
	StatusMostlyComplete    CheckStatus = "mostly_complete"
	StatusIncomplete        CheckStatus = "incomplete"
	StatusPassed            CheckStatus = "passed"
	StatusRequiresReview    CheckStatus = "requires_review"
	StatusReviewRecommended CheckStatus = "review_recommended"
	StatusError             CheckStatus = "error"
)

func (s CheckStatus) String() string {
	return string(s)
}

// FieldComparison records one field matched (or not) between a document and
// the subject record.
type FieldComparison struct {
	Document   string  `json:"document"`
	Database   string  `json:"database"`
	Confidence float64 `json:"confidence"`
}

// IdentityResult is the outcome of matching extracted fields against the
// subject record.
type IdentityResult struct {
	Status     CheckStatus                `json:"status"`
	Confidence float64                    `json:"confidence"`
	Matches    map[string]FieldComparison `json:"matches"`
	Mismatches map[string]FieldComparison `json:"mismatches"`
	Issues     []string                   `json:"issues"`
}

// AuthenticityResult is the outcome of visual and OCR-confidence heuristics.
type AuthenticityResult struct {
	Status            CheckStatus `json:"status"`
	Confidence        float64     `json:"confidence"`
	StampDetected     bool        `json:"stamp_detected"`
	SignatureDetected bool        `json:"signature_detected"`
	ImageQuality      float64     `json:"image_quality"`
	OCRConfidence     float64     `json:"ocr_confidence"`
	Issues            []string    `json:"issues"`
}

// RequirementCheck records a single numeric eligibility comparison.
type RequirementCheck struct {
	Met      bool    `json:"met"`
	Value    float64 `json:"value"`
	Required float64 `json:"required"`
}

// ValidityResult is the outcome of checking extracted data against the
// scholarship requirements.
type ValidityResult struct {
	Status     CheckStatus                 `json:"status"`
	Confidence float64                     `json:"confidence"`
	Checks     map[string]RequirementCheck `json:"checks"`
	Issues     []string                    `json:"issues"`
	Warnings   []string                    `json:"warnings"`
}

// CompletenessResult is the outcome of comparing uploaded document types
// against the required set.
type CompletenessResult struct {
	Status     CheckStatus `json:"status"`
	Confidence float64     `json:"confidence"`
	Present    []string    `json:"present"`
	Missing    []string    `json:"missing"`
	Issues     []string    `json:"issues"`
}

// RiskLevel grades the fraud detector's overall suspicion.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) String() string {
	return string(r)
}

// FraudResult is the outcome of duplicate and anomaly heuristics.
type FraudResult struct {
	Status      CheckStatus `json:"status"`
	RiskLevel   RiskLevel   `json:"risk_level"`
	Confidence  float64     `json:"confidence"`
	IsDuplicate bool        `json:"is_duplicate"`
	RedFlags    []string    `json:"red_flags"`
	Anomalies   []string    `json:"anomalies"`
	Warnings    []string    `json:"warnings"`
}

// Issues lists red flags first so callers can render the most severe
// findings at the top.
func (f FraudResult) Issues() []string {
	out := make([]string, 0, len(f.RedFlags)+len(f.Anomalies))
	out = append(out, f.RedFlags...)
	out = append(out, f.Anomalies...)
	return out
}

// CheckResults bundles the request-level representative result of each of the
// five checks. The decision engine consumes exactly this.
type CheckResults struct {
	Identity     IdentityResult     `json:"identity"`
	Authenticity AuthenticityResult `json:"authenticity"`
	Validity     ValidityResult     `json:"validity"`
	Completeness CompletenessResult `json:"completeness"`
	Fraud        FraudResult        `json:"fraud"`
}

// DecisionAction enumerates the possible aggregated outcomes of a run.
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
	ActionReview  DecisionAction = "review"
	ActionError   DecisionAction = "error"
	ActionPending DecisionAction = "pending"
)

// IsValid checks if the action is one of the supported enum values.
func (a DecisionAction) IsValid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionReview, ActionError, ActionPending:
		return true
	}
	return false
}

func (a DecisionAction) String() string {
	return string(a)
}

// ReviewPriority is the queueing hint attached to decisions that need human
// follow-up.
type ReviewPriority string

const (
	PriorityNormal ReviewPriority = "normal"
	PriorityMedium ReviewPriority = "medium"
	PriorityHigh   ReviewPriority = "high"
	PriorityUrgent ReviewPriority = "urgent"
)

func (p ReviewPriority) String() string {
	return string(p)
}

// Decision is the single aggregated outcome of a verification run.
type Decision struct {
	Action         DecisionAction `json:"action"`
	Confidence     float64        `json:"confidence"`
	Reason         string         `json:"reason"`
	RequiresReview bool           `json:"requires_manual_review"`
	ReviewPriority ReviewPriority `json:"review_priority"`
}

// CheckSummary condenses one check for the report.
type CheckSummary struct {
	Status      CheckStatus `json:"status"`
	Confidence  float64     `json:"confidence"`
	IssuesCount int         `json:"issues_count"`
}

// VerificationReport renders a decision plus all check results for external
// consumption.
type VerificationReport struct {
	RequestID      id.RequestID            `json:"request_id"`
	GeneratedAt    time.Time               `json:"generated_at"`
	OverallStatus  DecisionAction          `json:"overall_status"`
	Confidence     float64                 `json:"confidence_score"`
	Summary        map[string]CheckSummary `json:"summary"`
	Details        CheckResults            `json:"details"`
	Recommendation string                  `json:"recommendation"`
	NextActions    []string                `json:"next_actions"`
}

// DocumentAnalysis is the per-document record inside a run. A failed document
// carries Err and empty results; it never aborts the other documents.
type DocumentAnalysis struct {
	DocumentID   id.DocumentID       `json:"document_id"`
	DocumentName string              `json:"document_name"`
	DocumentType string              `json:"document_type"`
	Extracted    *ExtractedDocument  `json:"extracted_data,omitempty"`
	Identity     *IdentityResult     `json:"identity,omitempty"`
	Authenticity *AuthenticityResult `json:"authenticity,omitempty"`
	Err          string              `json:"error,omitempty"`
}

// RequestStatus tracks a verification request through its lifecycle.
type RequestStatus string

const (
	RequestSubmitted   RequestStatus = "submitted"
	RequestUnderReview RequestStatus = "under_review"
	RequestApproved    RequestStatus = "approved"
	RequestRejected    RequestStatus = "rejected"
)

// IsValid checks if the request status is one of the supported enum values.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestSubmitted, RequestUnderReview, RequestApproved, RequestRejected:
		return true
	}
	return false
}

func (s RequestStatus) String() string {
	return string(s)
}

// Request is a scholarship verification request with its subject snapshot.
type Request struct {
	ID            id.RequestID   `json:"id"`
	RequestNumber string         `json:"request_number"`
	Subject       Subject        `json:"subject"`
	Status        RequestStatus  `json:"status"`
	Priority      ReviewPriority `json:"priority"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Document is an uploaded document's metadata plus raw content.
type Document struct {
	ID         id.DocumentID `json:"id"`
	RequestID  id.RequestID  `json:"request_id"`
	Filename   string        `json:"filename"`
	Type       string        `json:"document_type"`
	Extension  string        `json:"extension"`
	Content    []byte        `json:"-"`
	UploadedAt time.Time     `json:"uploaded_at"`
}

// RunResult is everything one verification run produced.
type RunResult struct {
	RequestID id.RequestID       `json:"request_id"`
	Analyses  []DocumentAnalysis `json:"document_analyses"`
	Results   CheckResults       `json:"verification_results"`
	Decision  Decision           `json:"decision"`
	Report    VerificationReport `json:"report"`
}
