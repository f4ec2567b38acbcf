package handler

import (
	"time"

	"bursary/internal/verification/models"
)

// RequestResponse is the HTTP shape of a verification request.
type RequestResponse struct {
	ID            string    `json:"id"`
	RequestNumber string    `json:"request_number"`
	SubjectID     string    `json:"subject_id"`
	FullName      string    `json:"full_name"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FromRequest converts a domain request to its HTTP shape.
func FromRequest(req *models.Request) *RequestResponse {
	return &RequestResponse{
		ID:            req.ID.String(),
		RequestNumber: req.RequestNumber,
		SubjectID:     req.Subject.ID.String(),
		FullName:      req.Subject.FullName,
		Status:        string(req.Status),
		Priority:      string(req.Priority),
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}
}

// FromRequests converts a listing. Always returns a non-nil slice so the JSON
// is [] rather than null.
func FromRequests(requests []*models.Request) []*RequestResponse {
	out := make([]*RequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, FromRequest(req))
	}
	return out
}

// UploadResponse is the HTTP response for a document upload: stored metadata
// plus the advisory per-document analysis.
type UploadResponse struct {
	DocumentID   string                   `json:"document_id"`
	Filename     string                   `json:"filename"`
	DocumentType string                   `json:"document_type"`
	UploadedAt   time.Time                `json:"uploaded_at"`
	Analysis     *models.DocumentAnalysis `json:"analysis"`
}

// FromUpload converts an upload outcome to its HTTP shape.
func FromUpload(doc *models.Document, analysis *models.DocumentAnalysis) *UploadResponse {
	return &UploadResponse{
		DocumentID:   doc.ID.String(),
		Filename:     doc.Filename,
		DocumentType: doc.Type,
		UploadedAt:   doc.UploadedAt,
		Analysis:     analysis,
	}
}

// RunResponse is the HTTP response for a full verification run.
type RunResponse struct {
	RequestID string                    `json:"request_id"`
	Decision  models.Decision           `json:"decision"`
	Results   models.CheckResults       `json:"verification_results"`
	Analyses  []models.DocumentAnalysis `json:"document_analyses"`
	Report    models.VerificationReport `json:"report"`
}

// FromRunResult converts a run result to its HTTP shape.
func FromRunResult(result *models.RunResult) *RunResponse {
	return &RunResponse{
		RequestID: result.RequestID.String(),
		Decision:  result.Decision,
		Results:   result.Results,
		Analyses:  result.Analyses,
		Report:    result.Report,
	}
}
