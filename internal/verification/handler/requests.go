package handler

import (
	"strings"

	"bursary/internal/verification/models"
	id "bursary/pkg/domain"
	derrors "bursary/pkg/domain-errors"
)

// SubmitRequest is the HTTP request body for POST /verification/requests.
type SubmitRequest struct {
	SubjectID  string `json:"subject_id"`
	FullName   string `json:"full_name"`
	StudentID  string `json:"student_id"`
	Department string `json:"department"`
	Email      string `json:"email"`
}

// Validate validates and normalizes the request.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return derrors.New(derrors.CodeInvalidInput, "request body is required")
	}
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.FullName = strings.TrimSpace(r.FullName)
	if r.SubjectID == "" {
		return derrors.New(derrors.CodeInvalidInput, "subject_id is required")
	}
	if r.FullName == "" {
		return derrors.New(derrors.CodeInvalidInput, "full_name is required")
	}
	if len(r.FullName) > 200 {
		return derrors.New(derrors.CodeInvalidInput, "full_name must be at most 200 characters")
	}
	return nil
}

// Subject builds the domain subject snapshot.
func (r *SubmitRequest) Subject() models.Subject {
	return models.Subject{
		ID:         id.SubjectID(r.SubjectID),
		FullName:   r.FullName,
		StudentID:  strings.TrimSpace(r.StudentID),
		Department: strings.TrimSpace(r.Department),
		Email:      strings.TrimSpace(r.Email),
	}
}

// ReviewRequest is the HTTP request body for the manual review endpoint.
type ReviewRequest struct {
	Decision string `json:"decision"`
	Reviewer string `json:"reviewer"`

	approved bool
}

// Validate accepts decision values "approve" and "reject".
func (r *ReviewRequest) Validate() error {
	if r == nil {
		return derrors.New(derrors.CodeInvalidInput, "request body is required")
	}
	switch strings.ToLower(strings.TrimSpace(r.Decision)) {
	case "approve":
		r.approved = true
	case "reject":
		r.approved = false
	default:
		return derrors.New(derrors.CodeInvalidInput, `decision must be "approve" or "reject"`)
	}
	r.Reviewer = strings.TrimSpace(r.Reviewer)
	return nil
}

// Approved returns the validated review outcome.
func (r *ReviewRequest) Approved() bool {
	return r.approved
}
