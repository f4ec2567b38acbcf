// Package identity matches extracted document fields against the subject
// record supplied by the external user store.
package identity

import (
	"fmt"
	"strings"

	"bursary/internal/verification/models"
)

const (
	nameMatchThreshold   = 0.8
	departmentConfidence = 0.9

	verifiedThreshold = 0.8
	reviewThreshold   = 0.5
)

// Verifier compares structured fields with a subject record. It is stateless;
// a single instance is safe for concurrent use.
type Verifier struct{}

func New() *Verifier {
	return &Verifier{}
}

// Verify compares name, student ID and department where both sides have a
// value. Fields absent on either side are skipped entirely.
func (v *Verifier) Verify(extracted models.ExtractedDocument, subject models.Subject) models.IdentityResult {
	result := models.IdentityResult{
		Status:     models.StatusPending,
		Matches:    map[string]models.FieldComparison{},
		Mismatches: map[string]models.FieldComparison{},
		Issues:     []string{},
	}

	fields := extracted.Fields

	if fields.Name != "" && subject.FullName != "" {
		docName := strings.ToLower(strings.TrimSpace(fields.Name))
		dbName := strings.ToLower(strings.TrimSpace(subject.FullName))
		similarity := StringSimilarity(docName, dbName)

		cmp := models.FieldComparison{Document: fields.Name, Database: subject.FullName, Confidence: similarity}
		if similarity > nameMatchThreshold {
			result.Matches["name"] = cmp
		} else {
			result.Mismatches["name"] = cmp
			result.Issues = append(result.Issues,
				fmt.Sprintf("Name mismatch: %q vs %q", fields.Name, subject.FullName))
		}
	}

	if fields.StudentID != "" && subject.StudentID != "" {
		cmp := models.FieldComparison{Document: fields.StudentID, Database: subject.StudentID}
		if strings.EqualFold(fields.StudentID, subject.StudentID) {
			cmp.Confidence = 1.0
			result.Matches["student_id"] = cmp
		} else {
			result.Mismatches["student_id"] = cmp
			result.Issues = append(result.Issues,
				fmt.Sprintf("Student ID mismatch: %q vs %q", fields.StudentID, subject.StudentID))
		}
	}

	if fields.Department != "" && subject.Department != "" {
		docDept := strings.ToLower(fields.Department)
		dbDept := strings.ToLower(subject.Department)
		cmp := models.FieldComparison{Document: fields.Department, Database: subject.Department}
		if strings.Contains(dbDept, docDept) || strings.Contains(docDept, dbDept) {
			cmp.Confidence = departmentConfidence
			result.Matches["department"] = cmp
		} else {
			result.Mismatches["department"] = cmp
			result.Issues = append(result.Issues,
				fmt.Sprintf("Department mismatch: %q vs %q", fields.Department, subject.Department))
		}
	}

	total := len(result.Matches) + len(result.Mismatches)
	if total > 0 {
		result.Confidence = float64(len(result.Matches)) / float64(total)
	}

	switch {
	case result.Confidence >= verifiedThreshold:
		result.Status = models.StatusVerified
	case result.Confidence >= reviewThreshold:
		result.Status = models.StatusReviewRequired
	default:
		result.Status = models.StatusFailed
	}

	return result
}

// StringSimilarity is the position-wise character match ratio over the longer
// string, compared rune by rune so accented names line up. It is deliberately
// crude; changing it would change decisions on inputs the pipeline already
// saw, so keep it as documented.
func StringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	matches := 0
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	for i := 0; i < n; i++ {
		if ra[i] == rb[i] {
			matches++
		}
	}

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return float64(matches) / float64(maxLen)
}
