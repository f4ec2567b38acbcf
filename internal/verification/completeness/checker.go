// Package completeness verifies that every required document type has been
// uploaded for a request.
package completeness

import (
	"fmt"
	"strings"

	"bursary/internal/verification/models"
)

const mostlyCompleteThreshold = 0.7

// Checker compares uploaded document type labels against the required set.
// Stateless and safe for concurrent use.
type Checker struct{}

func New() *Checker {
	return &Checker{}
}

// Check computes present/missing sets with case-insensitive membership.
// An empty required list counts as complete.
func (c *Checker) Check(uploadedTypes, requiredTypes []string) models.CompletenessResult {
	result := models.CompletenessResult{
		Status:  models.StatusPending,
		Present: []string{},
		Missing: []string{},
		Issues:  []string{},
	}

	uploaded := make(map[string]struct{}, len(uploadedTypes))
	for _, t := range uploadedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			uploaded[t] = struct{}{}
		}
	}

	for _, required := range requiredTypes {
		if _, ok := uploaded[strings.ToLower(required)]; ok {
			result.Present = append(result.Present, required)
		} else {
			result.Missing = append(result.Missing, required)
			result.Issues = append(result.Issues, fmt.Sprintf("Missing required document: %s", required))
		}
	}

	if len(requiredTypes) > 0 {
		result.Confidence = float64(len(result.Present)) / float64(len(requiredTypes))
	} else {
		result.Confidence = 1.0
	}

	switch {
	case result.Confidence == 1.0:
		result.Status = models.StatusComplete
	case result.Confidence >= mostlyCompleteThreshold:
		result.Status = models.StatusMostlyComplete
	default:
		result.Status = models.StatusIncomplete
	}

	return result
}
