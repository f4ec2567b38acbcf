// Package validity checks extracted data against the scholarship's
// eligibility thresholds and validates document dates.
package validity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bursary/internal/verification/models"
	"bursary/internal/verification/ports"
)

const (
	validThreshold  = 0.8
	reviewThreshold = 0.5

	// neutralConfidence applies when no numeric requirement is checkable.
	neutralConfidence = 0.5

	maxDocumentAge = 10 * 365 * 24 * time.Hour
)

// dateFormats are the layouts a document date may use, tried in order.
var dateFormats = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-1-2",
	"1/2/2006",
}

// Verifier evaluates grade, income, and date validity. The clock is injected
// so future-date checks are deterministic under test.
type Verifier struct {
	now ports.Clock
}

func New(now ports.Clock) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{now: now}
}

// Verify runs the numeric requirement checks plus date validation.
// Requirement checks only apply when both the document field and the
// threshold are present.
func (v *Verifier) Verify(extracted models.ExtractedDocument, reqs models.Requirements) models.ValidityResult {
	result := models.ValidityResult{
		Status:   models.StatusPending,
		Checks:   map[string]models.RequirementCheck{},
		Issues:   []string{},
		Warnings: []string{},
	}

	fields := extracted.Fields

	if fields.Grade != "" && reqs.MinGrade > 0 {
		grade, err := strconv.ParseFloat(fields.Grade, 64)
		if err != nil {
			result.Status = models.StatusError
			result.Confidence = neutralConfidence
			result.Issues = append(result.Issues,
				fmt.Sprintf("Validity check error: unparsable grade %q", fields.Grade))
			return result
		}

		check := models.RequirementCheck{Met: grade >= reqs.MinGrade, Value: grade, Required: reqs.MinGrade}
		result.Checks["grade_requirement"] = check
		if !check.Met {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Grade %v below minimum requirement %v", grade, reqs.MinGrade))
		}
	}

	if len(fields.Amounts) > 0 && reqs.MaxIncome > 0 {
		// The largest amount on the document is assumed to be annual income.
		income := maxAmount(fields.Amounts)
		check := models.RequirementCheck{Met: income <= reqs.MaxIncome, Value: income, Required: reqs.MaxIncome}
		result.Checks["income_requirement"] = check
		if !check.Met {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Income %v exceeds maximum %v", income, reqs.MaxIncome))
		}
	}

	now := v.now()
	for _, dateStr := range fields.Dates {
		parsed, ok := ParseDate(dateStr)
		switch {
		case !ok:
			result.Issues = append(result.Issues, fmt.Sprintf("Invalid date format: %s", dateStr))
		case parsed.After(now):
			result.Issues = append(result.Issues, fmt.Sprintf("Future date detected: %s", dateStr))
		case parsed.Before(now.Add(-maxDocumentAge)):
			result.Warnings = append(result.Warnings, fmt.Sprintf("Very old date: %s", dateStr))
		}
	}

	if len(result.Checks) > 0 {
		met := 0
		for _, check := range result.Checks {
			if check.Met {
				met++
			}
		}
		result.Confidence = float64(met) / float64(len(result.Checks))
	} else {
		result.Confidence = neutralConfidence
	}

	switch {
	case result.Confidence >= validThreshold && len(result.Issues) == 0:
		result.Status = models.StatusValid
	case result.Confidence >= reviewThreshold:
		result.Status = models.StatusReviewRequired
	default:
		result.Status = models.StatusInvalid
	}

	return result
}

// ParseDate tries each accepted layout in order.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func maxAmount(amounts []string) float64 {
	var max float64
	for _, raw := range amounts {
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			continue
		}
		if value > max {
			max = value
		}
	}
	return max
}
