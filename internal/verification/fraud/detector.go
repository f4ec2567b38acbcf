// Package fraud applies duplicate and anomaly heuristics against extraction
// history. The heuristics are deliberately crude; their thresholds and
// formulas are part of the pipeline's observable behavior and must not be
// silently strengthened.
package fraud

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bursary/internal/verification/models"
	"bursary/internal/verification/ports"
	"bursary/internal/verification/validity"
)

const (
	duplicateThreshold = 0.8

	redFlagWeight = 0.5
	anomalyWeight = 0.3
	warningWeight = 0.1

	highRiskScore   = 1.0
	mediumRiskScore = 0.5
)

// Detector evaluates an extraction against the subject's document history.
type Detector struct {
	now ports.Clock
}

func New(now ports.Clock) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{now: now}
}

// Detect runs the duplicate, date-anomaly, and amount-anomaly checks and
// grades an overall risk level.
func (d *Detector) Detect(extracted models.ExtractedDocument, history []models.ExtractedDocument) models.FraudResult {
	result := models.FraudResult{
		Status:    models.StatusPending,
		RiskLevel: models.RiskLow,
		RedFlags:  []string{},
		Anomalies: []string{},
		Warnings:  []string{},
	}

	// Every matching past document adds its own red flag, so repeat offenders
	// score worse than a single collision.
	for _, past := range history {
		if IsDuplicate(extracted.Fields, past.Fields) ||
			(extracted.ContentHash != "" && extracted.ContentHash == past.ContentHash) {
			result.IsDuplicate = true
			result.RedFlags = append(result.RedFlags, "Possible duplicate submission detected")
		}
	}

	now := d.now()
	for _, dateStr := range extracted.Fields.Dates {
		if parsed, ok := validity.ParseDate(dateStr); ok && parsed.After(now) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Future date detected: %s", dateStr))
		}
	}

	if amounts := parseAmounts(extracted.Fields.Amounts); len(amounts) > 1 {
		allRound := true
		for _, amount := range amounts {
			if math.Mod(amount, 1000) != 0 {
				allRound = false
				break
			}
		}
		if allRound {
			result.Warnings = append(result.Warnings, "All amounts are round numbers - verify authenticity")
		}
	}

	score := redFlagWeight*float64(len(result.RedFlags)) +
		anomalyWeight*float64(len(result.Anomalies)) +
		warningWeight*float64(len(result.Warnings))

	switch {
	case score > highRiskScore:
		result.RiskLevel = models.RiskHigh
		result.Status = models.StatusRequiresReview
	case score > mediumRiskScore:
		result.RiskLevel = models.RiskMedium
		result.Status = models.StatusReviewRecommended
	default:
		result.RiskLevel = models.RiskLow
		result.Status = models.StatusPassed
	}
	// A duplicate pins the risk high regardless of the weighted score.
	if result.IsDuplicate {
		result.RiskLevel = models.RiskHigh
		result.Status = models.StatusRequiresReview
	}

	normalized := score / 2.0
	if normalized > 1.0 {
		normalized = 1.0
	}
	result.Confidence = 1.0 - normalized

	return result
}

// IsDuplicate compares the name, student_id, and grade fields of two
// extractions; the equality ratio over comparable fields must exceed 0.8.
func IsDuplicate(a, b models.StructuredFields) bool {
	matches := 0
	comparisons := 0

	compare := func(x, y string) {
		if x == "" || y == "" {
			return
		}
		comparisons++
		if strings.EqualFold(x, y) {
			matches++
		}
	}
	compare(a.Name, b.Name)
	compare(a.StudentID, b.StudentID)
	compare(a.Grade, b.Grade)

	if comparisons == 0 {
		return false
	}
	return float64(matches)/float64(comparisons) > duplicateThreshold
}

func parseAmounts(raw []string) []float64 {
	out := make([]float64, 0, len(raw))
	for _, s := range raw {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}
