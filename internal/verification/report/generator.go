// Package report renders a decision plus all check results into the
// verification report handed to external consumers.
package report

import (
	"time"

	"bursary/internal/verification/models"
	"bursary/internal/verification/ports"
	id "bursary/pkg/domain"
)

// Generator builds verification reports. The clock is injected so report
// timestamps are deterministic under test.
type Generator struct {
	now ports.Clock
}

func New(now ports.Clock) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Generate summarizes each check and attaches the next-action template for
// the decided action.
func (g *Generator) Generate(reqID id.RequestID, results models.CheckResults, decision models.Decision) models.VerificationReport {
	return models.VerificationReport{
		RequestID:     reqID,
		GeneratedAt:   g.now().UTC(),
		OverallStatus: decision.Action,
		Confidence:    decision.Confidence,
		Summary: map[string]models.CheckSummary{
			"identity": {
				Status:      results.Identity.Status,
				Confidence:  results.Identity.Confidence,
				IssuesCount: len(results.Identity.Issues),
			},
			"authenticity": {
				Status:      results.Authenticity.Status,
				Confidence:  results.Authenticity.Confidence,
				IssuesCount: len(results.Authenticity.Issues),
			},
			"validity": {
				Status:      results.Validity.Status,
				Confidence:  results.Validity.Confidence,
				IssuesCount: len(results.Validity.Issues),
			},
			"completeness": {
				Status:      results.Completeness.Status,
				Confidence:  results.Completeness.Confidence,
				IssuesCount: len(results.Completeness.Issues),
			},
			"fraud": {
				Status:      results.Fraud.Status,
				Confidence:  results.Fraud.Confidence,
				IssuesCount: len(results.Fraud.Issues()),
			},
		},
		Details:        results,
		Recommendation: decision.Reason,
		NextActions:    nextActions(decision.Action),
	}
}

// nextActions is a fixed template keyed by decision action.
func nextActions(action models.DecisionAction) []string {
	switch action {
	case models.ActionApprove:
		return []string{
			"Send approval notification to student",
			"Process scholarship disbursement",
			"Update request status to approved",
		}
	case models.ActionReject:
		return []string{
			"Send rejection notification with reasons",
			"Allow resubmission with corrections",
			"Update request status to rejected",
		}
	default:
		return []string{
			"Assign to admin reviewer",
			"Notify admin of review priority",
			"Highlight specific issues for manual check",
		}
	}
}
