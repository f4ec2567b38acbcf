// Package decision aggregates the five verification check results into one
// approve/reject/review decision. The rules are centralized here so the
// aggregation contract stays testable in isolation.
package decision

import (
	"strings"

	"bursary/internal/verification/models"
)

// Check weights for the aggregate confidence. They sum to 1.0.
const (
	identityWeight     = 0.25
	authenticityWeight = 0.20
	validityWeight     = 0.25
	completenessWeight = 0.15
	fraudWeight        = 0.15

	approveThreshold = 0.8
	reviewThreshold  = 0.6
)

// Engine computes decisions. Stateless and safe for concurrent use.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Decide applies the aggregation policy. Critical failures short-circuit to a
// rejection before the weighted score is considered; the engine itself cannot
// fail, and callers map any surrounding fault to ErrorDecision.
func (e *Engine) Decide(results models.CheckResults) models.Decision {
	confidence := identityWeight*results.Identity.Confidence +
		authenticityWeight*results.Authenticity.Confidence +
		validityWeight*results.Validity.Confidence +
		completenessWeight*results.Completeness.Confidence +
		fraudWeight*results.Fraud.Confidence

	if critical := criticalFailures(results); len(critical) > 0 {
		return models.Decision{
			Action:         models.ActionReject,
			Confidence:     confidence,
			Reason:         strings.Join(critical, "; "),
			RequiresReview: true,
			ReviewPriority: models.PriorityHigh,
		}
	}

	switch {
	case confidence >= approveThreshold:
		return models.Decision{
			Action:         models.ActionApprove,
			Confidence:     confidence,
			Reason:         "All verification checks passed successfully",
			ReviewPriority: models.PriorityNormal,
		}
	case confidence >= reviewThreshold:
		return models.Decision{
			Action:         models.ActionReview,
			Confidence:     confidence,
			Reason:         "Some verification checks require manual review",
			RequiresReview: true,
			ReviewPriority: models.PriorityMedium,
		}
	default:
		return models.Decision{
			Action:         models.ActionReview,
			Confidence:     confidence,
			Reason:         "Multiple verification checks failed or incomplete",
			RequiresReview: true,
			ReviewPriority: models.PriorityHigh,
		}
	}
}

// criticalFailures lists every condition severe enough to force rejection
// independent of the weighted score.
func criticalFailures(results models.CheckResults) []string {
	var critical []string
	if results.Identity.Status == models.StatusFailed {
		critical = append(critical, "Identity verification failed")
	}
	if results.Authenticity.Status == models.StatusSuspicious {
		critical = append(critical, "Document authenticity suspicious")
	}
	if results.Validity.Status == models.StatusInvalid {
		critical = append(critical, "Eligibility criteria not met")
	}
	if results.Completeness.Status == models.StatusIncomplete {
		critical = append(critical, "Required documents missing")
	}
	if results.Fraud.RiskLevel == models.RiskHigh {
		critical = append(critical, "High fraud risk detected")
	}
	return critical
}

// ErrorDecision is the fail-safe outcome for an internal fault during
// aggregation: never approve, escalate to an urgent manual review.
func ErrorDecision(reason string) models.Decision {
	return models.Decision{
		Action:         models.ActionError,
		Reason:         reason,
		RequiresReview: true,
		ReviewPriority: models.PriorityUrgent,
	}
}
