package fraud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bursary/internal/verification/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func TestDetect(t *testing.T) {
	d := New(fixedClock)

	t.Run("clean document with no history passes", func(t *testing.T) {
		result := d.Detect(models.ExtractedDocument{
			Fields: models.StructuredFields{Name: "Ravi Kumar", Grade: "8.5"},
		}, nil)

		assert.Equal(t, models.StatusPassed, result.Status)
		assert.Equal(t, models.RiskLow, result.RiskLevel)
		assert.False(t, result.IsDuplicate)
		assert.InDelta(t, 1.0, result.Confidence, 1e-9)
	})

	t.Run("matching fields in history flag a duplicate", func(t *testing.T) {
		fields := models.StructuredFields{Name: "Ravi Kumar", StudentID: "S123456", Grade: "8.5"}
		result := d.Detect(models.ExtractedDocument{Fields: fields},
			[]models.ExtractedDocument{{Fields: fields}})

		assert.True(t, result.IsDuplicate)
		assert.Equal(t, models.RiskHigh, result.RiskLevel)
		assert.Equal(t, models.StatusRequiresReview, result.Status)
		assert.Contains(t, result.RedFlags, "Possible duplicate submission detected")
		assert.InDelta(t, 0.75, result.Confidence, 1e-9)
	})

	t.Run("each matching history entry adds its own red flag", func(t *testing.T) {
		fields := models.StructuredFields{Name: "Ravi Kumar", StudentID: "S123456", Grade: "8.5"}
		result := d.Detect(models.ExtractedDocument{Fields: fields},
			[]models.ExtractedDocument{{Fields: fields}, {Fields: fields}})

		assert.True(t, result.IsDuplicate)
		assert.Len(t, result.RedFlags, 2)
		assert.Equal(t, models.RiskHigh, result.RiskLevel)
		assert.Equal(t, models.StatusRequiresReview, result.Status)
		assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	})

	t.Run("matching content hash flags a duplicate", func(t *testing.T) {
		result := d.Detect(models.ExtractedDocument{ContentHash: "abc123"},
			[]models.ExtractedDocument{{ContentHash: "abc123"}})

		assert.True(t, result.IsDuplicate)
		assert.Equal(t, models.RiskHigh, result.RiskLevel)
	})

	t.Run("future date is a warning only", func(t *testing.T) {
		result := d.Detect(models.ExtractedDocument{
			Fields: models.StructuredFields{Dates: []string{"31/12/2026"}},
		}, nil)

		assert.Equal(t, []string{"Future date detected: 31/12/2026"}, result.Warnings)
		assert.Equal(t, models.StatusPassed, result.Status)
		assert.Equal(t, models.RiskLow, result.RiskLevel)
		assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	})

	t.Run("uniformly round amounts raise a warning", func(t *testing.T) {
		result := d.Detect(models.ExtractedDocument{
			Fields: models.StructuredFields{Amounts: []string{"50,000", "200,000"}},
		}, nil)

		assert.Contains(t, result.Warnings, "All amounts are round numbers - verify authenticity")
	})

	t.Run("a single round amount is not suspicious", func(t *testing.T) {
		result := d.Detect(models.ExtractedDocument{
			Fields: models.StructuredFields{Amounts: []string{"50,000"}},
		}, nil)

		assert.Empty(t, result.Warnings)
	})
}

func TestIsDuplicate(t *testing.T) {
	t.Run("all comparable fields equal", func(t *testing.T) {
		a := models.StructuredFields{Name: "Ravi Kumar", StudentID: "S123456", Grade: "8.5"}
		b := models.StructuredFields{Name: "ravi kumar", StudentID: "s123456", Grade: "8.5"}
		assert.True(t, IsDuplicate(a, b))
	})

	t.Run("two of three matches is below the threshold", func(t *testing.T) {
		a := models.StructuredFields{Name: "Ravi Kumar", StudentID: "S123456", Grade: "8.5"}
		b := models.StructuredFields{Name: "Ravi Kumar", StudentID: "S123456", Grade: "9.0"}
		assert.False(t, IsDuplicate(a, b))
	})

	t.Run("missing fields are skipped, not counted", func(t *testing.T) {
		a := models.StructuredFields{Name: "Ravi Kumar"}
		b := models.StructuredFields{Name: "Ravi Kumar", Grade: "9.0"}
		assert.True(t, IsDuplicate(a, b))
	})

	t.Run("no comparable fields is not a duplicate", func(t *testing.T) {
		assert.False(t, IsDuplicate(models.StructuredFields{}, models.StructuredFields{}))
	})
}
