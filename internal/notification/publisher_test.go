package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bursary/internal/verification/models"
	id "bursary/pkg/domain"
)

func TestMemoryPublisher(t *testing.T) {
	ctx := context.Background()
	pub := NewMemory()

	assert.Empty(t, pub.Events())

	reqID := id.NewRequestID()
	decision := models.Decision{
		Action:         models.ActionApprove,
		Confidence:     0.92,
		Reason:         "All verification checks passed successfully",
		ReviewPriority: models.PriorityNormal,
	}
	require.NoError(t, pub.PublishDecision(ctx, reqID, decision))

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, reqID.String(), events[0].RequestID)
	assert.Equal(t, "approve", events[0].Action)
	assert.InDelta(t, 0.92, events[0].Confidence, 1e-9)
	assert.Equal(t, "normal", events[0].ReviewPriority)
	assert.False(t, events[0].PublishedAt.IsZero())

	// Events returns a copy.
	events[0].Action = "mutated"
	assert.Equal(t, "approve", pub.Events()[0].Action)
}

func TestNewKafkaValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewKafka(ctx, nil, "bursary.verification.decisions")
	assert.Error(t, err)

	_, err = NewKafka(ctx, []string{"localhost:9092"}, "")
	assert.Error(t, err)
}
