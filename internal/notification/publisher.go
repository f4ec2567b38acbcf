// Package notification emits decision events to downstream consumers
// (disbursement, student portal). Publish failures never fail a verification
// run; the caller logs and moves on.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"bursary/internal/verification/models"
	id "bursary/pkg/domain"
)

// DecisionEvent is the wire format of a published decision.
type DecisionEvent struct {
	RequestID      string    `json:"request_id"`
	Action         string    `json:"action"`
	Confidence     float64   `json:"confidence"`
	Reason         string    `json:"reason"`
	RequiresReview bool      `json:"requires_review"`
	ReviewPriority string    `json:"review_priority"`
	PublishedAt    time.Time `json:"published_at"`
}

// KafkaPublisher publishes decision events to a Kafka topic.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects to the brokers and ensures the topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// PublishDecision produces one event keyed by request ID, so per-request
// ordering is preserved.
func (p *KafkaPublisher) PublishDecision(ctx context.Context, reqID id.RequestID, decision models.Decision) error {
	event := DecisionEvent{
		RequestID:      reqID.String(),
		Action:         string(decision.Action),
		Confidence:     decision.Confidence,
		Reason:         decision.Reason,
		RequiresReview: decision.RequiresReview,
		ReviewPriority: string(decision.ReviewPriority),
		PublishedAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal decision event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(reqID.String()),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce decision event: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// MemoryPublisher records events in memory for tests and single-node dev.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []DecisionEvent
}

func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) PublishDecision(_ context.Context, reqID id.RequestID, decision models.Decision) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, DecisionEvent{
		RequestID:      reqID.String(),
		Action:         string(decision.Action),
		Confidence:     decision.Confidence,
		Reason:         decision.Reason,
		RequiresReview: decision.RequiresReview,
		ReviewPriority: string(decision.ReviewPriority),
		PublishedAt:    time.Now().UTC(),
	})
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []DecisionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]DecisionEvent, len(p.events))
	copy(out, p.events)
	return out
}
