package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bursary/internal/verification/models"
	id "bursary/pkg/domain"
)

// Redis key prefix for per-subject extraction history
const historyKeyPrefix = "verification:history:"

// RedisHistory is a Redis-backed HistoryStore. Production deployments use it
// so fraud detection sees submissions across all instances.
type RedisHistory struct {
	client *redis.Client
}

func NewRedisHistory(client *redis.Client) *RedisHistory {
	return &RedisHistory{client: client}
}

func (h *RedisHistory) Append(ctx context.Context, subject id.SubjectID, entry models.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	key := historyKeyPrefix + subject.String()

	pipe := h.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -historyWindow, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func (h *RedisHistory) List(ctx context.Context, subject id.SubjectID) ([]models.HistoryEntry, error) {
	key := historyKeyPrefix + subject.String()
	raw, err := h.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	out := make([]models.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}
