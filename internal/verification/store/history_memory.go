package store

import (
	"context"
	"sync"

	"bursary/internal/verification/models"
	id "bursary/pkg/domain"
)

// historyWindow bounds how many prior extractions the fraud detector compares
// against per subject.
const historyWindow = 50

// InMemoryHistory keeps prior extractions per subject in process memory.
type InMemoryHistory struct {
	mu      sync.RWMutex
	entries map[id.SubjectID][]models.HistoryEntry
}

func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{entries: map[id.SubjectID][]models.HistoryEntry{}}
}

func (h *InMemoryHistory) Append(_ context.Context, subject id.SubjectID, entry models.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := append(h.entries[subject], entry)
	if len(list) > historyWindow {
		list = list[len(list)-historyWindow:]
	}
	h.entries[subject] = list
	return nil
}

func (h *InMemoryHistory) List(_ context.Context, subject id.SubjectID) ([]models.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.entries[subject]
	out := make([]models.HistoryEntry, len(list))
	copy(out, list)
	return out, nil
}
