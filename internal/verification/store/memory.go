// Package store persists verification requests, documents, and reports.
// The in-memory implementations back tests and single-node development; the
// PostgreSQL and Redis implementations back production deployments.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"bursary/internal/verification/models"
	"bursary/internal/verification/ports"
	id "bursary/pkg/domain"
	derrors "bursary/pkg/domain-errors"
)

// InMemoryStore is a mutex-guarded RequestStore for tests and development.
type InMemoryStore struct {
	mu        sync.RWMutex
	now       ports.Clock
	requests  map[id.RequestID]*models.Request
	documents map[id.RequestID][]*models.Document
	reports   map[id.RequestID]*models.VerificationReport
}

// NewInMemoryStore builds an empty store. A nil clock falls back to time.Now.
func NewInMemoryStore(now ports.Clock) *InMemoryStore {
	if now == nil {
		now = time.Now
	}
	return &InMemoryStore{
		now:       now,
		requests:  map[id.RequestID]*models.Request{},
		documents: map[id.RequestID][]*models.Document{},
		reports:   map[id.RequestID]*models.VerificationReport{},
	}
}

func (s *InMemoryStore) CreateRequest(_ context.Context, req *models.Request) error {
	if req == nil {
		return derrors.New(derrors.CodeInvalidInput, "request is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return derrors.New(derrors.CodeConflict, "request already exists")
	}
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *InMemoryStore) GetRequest(_ context.Context, reqID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[reqID]
	if !ok {
		return nil, derrors.New(derrors.CodeNotFound, "request not found")
	}
	clone := *req
	return &clone, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, reqID id.RequestID, status models.RequestStatus, priority models.ReviewPriority) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[reqID]
	if !ok {
		return derrors.New(derrors.CodeNotFound, "request not found")
	}
	req.Status = status
	if priority != "" {
		req.Priority = priority
	}
	req.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status models.RequestStatus) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Request
	for _, req := range s.requests {
		if req.Status == status {
			clone := *req
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) AddDocument(_ context.Context, doc *models.Document) error {
	if doc == nil {
		return derrors.New(derrors.CodeInvalidInput, "document is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[doc.RequestID]; !ok {
		return derrors.New(derrors.CodeNotFound, "request not found")
	}
	clone := *doc
	s.documents[doc.RequestID] = append(s.documents[doc.RequestID], &clone)
	return nil
}

func (s *InMemoryStore) ListDocuments(_ context.Context, reqID id.RequestID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.documents[reqID]
	out := make([]*models.Document, 0, len(docs))
	for _, doc := range docs {
		clone := *doc
		out = append(out, &clone)
	}
	return out, nil
}

func (s *InMemoryStore) SaveReport(_ context.Context, report *models.VerificationReport) error {
	if report == nil {
		return derrors.New(derrors.CodeInvalidInput, "report is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *report
	s.reports[report.RequestID] = &clone
	return nil
}

func (s *InMemoryStore) GetReport(_ context.Context, reqID id.RequestID) (*models.VerificationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[reqID]
	if !ok {
		return nil, derrors.New(derrors.CodeNotFound, "report not found")
	}
	clone := *report
	return &clone, nil
}
