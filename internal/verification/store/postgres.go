package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bursary/internal/verification/models"
	"bursary/internal/verification/ports"
	id "bursary/pkg/domain"
	derrors "bursary/pkg/domain-errors"
)

// PostgresStore persists verification requests in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now ports.Clock
}

// NewPostgres constructs a PostgreSQL-backed request store. A nil clock falls
// back to time.Now.
func NewPostgres(db *sql.DB, now ports.Clock) *PostgresStore {
	if now == nil {
		now = time.Now
	}
	return &PostgresStore{db: db, now: now}
}

// Migrate creates the schema when it does not exist yet. Integration tests and
// single-node deployments call it at startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS verification_requests (
	id             UUID PRIMARY KEY,
	request_number TEXT NOT NULL UNIQUE,
	subject        JSONB NOT NULL,
	status         TEXT NOT NULL,
	priority       TEXT NOT NULL DEFAULT 'normal',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS verification_documents (
	id            UUID PRIMARY KEY,
	request_id    UUID NOT NULL REFERENCES verification_requests(id) ON DELETE CASCADE,
	filename      TEXT NOT NULL,
	document_type TEXT NOT NULL,
	extension     TEXT NOT NULL,
	content       BYTEA NOT NULL,
	uploaded_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verification_documents_request
	ON verification_documents(request_id);

CREATE TABLE IF NOT EXISTS verification_reports (
	request_id     UUID PRIMARY KEY REFERENCES verification_requests(id) ON DELETE CASCADE,
	generated_at   TIMESTAMPTZ NOT NULL,
	overall_status TEXT NOT NULL,
	confidence     DOUBLE PRECISION NOT NULL,
	summary        JSONB NOT NULL,
	details        JSONB NOT NULL,
	recommendation TEXT NOT NULL,
	next_actions   TEXT[] NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate verification schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.Request) error {
	if req == nil {
		return derrors.New(derrors.CodeInvalidInput, "request is required")
	}
	subject, err := json.Marshal(req.Subject)
	if err != nil {
		return fmt.Errorf("marshal subject: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_requests (id, request_number, subject, status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(req.ID), req.RequestNumber, subject, string(req.Status), string(req.Priority), req.CreatedAt, req.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return derrors.Wrap(err, derrors.CodeConflict, "request already exists")
		}
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, reqID id.RequestID) (*models.Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, request_number, subject, status, priority, created_at, updated_at
		FROM verification_requests
		WHERE id = $1
	`, uuid.UUID(reqID))
	return scanRequest(row)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, reqID id.RequestID, status models.RequestStatus, priority models.ReviewPriority) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE verification_requests
		SET status = $2, priority = COALESCE(NULLIF($3, ''), priority), updated_at = $4
		WHERE id = $1
	`, uuid.UUID(reqID), string(status), string(priority), s.now())
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if affected == 0 {
		return derrors.New(derrors.CodeNotFound, "request not found")
	}
	return nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.RequestStatus) ([]*models.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_number, subject, status, priority, created_at, updated_at
		FROM verification_requests
		WHERE status = $1
		ORDER BY created_at DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list requests by status: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests by status: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return derrors.New(derrors.CodeInvalidInput, "document is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_documents (id, request_id, filename, document_type, extension, content, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(doc.ID), uuid.UUID(doc.RequestID), doc.Filename, doc.Type, doc.Extension, doc.Content, doc.UploadedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return derrors.Wrap(err, derrors.CodeNotFound, "request not found")
		}
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, reqID id.RequestID) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, filename, document_type, extension, content, uploaded_at
		FROM verification_documents
		WHERE request_id = $1
		ORDER BY uploaded_at ASC
	`, uuid.UUID(reqID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		var (
			doc      models.Document
			docID    uuid.UUID
			parentID uuid.UUID
		)
		if err := rows.Scan(&docID, &parentID, &doc.Filename, &doc.Type, &doc.Extension, &doc.Content, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.ID = id.DocumentID(docID)
		doc.RequestID = id.RequestID(parentID)
		out = append(out, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, report *models.VerificationReport) error {
	if report == nil {
		return derrors.New(derrors.CodeInvalidInput, "report is required")
	}
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("marshal report summary: %w", err)
	}
	details, err := json.Marshal(report.Details)
	if err != nil {
		return fmt.Errorf("marshal report details: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_reports (request_id, generated_at, overall_status, confidence, summary, details, recommendation, next_actions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (request_id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			overall_status = EXCLUDED.overall_status,
			confidence = EXCLUDED.confidence,
			summary = EXCLUDED.summary,
			details = EXCLUDED.details,
			recommendation = EXCLUDED.recommendation,
			next_actions = EXCLUDED.next_actions
	`, uuid.UUID(report.RequestID), report.GeneratedAt, string(report.OverallStatus), report.Confidence,
		summary, details, report.Recommendation, pq.Array(report.NextActions))
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReport(ctx context.Context, reqID id.RequestID) (*models.VerificationReport, error) {
	var (
		report      models.VerificationReport
		requestID   uuid.UUID
		status      string
		summary     []byte
		details     []byte
		nextActions []string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT request_id, generated_at, overall_status, confidence, summary, details, recommendation, next_actions
		FROM verification_reports
		WHERE request_id = $1
	`, uuid.UUID(reqID)).Scan(&requestID, &report.GeneratedAt, &status, &report.Confidence,
		&summary, &details, &report.Recommendation, pq.Array(&nextActions))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, derrors.New(derrors.CodeNotFound, "report not found")
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	report.RequestID = id.RequestID(requestID)
	report.OverallStatus = models.DecisionAction(status)
	report.NextActions = nextActions
	if err := json.Unmarshal(summary, &report.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal report summary: %w", err)
	}
	if err := json.Unmarshal(details, &report.Details); err != nil {
		return nil, fmt.Errorf("unmarshal report details: %w", err)
	}
	return &report, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		req      models.Request
		reqID    uuid.UUID
		subject  []byte
		status   string
		priority string
	)
	err := row.Scan(&reqID, &req.RequestNumber, &subject, &status, &priority, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, derrors.New(derrors.CodeNotFound, "request not found")
		}
		return nil, fmt.Errorf("scan request: %w", err)
	}
	req.ID = id.RequestID(reqID)
	req.Status = models.RequestStatus(status)
	req.Priority = models.ReviewPriority(priority)
	if err := json.Unmarshal(subject, &req.Subject); err != nil {
		return nil, fmt.Errorf("unmarshal subject: %w", err)
	}
	return &req, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
