// Package handler wires the verification endpoints to the service.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bursary/internal/platform/middleware"
	"bursary/internal/verification/models"
	id "bursary/pkg/domain"
	derrors "bursary/pkg/domain-errors"
	"bursary/pkg/platform/httputil"
)

// maxDocumentSize bounds uploads to keep OCR and image decoding sane.
const maxDocumentSize = 20 << 20

// Service defines the verification operations the handlers need.
type Service interface {
	SubmitRequest(ctx context.Context, subject models.Subject) (*models.Request, error)
	UploadDocument(ctx context.Context, reqID id.RequestID, filename, docType string, content []byte) (*models.Document, *models.DocumentAnalysis, error)
	VerifyRequest(ctx context.Context, reqID id.RequestID) (*models.RunResult, error)
	GetRequest(ctx context.Context, reqID id.RequestID) (*models.Request, error)
	GetReport(ctx context.Context, reqID id.RequestID) (*models.VerificationReport, error)
	PendingReviews(ctx context.Context) ([]*models.Request, error)
	ManualReview(ctx context.Context, reqID id.RequestID, approve bool, reviewer string) (*models.Request, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/verification", func(r chi.Router) {
		r.Post("/requests", h.HandleSubmit)
		r.Get("/pending-reviews", h.HandlePendingReviews)
		r.Route("/requests/{requestID}", func(r chi.Router) {
			r.Get("/", h.HandleStatus)
			r.Post("/documents", h.HandleUpload)
			r.Post("/verify", h.HandleVerify)
			r.Get("/report", h.HandleReport)
			r.Post("/review", h.HandleReview)
		})
	})
}

// HandleSubmit handles POST /verification/requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndValidate[*SubmitRequest](w, r)
	if !ok {
		return
	}

	created, err := h.service.SubmitRequest(ctx, req.Subject())
	if err != nil {
		h.logError(ctx, "submit request failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRequest(created))
}

// HandleUpload handles POST /verification/requests/{requestID}/documents as a
// multipart form with a "file" part and a "document_type" field.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeInvalidInput, "invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeInvalidInput, "file part is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxDocumentSize))
	if err != nil {
		httputil.WriteError(w, derrors.Wrap(err, derrors.CodeInvalidInput, "read file part"))
		return
	}

	doc, analysis, err := h.service.UploadDocument(ctx, reqID, header.Filename, r.FormValue("document_type"), content)
	if err != nil {
		h.logError(ctx, "document upload failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromUpload(doc, analysis))
}

// HandleVerify handles POST /verification/requests/{requestID}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := h.service.VerifyRequest(ctx, reqID)
	if err != nil {
		h.logError(ctx, "verification run failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "verification run served",
		"request_id", reqID.String(),
		"action", string(result.Decision.Action),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromRunResult(result))
}

// HandleStatus handles GET /verification/requests/{requestID}.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}

	req, err := h.service.GetRequest(ctx, reqID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

// HandleReport handles GET /verification/requests/{requestID}/report.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}

	report, err := h.service.GetReport(ctx, reqID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandlePendingReviews handles GET /verification/pending-reviews.
func (h *Handler) HandlePendingReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requests, err := h.service.PendingReviews(ctx)
	if err != nil {
		h.logError(ctx, "pending reviews listing failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequests(requests))
}

// HandleReview handles POST /verification/requests/{requestID}/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndValidate[*ReviewRequest](w, r)
	if !ok {
		return
	}

	updated, err := h.service.ManualReview(ctx, reqID, req.Approved(), req.Reviewer)
	if err != nil {
		h.logError(ctx, "manual review failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(updated))
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	reqID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeInvalidInput, "invalid request id"))
		return id.RequestID{}, false
	}
	return reqID, true
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
}
