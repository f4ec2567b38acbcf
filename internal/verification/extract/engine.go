// Package extract turns raw document bytes into text, structured fields, and
// an extraction confidence. All failure modes degrade to a method=error
// result; extraction never returns an error to its caller.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/minio/highwayhash"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"bursary/internal/verification/models"
	"bursary/internal/verification/ports"
)

// minNativeTextLen is the PDF text-layer length below which a PDF is treated
// as scanned and sent through OCR instead.
const minNativeTextLen = 100

// nativeConfidence is assigned to text-layer extractions (PDF, DOCX, XLSX,
// plain text), which carry no per-token OCR signal.
const nativeConfidence = 0.95

var contentHashKey = []byte("bursary.extract.content.hash.v01")

// Engine extracts text and structured fields from uploaded documents.
type Engine struct {
	ocr        ports.OCRClient
	lang       string
	ocrTimeout time.Duration
	logger     *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLanguage sets the OCR language hint (default "eng").
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		e.lang = lang
	}
}

// WithOCRTimeout bounds each OCR engine call. A timed-out call degrades the
// document to a method=error result instead of aborting the run.
func WithOCRTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.ocrTimeout = d
	}
}

func New(ocr ports.OCRClient, opts ...Option) (*Engine, error) {
	if ocr == nil {
		return nil, fmt.Errorf("ocr client is required")
	}

	e := &Engine{
		ocr:        ocr,
		lang:       "eng",
		ocrTimeout: 30 * time.Second,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Extract produces an ExtractedDocument for the given bytes and file
// extension. Unsupported extensions and engine failures yield text "",
// confidence 0, method error.
func (e *Engine) Extract(ctx context.Context, content []byte, ext string) models.ExtractedDocument {
	doc := models.ExtractedDocument{
		Method:      models.MethodNone,
		ContentHash: ContentHash(content),
	}

	var err error
	switch normalizeExt(ext) {
	case ".pdf":
		doc.Text, doc.Confidence, doc.Method, err = e.extractPDF(ctx, content)
	case ".jpg", ".jpeg", ".png", ".tiff", ".bmp":
		doc.Text, doc.Confidence, err = e.ocrImage(ctx, content)
		doc.Method = models.MethodOCRImg
	case ".docx":
		doc.Text, err = extractDOCXText(content)
		doc.Confidence = nativeConfidence
		doc.Method = models.MethodDOCX
	case ".xlsx":
		doc.Text, err = extractXLSXText(content)
		doc.Confidence = nativeConfidence
		doc.Method = models.MethodXLSX
	case ".csv":
		doc.Text, err = extractCSVText(content)
		doc.Confidence = nativeConfidence
		doc.Method = models.MethodText
	case ".txt":
		doc.Text = string(content)
		doc.Confidence = nativeConfidence
		doc.Method = models.MethodText
	default:
		err = fmt.Errorf("unsupported file extension %q", ext)
	}

	if err != nil {
		e.logger.Warn("document extraction degraded",
			"extension", ext,
			"error", err,
		)
		return models.ExtractedDocument{
			Method:      models.MethodError,
			ContentHash: doc.ContentHash,
		}
	}

	if doc.Text != "" {
		doc.Fields = ParseFields(doc.Text)
	}
	return doc
}

// extractPDF tries the native text layer first; short output means a scanned
// PDF, which falls back to OCR over the embedded page images.
func (e *Engine) extractPDF(ctx context.Context, content []byte) (string, float64, models.ExtractionMethod, error) {
	text := pdfTextLayer(content)
	if len(strings.TrimSpace(text)) >= minNativeTextLen {
		return text, nativeConfidence, models.MethodPDFText, nil
	}

	ocrText, confidence, err := e.ocrPDF(ctx, content)
	if err != nil {
		return "", 0, models.MethodError, err
	}
	return ocrText, confidence, models.MethodOCRPDF, nil
}

func pdfTextLayer(content []byte) string {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ""
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return string(out)
}

// ocrPDF extracts the embedded page images of a scanned PDF and runs OCR over
// each, averaging token confidence across all pages.
func (e *Engine) ocrPDF(ctx context.Context, content []byte) (string, float64, error) {
	conf := model.NewDefaultConfiguration()
	pages, err := api.ExtractImagesRaw(bytes.NewReader(content), nil, conf)
	if err != nil {
		return "", 0, fmt.Errorf("extract pdf page images: %w", err)
	}

	var parts []string
	var confidences []float64
	for _, page := range pages {
		// Stable object order keeps the run deterministic for identical input.
		objNrs := make([]int, 0, len(page))
		for objNr := range page {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)
		for _, objNr := range objNrs {
			raw, err := io.ReadAll(page[objNr])
			if err != nil {
				return "", 0, fmt.Errorf("read page image: %w", err)
			}
			tokens, err := e.runOCR(ctx, raw)
			if err != nil {
				return "", 0, err
			}
			for _, tok := range tokens {
				if tok.Confidence > 0 {
					parts = append(parts, tok.Text)
					confidences = append(confidences, tok.Confidence)
				}
			}
		}
	}

	return strings.Join(parts, " "), meanNormalized(confidences), nil
}

// ocrImage preprocesses an image document and runs OCR over the result.
func (e *Engine) ocrImage(ctx context.Context, content []byte) (string, float64, error) {
	prepared, err := PreprocessImage(content)
	if err != nil {
		return "", 0, err
	}

	tokens, err := e.runOCR(ctx, prepared)
	if err != nil {
		return "", 0, err
	}

	var parts []string
	var confidences []float64
	for _, tok := range tokens {
		if tok.Confidence > 0 {
			parts = append(parts, tok.Text)
			confidences = append(confidences, tok.Confidence)
		}
	}
	return strings.Join(parts, " "), meanNormalized(confidences), nil
}

func (e *Engine) runOCR(ctx context.Context, image []byte) ([]ports.OCRToken, error) {
	if e.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.ocrTimeout)
		defer cancel()
	}
	tokens, err := e.ocr.Extract(ctx, image, e.lang)
	if err != nil {
		return nil, fmt.Errorf("ocr extract: %w", err)
	}
	return tokens, nil
}

// meanNormalized averages per-token OCR confidences (0-100 scale) into [0,1].
func meanNormalized(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	var sum float64
	for _, c := range confidences {
		sum += c
	}
	return sum / float64(len(confidences)) / 100.0
}

// ContentHash fingerprints raw document bytes for duplicate detection.
func ContentHash(content []byte) string {
	return strconv.FormatUint(highwayhash.Sum64(content, contentHashKey), 16)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
