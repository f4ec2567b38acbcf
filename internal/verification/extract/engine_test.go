package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bursary/internal/verification/models"
	"bursary/internal/verification/ports"
)

// fakeOCR returns canned tokens for every call, or an error.
type fakeOCR struct {
	tokens []ports.OCRToken
	err    error
	calls  int
}

func (f *fakeOCR) Extract(_ context.Context, _ []byte, _ string) ([]ports.OCRToken, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

func newTestEngine(t *testing.T, ocr ports.OCRClient) *Engine {
	t.Helper()
	engine, err := New(ocr, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return engine
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ocr client is required")
}

func TestExtractText(t *testing.T) {
	engine := newTestEngine(t, &fakeOCR{})

	content := []byte("Name: Ravi Kumar\nStudent ID: S123456\nCGPA: 8.5\n")
	doc := engine.Extract(context.Background(), content, ".txt")

	assert.Equal(t, models.MethodText, doc.Method)
	assert.InDelta(t, 0.95, doc.Confidence, 1e-9)
	assert.Equal(t, string(content), doc.Text)
	assert.Equal(t, "Ravi Kumar", doc.Fields.Name)
	assert.Equal(t, "S123456", doc.Fields.StudentID)
	assert.NotEmpty(t, doc.ContentHash)
}

func TestExtractCSV(t *testing.T) {
	engine := newTestEngine(t, &fakeOCR{})

	doc := engine.Extract(context.Background(), []byte("label,value\nGrade,8.5\n"), "csv")
	assert.Equal(t, models.MethodText, doc.Method)
	assert.Contains(t, doc.Text, "Grade")
}

func TestExtractXLSX(t *testing.T) {
	book := excelize.NewFile()
	require.NoError(t, book.SetCellValue("Sheet1", "A1", "Student ID: S123456"))
	require.NoError(t, book.SetCellValue("Sheet1", "B1", "CGPA: 9.1"))
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	engine := newTestEngine(t, &fakeOCR{})
	doc := engine.Extract(context.Background(), buf.Bytes(), ".xlsx")

	assert.Equal(t, models.MethodXLSX, doc.Method)
	assert.InDelta(t, 0.95, doc.Confidence, 1e-9)
	assert.Equal(t, "S123456", doc.Fields.StudentID)
	assert.Equal(t, "9.1", doc.Fields.Grade)
}

func TestExtractImage(t *testing.T) {
	t.Run("tokens averaged and normalized", func(t *testing.T) {
		ocr := &fakeOCR{tokens: []ports.OCRToken{
			{Text: "Name:", Confidence: 90},
			{Text: "Ravi", Confidence: 80},
			{Text: "Kumar", Confidence: 70},
		}}
		engine := newTestEngine(t, ocr)

		doc := engine.Extract(context.Background(), testPNG(t), ".png")
		assert.Equal(t, models.MethodOCRImg, doc.Method)
		assert.Equal(t, "Name: Ravi Kumar", doc.Text)
		assert.InDelta(t, 0.8, doc.Confidence, 1e-9)
		assert.Equal(t, 1, ocr.calls)
	})

	t.Run("zero-confidence tokens dropped", func(t *testing.T) {
		ocr := &fakeOCR{tokens: []ports.OCRToken{
			{Text: "noise", Confidence: 0},
			{Text: "signal", Confidence: 60},
		}}
		engine := newTestEngine(t, ocr)

		doc := engine.Extract(context.Background(), testPNG(t), ".png")
		assert.Equal(t, "signal", doc.Text)
		assert.InDelta(t, 0.6, doc.Confidence, 1e-9)
	})

	t.Run("ocr failure degrades to error method", func(t *testing.T) {
		engine := newTestEngine(t, &fakeOCR{err: errors.New("sidecar down")})

		doc := engine.Extract(context.Background(), testPNG(t), ".png")
		assert.Equal(t, models.MethodError, doc.Method)
		assert.Empty(t, doc.Text)
		assert.Zero(t, doc.Confidence)
		assert.NotEmpty(t, doc.ContentHash)
	})

	t.Run("undecodable image degrades to error method", func(t *testing.T) {
		engine := newTestEngine(t, &fakeOCR{})

		doc := engine.Extract(context.Background(), []byte("not an image"), ".jpg")
		assert.Equal(t, models.MethodError, doc.Method)
	})
}

// testPDF assembles a one-page PDF with a native text layer. Object offsets
// are recorded as the file is written so the xref table is correct by
// construction.
func testPDF(t *testing.T, text string) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)
	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")
	writeObj(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	writeObj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	xref := buf.Len()
	buf.WriteString("xref\n0 6\n")
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestExtractPDF(t *testing.T) {
	t.Run("native text layer skips OCR", func(t *testing.T) {
		ocr := &fakeOCR{}
		engine := newTestEngine(t, ocr)

		text := "Name: Ravi Kumar, Student ID: S123456, Department: Computer Science, " +
			"CGPA: 8.5, Amount: 45,000, Date: 15/06/2024"
		doc := engine.Extract(context.Background(), testPDF(t, text), ".pdf")

		assert.Equal(t, models.MethodPDFText, doc.Method)
		assert.InDelta(t, 0.95, doc.Confidence, 1e-9)
		assert.Equal(t, "Ravi Kumar", doc.Fields.Name)
		assert.Equal(t, "S123456", doc.Fields.StudentID)
		assert.Equal(t, "8.5", doc.Fields.Grade)
		assert.Zero(t, ocr.calls)
	})

	t.Run("short text layer falls back to page-image OCR", func(t *testing.T) {
		ocr := &fakeOCR{}
		engine := newTestEngine(t, ocr)

		// Well under the scanned-document threshold. The page carries no
		// embedded images, so the fallback produces an empty OCR result.
		doc := engine.Extract(context.Background(), testPDF(t, "Receipt 123"), ".pdf")

		assert.Equal(t, models.MethodOCRPDF, doc.Method)
		assert.Empty(t, doc.Text)
		assert.Zero(t, doc.Confidence)
	})

	t.Run("unparsable pdf degrades to error method", func(t *testing.T) {
		engine := newTestEngine(t, &fakeOCR{})

		doc := engine.Extract(context.Background(), []byte("%PDF-1.7 not really"), ".pdf")
		assert.Equal(t, models.MethodError, doc.Method)
		assert.NotEmpty(t, doc.ContentHash)
	})
}

func TestExtractUnsupported(t *testing.T) {
	engine := newTestEngine(t, &fakeOCR{})

	doc := engine.Extract(context.Background(), []byte("whatever"), ".exe")
	assert.Equal(t, models.MethodError, doc.Method)
	assert.Empty(t, doc.Text)
	assert.Zero(t, doc.Confidence)
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("document one"))
	b := ContentHash([]byte("document one"))
	c := ContentHash([]byte("document two"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestNormalizeExt(t *testing.T) {
	assert.Equal(t, ".pdf", normalizeExt("PDF"))
	assert.Equal(t, ".pdf", normalizeExt(".pdf"))
	assert.Equal(t, ".jpg", normalizeExt(" jpg "))
	assert.Equal(t, "", normalizeExt(""))
}
