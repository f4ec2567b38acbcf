// Package authenticity scores visual trust signals of an uploaded document:
// stamp and signature presence, image sharpness, and OCR confidence.
package authenticity

import (
	"bytes"
	"strings"

	"github.com/disintegration/imaging"

	"bursary/internal/verification/models"
)

const (
	stampWeight     = 0.3
	signatureWeight = 0.2
	qualityWeight   = 0.2
	ocrWeight       = 0.3

	lowQualityThreshold = 0.3
	lowOCRThreshold     = 0.5

	verifiedThreshold = 0.7
	reviewThreshold   = 0.4
)

// Verifier runs the authenticity heuristics. Stateless and safe for
// concurrent use.
type Verifier struct{}

func New() *Verifier {
	return &Verifier{}
}

// Verify scores the document. Visual heuristics only apply to photographic
// uploads; other formats contribute just their OCR confidence.
func (v *Verifier) Verify(content []byte, ext string, extracted models.ExtractedDocument) models.AuthenticityResult {
	result := models.AuthenticityResult{
		Status: models.StatusPending,
		Issues: []string{},
	}

	if isPhotographic(ext) {
		if img, err := imaging.Decode(bytes.NewReader(content)); err == nil {
			rgba := imaging.Clone(img)
			result.StampDetected = detectStamp(rgba)
			result.SignatureDetected = detectSignature(rgba)
			result.ImageQuality = assessQuality(rgba)

			if result.ImageQuality < lowQualityThreshold {
				result.Issues = append(result.Issues,
					"Low image quality - possible screenshot or photocopy")
			}
		}
	}

	result.OCRConfidence = extracted.Confidence
	if result.OCRConfidence < lowOCRThreshold {
		result.Issues = append(result.Issues,
			"Low OCR confidence - document may be unclear or tampered")
	}

	confidence := qualityWeight*result.ImageQuality + ocrWeight*result.OCRConfidence
	if result.StampDetected {
		confidence += stampWeight
	}
	if result.SignatureDetected {
		confidence += signatureWeight
	}
	result.Confidence = confidence

	switch {
	case result.Confidence >= verifiedThreshold:
		result.Status = models.StatusVerified
	case result.Confidence >= reviewThreshold:
		result.Status = models.StatusReviewRequired
	default:
		result.Status = models.StatusSuspicious
	}

	return result
}

func isPhotographic(ext string) bool {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")) {
	case "jpg", "jpeg", "png":
		return true
	}
	return false
}
