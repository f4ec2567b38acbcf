package authenticity

import (
	"image"
)

const (
	brightRedLevel = 200
	mutedOtherMax  = 100
	stampRedRatio  = 0.01

	darkInkLevel     = 100
	signatureMinInk  = 0.01
	signatureMaxInk  = 0.10
	qualityNormScale = 1000.0
)

// detectStamp looks for a distinct patch of bright red, the usual color of
// institutional stamps and seals.
func detectStamp(img *image.NRGBA) bool {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return false
	}

	red := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			// Red-dominant, not just bright: white paper has a high R too.
			if row[x*4] > brightRedLevel && row[x*4+1] < mutedOtherMax && row[x*4+2] < mutedOtherMax {
				red++
			}
		}
	}
	return float64(red)/float64(total) > stampRedRatio
}

// detectSignature looks for an ink-like share of dark pixels. Signatures
// typically occupy 1-10% of a document image.
func detectSignature(img *image.NRGBA) bool {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return false
	}

	dark := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			if luminance(row[x*4], row[x*4+1], row[x*4+2]) < darkInkLevel {
				dark++
			}
		}
	}

	ratio := float64(dark) / float64(total)
	return ratio >= signatureMinInk && ratio <= signatureMaxInk
}

// assessQuality is a blur proxy: the variance of the image Laplacian,
// normalized into [0,1] against an empirical scale.
func assessQuality(img *image.NRGBA) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0.5
	}

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			gray[y*w+x] = float64(luminance(row[x*4], row[x*4+1], row[x*4+2]))
		}
	}

	// 4-neighbor Laplacian over interior pixels.
	n := 0
	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := gray[(y-1)*w+x] + gray[(y+1)*w+x] + gray[y*w+x-1] + gray[y*w+x+1] - 4*gray[y*w+x]
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	if n == 0 {
		return 0.5
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	quality := variance / qualityNormScale
	if quality > 1.0 {
		quality = 1.0
	}
	if quality < 0 {
		quality = 0
	}
	return quality
}

func luminance(r, g, b uint8) uint8 {
	// Integer Rec. 601 approximation.
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}
