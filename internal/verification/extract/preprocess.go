package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// PreprocessImage prepares a scanned image for OCR: grayscale, Otsu
// binarization, then a 3x3 median denoise. Returns the result re-encoded as
// PNG for the OCR engine.
func PreprocessImage(content []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	gray := toGray(imaging.Grayscale(img))
	binary := binarizeOtsu(gray)
	denoised := medianFilter(binary)

	var buf bytes.Buffer
	if err := png.Encode(&buf, denoised); err != nil {
		return nil, fmt.Errorf("encode preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// binarizeOtsu thresholds a grayscale image at the level that maximizes
// between-class variance over the intensity histogram.
func binarizeOtsu(gray *image.Gray) *image.Gray {
	var hist [256]int
	for _, px := range gray.Pix {
		hist[px]++
	}
	total := len(gray.Pix)
	if total == 0 {
		return gray
	}

	var sum float64
	for i, count := range hist {
		sum += float64(i) * float64(count)
	}

	var sumBack, weightBack float64
	var maxVariance float64
	threshold := 0
	for t := 0; t < 256; t++ {
		weightBack += float64(hist[t])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(t) * float64(hist[t])
		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore
		variance := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if variance > maxVariance {
			maxVariance = variance
			threshold = t
		}
	}

	out := image.NewGray(gray.Bounds())
	for i, px := range gray.Pix {
		if int(px) > threshold {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// medianFilter applies a 3x3 median filter. Edge pixels are copied unchanged.
func medianFilter(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)
	copy(out.Pix, gray.Pix)
	if w < 3 || h < 3 {
		return out
	}

	var window [9]uint8
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			k := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[k] = gray.Pix[(y+dy)*gray.Stride+(x+dx)]
					k++
				}
			}
			out.Pix[y*out.Stride+x] = median9(window)
		}
	}
	return out
}

func median9(w [9]uint8) uint8 {
	// Insertion sort; the window is tiny.
	for i := 1; i < len(w); i++ {
		for j := i; j > 0 && w[j-1] > w[j]; j-- {
			w[j-1], w[j] = w[j], w[j-1]
		}
	}
	return w[4]
}
