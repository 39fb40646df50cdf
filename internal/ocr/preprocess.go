// Package ocr prepares notice images for text recognition and runs the
// tesseract binary over them.
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
)

// Histograms with no usable spread give Otsu nothing to split on; the
// fixed pivot keeps such images binarizable.
const fallbackThreshold = 150

// Preprocess turns raw image bytes into a denoised black-and-white
// image: grayscale, Otsu binarization, then a 3x3 median filter.
// Undecodable input yields domain.ErrImageDecode.
func Preprocess(raw []byte) (*image.Gray, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageDecode, err)
	}

	gray := toGray(src)
	binarize(gray, otsuThreshold(gray))
	return medianFilter(gray), nil
}

func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return gray
}

// otsuThreshold picks the split maximizing between-class variance.
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	total := 0
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return fallbackThreshold
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumBack, weightBack float64
	var bestVariance float64
	best := -1
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
		if variance > bestVariance {
			bestVariance = variance
			best = t
		}
	}

	if best < 0 {
		return fallbackThreshold
	}
	return uint8(best)
}

func binarize(img *image.Gray, threshold uint8) {
	for i, v := range img.Pix {
		if v > threshold {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 0
		}
	}
}

// medianFilter applies a 3x3 median over a binary image, which for 0/255
// pixels is a majority vote of the replicated-border neighborhood.
func medianFilter(img *image.Gray) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)

	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			white := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny := clamp(y+dy, bounds.Min.Y, bounds.Max.Y-1)
					nx := clamp(x+dx, bounds.Min.X, bounds.Max.X-1)
					if img.GrayAt(nx, ny).Y > 127 {
						white++
					}
				}
			}
			if white >= 5 {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}
