// Package frame crops or pads scaled content into its exact final
// dimensions. Dense content is trimmed around its alpha-weighted center
// of mass; sparse content is padded with transparency so no detail is
// lost.
package frame

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Config holds the named framing tunables.
type Config struct {
	// CoverageThreshold is the non-transparent pixel fraction above
	// which content counts as dense and oversized axes may be cropped
	// instead of the image being padded.
	CoverageThreshold float64
}

// DefaultConfig returns the framing tunables used when none are
// supplied.
func DefaultConfig() Config {
	return Config{CoverageThreshold: 0.85}
}

// Framer squares or fits images to exact output dimensions.
type Framer struct {
	config Config
}

// New creates a Framer with default configuration.
func New() *Framer {
	return &Framer{config: DefaultConfig()}
}

// NewWithConfig creates a Framer with custom configuration.
func NewWithConfig(config Config) *Framer {
	return &Framer{config: config}
}

// Square returns img at exactly side x side. An image already at that
// size passes through unchanged. Axes longer than side are cropped
// symmetrically around the alpha-weighted center of mass when the
// content is dense enough to trim safely; everything else is resolved by
// centered transparent padding.
func (f *Framer) Square(img *image.NRGBA, side int) *image.NRGBA {
	return f.Fit(img, side, side)
}

// Fit generalizes Square to non-square targets.
func (f *Framer) Fit(img *image.NRGBA, targetW, targetH int) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == targetW && h == targetH {
		return img
	}

	if w > targetW || h > targetH {
		if Density(img) > f.config.CoverageThreshold {
			img = cropAroundCentroid(img, minInt(w, targetW), minInt(h, targetH))
		} else {
			// Sparse content must not lose detail: shrink to fit
			// instead of trimming margins.
			img = imaging.Fit(img, targetW, targetH, imaging.Lanczos)
		}
		w, h = img.Rect.Dx(), img.Rect.Dy()
	}

	if w == targetW && h == targetH {
		return img
	}
	canvas := imaging.New(targetW, targetH, color.NRGBA{})
	return imaging.PasteCenter(canvas, img)
}

// Density returns the fraction of non-transparent pixels.
func Density(img *image.NRGBA) float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	visible := 0
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 3; x < len(row); x += 4 {
			if row[x] != 0 {
				visible++
			}
		}
	}
	return float64(visible) / float64(w*h)
}

// Centroid returns the alpha-weighted center of mass. A fully
// transparent image falls back to the geometric center.
func Centroid(img *image.NRGBA) (int, int) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	var sumX, sumY, sumA float64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			a := float64(row[x*4+3])
			sumX += a * float64(x)
			sumY += a * float64(y)
			sumA += a
		}
	}
	if sumA == 0 {
		return w / 2, h / 2
	}
	return int(sumX/sumA + 0.5), int(sumY/sumA + 0.5)
}

// cropAroundCentroid trims img to cropW x cropH centered on the
// alpha-weighted centroid, clamped to the image bounds.
func cropAroundCentroid(img *image.NRGBA, cropW, cropH int) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	cx, cy := Centroid(img)

	x0 := clampInt(cx-cropW/2, 0, w-cropW)
	y0 := clampInt(cy-cropH/2, 0, h-cropH)
	return imaging.Crop(img, image.Rect(x0, y0, x0+cropW, y0+cropH))
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
