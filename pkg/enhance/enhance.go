// Package enhance applies a final unsharp-mask polish. It uses the soft
// blur-and-merge formulation (result = original + amount * (original -
// blurred)) rather than an aggressive kernel sharpen, and touches RGB
// only so alpha edges stay intact.
package enhance

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Config holds the named unsharp-mask parameters.
type Config struct {
	// Radius is the Gaussian blur sigma.
	Radius float64
	// Amount scales how much edge contrast is added back.
	Amount float64
	// Threshold is the minimum absolute difference between original and
	// blurred values for a pixel channel to be sharpened, suppressing
	// noise amplification in flat regions.
	Threshold float64
}

// DefaultConfig returns the enhancement parameters used when none are
// supplied.
func DefaultConfig() Config {
	return Config{
		Radius:    1.0,
		Amount:    0.1,
		Threshold: 1.0,
	}
}

// Enhancer sharpens illustration output in place.
type Enhancer struct {
	config Config
}

// New creates an Enhancer with default configuration.
func New() *Enhancer {
	return &Enhancer{config: DefaultConfig()}
}

// NewWithConfig creates an Enhancer with custom configuration.
func NewWithConfig(config Config) *Enhancer {
	return &Enhancer{config: config}
}

// UnsharpMask sharpens the RGB channels of img in place. Alpha is never
// touched. A non-positive amount is a no-op.
func (e *Enhancer) UnsharpMask(img *image.NRGBA) {
	if e.config.Amount <= 0 || e.config.Radius <= 0 {
		return
	}
	blurred := imaging.Blur(img, e.config.Radius)

	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			j := y*blurred.Stride + x*4
			for c := 0; c < 3; c++ {
				orig := float64(img.Pix[i+c])
				diff := orig - float64(blurred.Pix[j+c])
				if math.Abs(diff) < e.config.Threshold {
					continue
				}
				img.Pix[i+c] = clamp8(orig + e.config.Amount*diff)
			}
		}
	}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
