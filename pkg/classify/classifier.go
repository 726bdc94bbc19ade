// Package classify labels cropped artwork as pixel art or illustration.
// Classification is deterministic: identical pixel content always yields
// the same kind.
package classify

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/asset-companion/pkg/types"
)

// Config holds the named classifier thresholds.
type Config struct {
	// ProbeSize is the maximum side length of the downscaled probe image
	// used for feature extraction.
	ProbeSize int
	// MaxColors is the upper bound on distinct colors in the probe for
	// the pixel-art vote.
	MaxColors int
	// EdgeGradientMin is the per-channel-summed gradient magnitude above
	// which a pixel counts as a hard edge (0..1 scale).
	EdgeGradientMin float64
	// MinEdgeRatio is the minimum hard-edge pixel fraction for the
	// pixel-art vote.
	MinEdgeRatio float64
	// MaxPixelArtSize is the largest source dimension still plausible
	// for pixel art.
	MaxPixelArtSize int
}

// DefaultConfig returns the classifier thresholds used when none are
// supplied.
func DefaultConfig() Config {
	return Config{
		ProbeSize:       128,
		MaxColors:       80,
		EdgeGradientMin: 0.25,
		MinEdgeRatio:    0.12,
		MaxPixelArtSize: 512,
	}
}

// Classifier resolves a requested Kind to a concrete one.
type Classifier struct {
	config Config
}

// New creates a Classifier with default configuration.
func New() *Classifier {
	return &Classifier{config: DefaultConfig()}
}

// NewWithConfig creates a Classifier with custom configuration.
func NewWithConfig(config Config) *Classifier {
	return &Classifier{config: config}
}

// Resolve returns the concrete kind for img. An explicit non-auto
// request always wins; only KindAuto triggers classification.
func (c *Classifier) Resolve(img *image.NRGBA, requested types.Kind) types.Kind {
	if requested.Resolved() {
		return requested
	}
	return c.classify(img)
}

// classify votes pixel_art when the content has few distinct colors,
// a high share of hard edges, and small absolute dimensions. Everything
// else is an illustration.
func (c *Classifier) classify(img *image.NRGBA) types.Kind {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return types.KindIllustration
	}

	probe := img
	if w > c.config.ProbeSize || h > c.config.ProbeSize {
		probe = imaging.Fit(img, c.config.ProbeSize, c.config.ProbeSize, imaging.Box)
	}

	fewColors := c.distinctColors(probe) < c.config.MaxColors
	sharpEdges := c.edgeRatio(probe) > c.config.MinEdgeRatio
	small := w <= c.config.MaxPixelArtSize && h <= c.config.MaxPixelArtSize

	if fewColors && sharpEdges && small {
		return types.KindPixelArt
	}
	return types.KindIllustration
}

// distinctColors counts unique opaque RGB triples in the probe. Counting
// stops early once the pixel-art bound is exceeded.
func (c *Classifier) distinctColors(probe *image.NRGBA) int {
	w, h := probe.Rect.Dx(), probe.Rect.Dy()
	seen := make(map[uint32]struct{}, c.config.MaxColors*2)

	for y := 0; y < h; y++ {
		row := probe.Pix[y*probe.Stride : y*probe.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			key := uint32(row[i])<<16 | uint32(row[i+1])<<8 | uint32(row[i+2])
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				if len(seen) >= c.config.MaxColors {
					return len(seen)
				}
			}
		}
	}
	return len(seen)
}

// edgeRatio is the fraction of probe pixels whose local luminance
// gradient exceeds the hard-edge threshold.
func (c *Classifier) edgeRatio(probe *image.NRGBA) float64 {
	w, h := probe.Rect.Dx(), probe.Rect.Dy()
	if w < 2 || h < 2 {
		return 0
	}

	hard := 0
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			l := luminance(probe, x, y)
			gx := math.Abs(l - luminance(probe, x+1, y))
			gy := math.Abs(l - luminance(probe, x, y+1))
			if gx+gy > c.config.EdgeGradientMin {
				hard++
			}
		}
	}
	return float64(hard) / float64((w-1)*(h-1))
}

func luminance(img *image.NRGBA, x, y int) float64 {
	i := y*img.Stride + x*4
	r := float64(img.Pix[i])
	g := float64(img.Pix[i+1])
	b := float64(img.Pix[i+2])
	return (0.299*r + 0.587*g + 0.114*b) / 255.0
}
