// Package vision locates the meaningful content of an image. Detection
// prefers the alpha channel when it carries real information and falls
// back to a gradient-energy saliency heuristic for opaque images.
package vision

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/asset-companion/pkg/types"
)

// DetectionConfig holds the named tunables for content detection.
type DetectionConfig struct {
	// AlphaThreshold is the minimum alpha (exclusive) for a pixel to
	// count as visible content. 0 means any non-transparent pixel.
	AlphaThreshold uint8
	// SaliencyStdFactor scales the standard deviation added to the mean
	// when thresholding the saliency map.
	SaliencyStdFactor float64
	// MinAreaFrac is the minimum fraction of the image a detected box
	// must cover; smaller boxes are treated as degenerate and discarded
	// in favor of the full image bounds.
	MinAreaFrac float64
}

// DefaultConfig returns the detection tunables used when none are
// supplied.
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		AlphaThreshold:    0,
		SaliencyStdFactor: 0.5,
		MinAreaFrac:       0.01,
	}
}

// BoxDetector finds the bounding box of an image's meaningful content.
// It never fails: the worst case result is the full image bounds.
type BoxDetector struct {
	config DetectionConfig
}

// New creates a BoxDetector with default configuration.
func New() *BoxDetector {
	return &BoxDetector{config: DefaultConfig()}
}

// NewWithConfig creates a BoxDetector with custom configuration.
func NewWithConfig(config DetectionConfig) *BoxDetector {
	return &BoxDetector{config: config}
}

// Detect returns the bounding box of meaningful content, expanded by
// margin on each side and clamped to the image. A margin below 1.0 is
// interpreted as a fraction of the longer image dimension; 1.0 and above
// as whole pixels. Degenerate detections fall back to the full bounds.
func (d *BoxDetector) Detect(img *image.NRGBA, margin float64) types.BoundingBox {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return types.FullImage(w, h)
	}

	var box types.BoundingBox
	var found bool
	if d.alphaMeaningful(img) {
		box, found = d.alphaBox(img)
	} else {
		box, found = d.saliencyBox(img)
	}
	if !found {
		return types.FullImage(w, h)
	}

	px := int(margin)
	if margin > 0 && margin < 1 {
		long := w
		if h > long {
			long = h
		}
		px = int(math.Round(margin * float64(long)))
	}
	box = box.Expand(px, w, h)

	if float64(box.Area()) < d.config.MinAreaFrac*float64(w*h) {
		return types.FullImage(w, h)
	}
	return box
}

// alphaMeaningful reports whether the alpha channel varies at all. A
// uniformly opaque channel carries no content information and detection
// falls through to saliency.
func (d *BoxDetector) alphaMeaningful(img *image.NRGBA) bool {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 3; x < len(row); x += 4 {
			if row[x] != 0xff {
				return true
			}
		}
	}
	return false
}

// alphaBox computes the tight box enclosing all pixels whose alpha
// exceeds the configured threshold.
func (d *BoxDetector) alphaBox(img *image.NRGBA) (types.BoundingBox, bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	minX, minY := w, h
	maxX, maxY := -1, -1

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			if row[x*4+3] > d.config.AlphaThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return types.BoundingBox{}, false
	}
	return types.BoundingBox{X0: minX, Y0: minY, X1: maxX + 1, Y1: maxY + 1}, true
}

// saliencyBox thresholds a local gradient-magnitude energy map at
// mean + k*std and takes the tight box of the surviving region.
func (d *BoxDetector) saliencyBox(img *image.NRGBA) (types.BoundingBox, bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w < 3 || h < 3 {
		return types.BoundingBox{}, false
	}

	energy := d.saliencyMap(img)
	mean, std := stat.MeanStdDev(energy, nil)
	if math.IsNaN(std) {
		std = 0
	}
	threshold := mean + d.config.SaliencyStdFactor*std

	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if energy[y*w+x] > threshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return types.BoundingBox{}, false
	}
	return types.BoundingBox{X0: minX, Y0: minY, X1: maxX + 1, Y1: maxY + 1}, true
}

var neighborOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1},
}

// saliencyMap estimates per-pixel saliency from the summed color
// difference against the 8-neighborhood, normalized to [0,1]. Border
// pixels keep zero energy.
func (d *BoxDetector) saliencyMap(img *image.NRGBA) []float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	energy := make([]float64, w*h)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*img.Stride + x*4
			r1 := float64(img.Pix[i])
			g1 := float64(img.Pix[i+1])
			b1 := float64(img.Pix[i+2])

			var strength float64
			for _, off := range neighborOffsets {
				j := (y+off[1])*img.Stride + (x+off[0])*4
				dr := r1 - float64(img.Pix[j])
				dg := g1 - float64(img.Pix[j+1])
				db := b1 - float64(img.Pix[j+2])
				strength += math.Sqrt(dr*dr + dg*dg + db*db)
			}

			// 8 neighbors, max channel distance sqrt(3)*255.
			energy[y*w+x] = strength / (8.0 * 441.673)
		}
	}
	return energy
}
