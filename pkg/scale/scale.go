// Package scale resizes cropped content with a style-appropriate
// algorithm: integer nearest-neighbor for pixel art, Lanczos (optionally
// after an external super-resolution upscale) for illustrations. The
// scaling decision is resolved once into a types.ScalingPlan consumed
// uniformly by the later stages.
package scale

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/asset-companion/pkg/superres"
	"github.com/menta2k/asset-companion/pkg/types"
)

// Scaler applies the style-dependent scaling branch. The adapter may be
// nil, which behaves like a permanently unavailable tool.
type Scaler struct {
	adapter superres.Adapter
}

// New creates a Scaler backed by the given super-resolution adapter.
func New(adapter superres.Adapter) *Scaler {
	return &Scaler{adapter: adapter}
}

// IntegerFactor returns the largest whole-number upscale of a w x h
// source that still fits a targetLong-sized long side, clamped to 1.
func IntegerFactor(w, h, targetLong int) int {
	long := w
	if h > long {
		long = h
	}
	if long <= 0 {
		return 1
	}
	factor := targetLong / long
	if factor < 1 {
		factor = 1
	}
	return factor
}

// Apply resizes img for a targetW x targetH frame according to the
// resolved kind and returns the truthful scaling plan plus any non-fatal
// warnings. kind must be resolved before calling.
//
// Pixel art is scaled by a whole-number factor with nearest-neighbor
// only; any remaining shortfall is left for the framing stage to pad. A
// factor of 1 is a no-op so an already-correctly-scaled source passes
// through byte-identical. Illustrations are Lanczos-resampled to fit the
// frame, never upscaling unless a super-resolution pass ran first; a
// requested-but-skipped super-resolution degrades to a warning.
func (s *Scaler) Apply(ctx context.Context, img *image.NRGBA, kind types.Kind, targetW, targetH int, requested types.SuperRes) (*image.NRGBA, types.ScalingPlan, []string, error) {
	if !kind.Resolved() {
		return nil, types.ScalingPlan{}, nil, fmt.Errorf("scale: unresolved kind %q", kind)
	}

	if kind == types.KindPixelArt {
		out, plan := s.applyNearest(img, targetW, targetH)
		var warnings []string
		if requested == types.SuperResRealESRGAN {
			warnings = append(warnings, "super-resolution skipped: not applicable to pixel art")
		}
		return out, plan, warnings, nil
	}
	return s.applyLanczos(ctx, img, targetW, targetH, requested)
}

func (s *Scaler) applyNearest(img *image.NRGBA, targetW, targetH int) (*image.NRGBA, types.ScalingPlan) {
	targetLong := targetW
	if targetH > targetLong {
		targetLong = targetH
	}
	factor := IntegerFactor(img.Rect.Dx(), img.Rect.Dy(), targetLong)

	out := img
	if factor > 1 {
		out = imaging.Resize(img, img.Rect.Dx()*factor, img.Rect.Dy()*factor, imaging.NearestNeighbor)
	}
	plan := types.ScalingPlan{
		Algorithm:    types.AlgorithmNearest,
		Factor:       factor,
		TargetWidth:  out.Rect.Dx(),
		TargetHeight: out.Rect.Dy(),
	}
	return out, plan
}

func (s *Scaler) applyLanczos(ctx context.Context, img *image.NRGBA, targetW, targetH int, requested types.SuperRes) (*image.NRGBA, types.ScalingPlan, []string, error) {
	var warnings []string
	applied := false

	if requested == types.SuperResRealESRGAN {
		switch {
		case s.adapter == nil || !s.adapter.Available(ctx):
			warnings = append(warnings, "super-resolution requested but tool unavailable, falling back to lanczos")
		default:
			upscaled, err := s.adapter.Upscale(ctx, img)
			if errors.Is(err, superres.ErrUnavailable) {
				warnings = append(warnings, "super-resolution requested but tool unavailable, falling back to lanczos")
			} else if err != nil {
				return nil, types.ScalingPlan{}, warnings, fmt.Errorf("super-resolution upscale: %w", err)
			} else {
				img = upscaled
				applied = true
			}
		}
	}

	out := fitWithin(img, targetW, targetH)
	plan := types.ScalingPlan{
		Algorithm:       types.AlgorithmLanczos,
		TargetWidth:     out.Rect.Dx(),
		TargetHeight:    out.Rect.Dy(),
		SuperResApplied: applied,
	}
	return out, plan, warnings, nil
}

// fitWithin downscales img with Lanczos so it fits a w x h box,
// preserving aspect ratio. Content already inside the box is returned
// untouched; the shortfall is resolved later by padding, never by
// upscaling.
func fitWithin(img *image.NRGBA, w, h int) *image.NRGBA {
	sw, sh := img.Rect.Dx(), img.Rect.Dy()
	if sw <= w && sh <= h {
		return img
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}
