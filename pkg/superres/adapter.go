// Package superres is the boundary to an external, optionally-absent
// super-resolution tool. The adapter owns availability and fallback
// decisions; the scaling algorithm itself lives in pkg/scale.
package superres

import (
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ErrUnavailable is returned when an upscale is invoked while the
// external tool is missing and unprovisionable. Callers must check
// Available first and degrade to plain resampling instead of letting
// this error escape a pipeline call.
var ErrUnavailable = errors.New("super-resolution tool unavailable")

// Adapter upscales an image with an external tool at the tool's fixed
// native factor.
type Adapter interface {
	// Available reports whether the tool can be invoked right now.
	Available(ctx context.Context) bool
	// Upscale returns a new buffer scaled up by Factor. It fails with
	// ErrUnavailable when invoked while unavailable.
	Upscale(ctx context.Context, img *image.NRGBA) (*image.NRGBA, error)
	// Factor is the tool's fixed native upscale factor.
	Factor() int
}

// Stub is a deterministic in-process Adapter for tests and for callers
// that want super-resolution behavior without the external binary.
type Stub struct {
	// Availability is returned verbatim from Available.
	Availability bool
	// ScaleFactor defaults to 4 when zero.
	ScaleFactor int
	// Err, when set, is returned from Upscale even if available.
	Err error
}

// Available implements Adapter.
func (s *Stub) Available(ctx context.Context) bool { return s.Availability }

// Factor implements Adapter.
func (s *Stub) Factor() int {
	if s.ScaleFactor <= 0 {
		return 4
	}
	return s.ScaleFactor
}

// Upscale implements Adapter with a plain resampled upscale.
func (s *Stub) Upscale(ctx context.Context, img *image.NRGBA) (*image.NRGBA, error) {
	if !s.Availability {
		return nil, ErrUnavailable
	}
	if s.Err != nil {
		return nil, s.Err
	}
	f := s.Factor()
	return imaging.Resize(img, img.Rect.Dx()*f, img.Rect.Dy()*f, imaging.NearestNeighbor), nil
}
