// Package assetcompanion normalizes arbitrary user-supplied images into
// clean, square game and app assets.
//
// The pipeline finds the meaningful content, classifies the art style,
// rescales it with a style-appropriate algorithm, repairs alpha-channel
// artifacts, frames it to an exact square, optionally sharpens the
// result, and writes it back with color-profile fidelity.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		assetcompanion "github.com/menta2k/asset-companion"
//		"github.com/menta2k/asset-companion/pkg/pipeline"
//	)
//
//	func main() {
//		companion := assetcompanion.New()
//
//		opts := pipeline.DefaultOptions()
//		opts.Target = 512
//
//		meta, err := companion.ProcessFile(context.Background(), "sprite.png", "sprite_square.png", opts)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("%s: %dx%d -> %dx%d (%s)\n", meta.Source,
//			meta.OriginalWidth, meta.OriginalHeight,
//			meta.FinalWidth, meta.FinalHeight, meta.ResolvedKind)
//	}
//
// The heavy lifting lives in the sub-packages:
//
//  1. ImageIO (pkg/imageio): decoding, ICC pass-through, atomic encoding
//  2. Vision (pkg/vision): content bounding-box detection
//  3. Classify (pkg/classify): pixel-art vs illustration heuristics
//  4. Alphafix (pkg/alphafix): unpremultiply, defringe, edge smoothing
//  5. Scale (pkg/scale): nearest/Lanczos scaling and super-resolution
//  6. Frame (pkg/frame): smart square cropping and padding
//  7. Enhance (pkg/enhance): final unsharp-mask polish
//  8. Superres (pkg/superres): the optional external upscaler boundary
//
// Pixel art is scaled by whole-number factors with nearest-neighbor
// resampling so hard edges survive; illustrations go through Lanczos
// resampling, optionally preceded by a Real-ESRGAN upscale when the
// external tool is present. A missing tool is never an error: the
// pipeline degrades to plain Lanczos and records a warning in the
// returned metadata.
package assetcompanion

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/menta2k/asset-companion/internal/config"
	"github.com/menta2k/asset-companion/pkg/pipeline"
	"github.com/menta2k/asset-companion/pkg/superres"
	"github.com/menta2k/asset-companion/pkg/types"
)

// Version of the asset companion library
const Version = "1.0.0"

// Companion provides a high-level interface for asset normalization.
type Companion struct {
	pipeline *pipeline.Pipeline
	config   *config.Config
}

// New creates a Companion with default configuration and the standard
// Real-ESRGAN adapter (no auto-download).
func New() *Companion {
	cfg := config.Default()
	logger := log.New(io.Discard)
	return NewWithConfig(cfg, defaultAdapter(cfg, logger), logger)
}

// NewWithConfig creates a Companion with custom configuration, a custom
// super-resolution adapter, and a diagnostics logger. A nil adapter
// behaves like a permanently unavailable tool.
func NewWithConfig(cfg *config.Config, adapter superres.Adapter, logger *log.Logger) *Companion {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Companion{
		pipeline: pipeline.New(cfg, adapter, logger),
		config:   cfg,
	}
}

func defaultAdapter(cfg *config.Config, logger *log.Logger) superres.Adapter {
	return superres.NewRealESRGAN(superres.RealESRGANConfig{
		Model:        cfg.SuperRes.Model,
		Scale:        cfg.SuperRes.Scale,
		Timeout:      cfg.SuperRes.Timeout(),
		CacheDir:     cfg.SuperRes.CacheDir,
		AutoDownload: cfg.SuperRes.AutoDownload,
	}, logger)
}

// Process normalizes raw image bytes and returns the encoded result
// alongside the processing metadata.
func (c *Companion) Process(ctx context.Context, src []byte, opts pipeline.Options) ([]byte, *types.Metadata, error) {
	return c.pipeline.Process(ctx, src, opts)
}

// ProcessFile normalizes the image at srcPath into dstPath. The
// destination is written atomically and is left absent or unchanged on
// failure.
func (c *Companion) ProcessFile(ctx context.Context, srcPath, dstPath string, opts pipeline.Options) (*types.Metadata, error) {
	return c.pipeline.ProcessFile(ctx, srcPath, dstPath, opts)
}

// GetVersion returns the library version.
func GetVersion() string {
	return Version
}
