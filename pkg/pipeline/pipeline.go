// Package pipeline sequences the normalization stages into one
// deterministic call: decode, bounding-box crop, style classification,
// alpha repair, adaptive scaling, square framing, enhancement, encode.
// A ProcessingMetadata record is accumulated alongside every stage.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/menta2k/asset-companion/internal/config"
	"github.com/menta2k/asset-companion/pkg/alphafix"
	"github.com/menta2k/asset-companion/pkg/classify"
	"github.com/menta2k/asset-companion/pkg/enhance"
	"github.com/menta2k/asset-companion/pkg/frame"
	"github.com/menta2k/asset-companion/pkg/imageio"
	"github.com/menta2k/asset-companion/pkg/scale"
	"github.com/menta2k/asset-companion/pkg/superres"
	"github.com/menta2k/asset-companion/pkg/types"
	"github.com/menta2k/asset-companion/pkg/vision"
)

// StageError wraps an unexpected internal failure in a named stage. It
// is fatal: the destination is left absent or unchanged.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options controls a single pipeline invocation.
type Options struct {
	// Target is the output square side in pixels.
	Target int
	// TargetWidth/TargetHeight, when both set, select a non-square
	// output frame instead of Target x Target.
	TargetWidth  int
	TargetHeight int
	// Kind is the requested style; KindAuto resolves by classification.
	Kind types.Kind
	// SuperRes is the requested super-resolution method.
	SuperRes types.SuperRes
	// Margin expands the detected bounding box: values below 1.0 are a
	// fraction of the longer dimension, 1.0 and above whole pixels.
	// Negative means use the configured default.
	Margin float64
	// Format selects the encoding for Process output bytes ("png",
	// "webp", "jpg"); empty means png.
	Format string
	// LogSink, when set, receives the finished metadata record as a
	// single JSON line.
	LogSink io.Writer
}

// DefaultOptions returns options for a 512px square with auto style
// detection and no super-resolution.
func DefaultOptions() Options {
	return Options{
		Target:   512,
		Kind:     types.KindAuto,
		SuperRes: types.SuperResNone,
		Margin:   -1,
	}
}

// Pipeline is the orchestrator. It is safe for concurrent use: every
// invocation is an independent, synchronous computation and the only
// shared state is the adapter's single-assignment binary path cache.
type Pipeline struct {
	cfg        *config.Config
	detector   *vision.BoxDetector
	classifier *classify.Classifier
	scaler     *scale.Scaler
	framer     *frame.Framer
	enhancer   *enhance.Enhancer
	logger     *log.Logger
}

// New creates a pipeline from configuration and an injected
// super-resolution adapter. A nil adapter behaves like a permanently
// unavailable tool; a nil logger disables diagnostics.
func New(cfg *config.Config, adapter superres.Adapter, logger *log.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pipeline{
		cfg: cfg,
		detector: vision.NewWithConfig(vision.DetectionConfig{
			AlphaThreshold:    cfg.Detect.AlphaThreshold,
			SaliencyStdFactor: cfg.Detect.SaliencyStdFactor,
			MinAreaFrac:       cfg.Detect.MinAreaFrac,
		}),
		classifier: classify.NewWithConfig(classify.Config{
			ProbeSize:       cfg.Classify.ProbeSize,
			MaxColors:       cfg.Classify.MaxColors,
			EdgeGradientMin: cfg.Classify.EdgeGradientMin,
			MinEdgeRatio:    cfg.Classify.MinEdgeRatio,
			MaxPixelArtSize: cfg.Classify.MaxPixelArtSize,
		}),
		scaler: scale.New(adapter),
		framer: frame.NewWithConfig(frame.Config{
			CoverageThreshold: cfg.Frame.CoverageThreshold,
		}),
		enhancer: enhance.NewWithConfig(enhance.Config{
			Radius:    cfg.Enhance.Radius,
			Amount:    cfg.Enhance.Amount,
			Threshold: cfg.Enhance.Threshold,
		}),
		logger: logger,
	}
}

// Process runs the full pipeline on raw image bytes and returns the
// encoded result plus the finalized metadata record. Any fatal stage
// error aborts the call; only super-resolution unavailability is
// degraded to a warning.
func (p *Pipeline) Process(ctx context.Context, src []byte, opts Options) ([]byte, *types.Metadata, error) {
	img, icc, meta, err := p.run(ctx, src, opts)
	if err != nil {
		p.logRecord(opts.LogSink, meta)
		return nil, meta, err
	}

	out, err := imageio.EncodeBytes(img, icc, opts.Format)
	if err != nil {
		p.logRecord(opts.LogSink, meta)
		return nil, meta, err
	}

	meta.OK = true
	p.logRecord(opts.LogSink, meta)
	return out, meta, nil
}

// ProcessFile runs the pipeline from a source path to a destination
// path. The destination is written atomically: a failed call leaves it
// absent or unchanged.
func (p *Pipeline) ProcessFile(ctx context.Context, srcPath, dstPath string, opts Options) (*types.Metadata, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		meta := &types.Metadata{Source: srcPath}
		p.logRecord(opts.LogSink, meta)
		return meta, &imageio.DecodeError{Err: err}
	}

	img, icc, meta, err := p.run(ctx, data, opts)
	meta.Source = srcPath
	if err != nil {
		p.logRecord(opts.LogSink, meta)
		return meta, err
	}

	if err := imageio.Encode(img, icc, dstPath); err != nil {
		p.logRecord(opts.LogSink, meta)
		return meta, err
	}

	meta.Destination = dstPath
	meta.OK = true
	p.logRecord(opts.LogSink, meta)
	return meta, nil
}

// run executes the stages up to, but not including, the final encode.
// Cancellation is honored at stage boundaries only: a stage that has
// begun mutating a buffer finishes before the abort, so no half
// transformed image is ever observable.
func (p *Pipeline) run(ctx context.Context, src []byte, opts Options) (*image.NRGBA, []byte, *types.Metadata, error) {
	meta := &types.Metadata{Warnings: []string{}}

	targetW, targetH, err := resolveTarget(opts)
	if err != nil {
		return nil, nil, meta, err
	}
	if !opts.Kind.Valid() {
		return nil, nil, meta, fmt.Errorf("invalid kind %q", opts.Kind)
	}
	if !opts.SuperRes.Valid() {
		return nil, nil, meta, fmt.Errorf("invalid superres method %q", opts.SuperRes)
	}
	meta.SuperResRequested = opts.SuperRes == types.SuperResRealESRGAN

	if err := ctx.Err(); err != nil {
		return nil, nil, meta, err
	}
	img, icc, err := imageio.Decode(src)
	if err != nil {
		return nil, nil, meta, err
	}
	meta.OriginalWidth = img.Rect.Dx()
	meta.OriginalHeight = img.Rect.Dy()

	if err := ctx.Err(); err != nil {
		return nil, nil, meta, err
	}
	margin := opts.Margin
	if margin < 0 {
		margin = p.cfg.Detect.Margin
	}
	box := p.detector.Detect(img, margin)
	meta.BoundingBox = box
	if box != types.FullImage(img.Rect.Dx(), img.Rect.Dy()) {
		img = imaging.Crop(img, image.Rect(box.X0, box.Y0, box.X1, box.Y1))
	}
	meta.CroppedWidth = img.Rect.Dx()
	meta.CroppedHeight = img.Rect.Dy()

	if err := ctx.Err(); err != nil {
		return nil, nil, meta, err
	}
	kind := p.classifier.Resolve(img, opts.Kind)
	meta.ResolvedKind = kind
	p.logger.Debug("classified content",
		"kind", kind, "box", box.String(),
		"cropped", fmt.Sprintf("%dx%d", meta.CroppedWidth, meta.CroppedHeight))

	if err := ctx.Err(); err != nil {
		return nil, nil, meta, err
	}
	alphafix.Unpremultiply(img)
	alphafix.Defringe(img, p.cfg.Alpha.DefringeRadius)

	if err := ctx.Err(); err != nil {
		return nil, nil, meta, err
	}
	img, plan, warnings, err := p.scaler.Apply(ctx, img, kind, targetW, targetH, opts.SuperRes)
	if err != nil {
		return nil, nil, meta, &StageError{Stage: "scale", Err: err}
	}
	for _, w := range warnings {
		meta.Warn("%s", w)
		p.logger.Warn(w)
	}
	meta.ScalingAlgorithm = plan.Algorithm
	meta.SuperResApplied = plan.SuperResApplied

	if err := ctx.Err(); err != nil {
		return nil, nil, meta, err
	}
	img = p.framer.Fit(img, targetW, targetH)

	if kind == types.KindIllustration {
		if err := ctx.Err(); err != nil {
			return nil, nil, meta, err
		}
		alphafix.SmoothEdges(img, p.cfg.Alpha.EdgeSmoothSigma)
		p.enhancer.UnsharpMask(img)
	}

	meta.FinalWidth = img.Rect.Dx()
	meta.FinalHeight = img.Rect.Dy()
	return img, icc, meta, nil
}

func resolveTarget(opts Options) (int, int, error) {
	if opts.TargetWidth > 0 && opts.TargetHeight > 0 {
		return opts.TargetWidth, opts.TargetHeight, nil
	}
	if opts.Target <= 0 {
		return 0, 0, fmt.Errorf("target size must be positive, got %d", opts.Target)
	}
	return opts.Target, opts.Target, nil
}

// logRecord writes one JSON line per processed image, matching the
// JSONL sidecar log format.
func (p *Pipeline) logRecord(sink io.Writer, meta *types.Metadata) {
	if sink == nil || meta == nil {
		return
	}
	line, err := json.Marshal(meta)
	if err != nil {
		p.logger.Warn("failed to marshal metadata record", "err", err)
		return
	}
	line = append(line, '\n')
	if _, err := sink.Write(line); err != nil {
		p.logger.Warn("failed to write metadata record", "err", err)
	}
}
