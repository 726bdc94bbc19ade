package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"

	assetcompanion "github.com/menta2k/asset-companion"
	"github.com/menta2k/asset-companion/internal/config"
	"github.com/menta2k/asset-companion/internal/utils"
	"github.com/menta2k/asset-companion/pkg/pipeline"
	"github.com/menta2k/asset-companion/pkg/superres"
	"github.com/menta2k/asset-companion/pkg/types"
)

func main() {
	var in, outDir, kind, superresMethod, format, configPath, logPath string
	var target, targetW, targetH int
	var margin float64
	var download, verbose bool

	flag.StringVar(&in, "in", "", "input image path or directory (jpg/png/gif/bmp/tiff/webp)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.IntVar(&target, "target", 512, "target square size in pixels")
	flag.IntVar(&targetW, "width", 0, "target width (with -height, overrides -target)")
	flag.IntVar(&targetH, "height", 0, "target height (with -width, overrides -target)")
	flag.StringVar(&kind, "kind", "auto", "art style: auto|pixel_art|illustration")
	flag.StringVar(&superresMethod, "superres", "none", "super-resolution: none|realesrgan")
	flag.Float64Var(&margin, "margin", -1, "bounding-box margin: <1 fraction of long side, >=1 pixels, -1 config default")
	flag.StringVar(&format, "format", "", "output format: png|webp|jpg (default from config)")
	flag.StringVar(&configPath, "config", "", "config file path (JSON)")
	flag.StringVar(&logPath, "log", "", "append one JSON metadata line per image to this file")
	flag.BoolVar(&download, "download", false, "allow auto-download of the realesrgan portable bundle")
	flag.BoolVar(&verbose, "v", false, "verbose diagnostics")
	flag.Parse()

	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if in == "" {
		logger.Fatalf("usage: %s -in input.png|dir [-out outdir] [-target 512] [-kind auto|pixel_art|illustration] [-superres none|realesrgan]", filepath.Base(os.Args[0]))
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			logger.Fatal("failed to load config", "err", err)
		}
		cfg = loaded
	}
	if download {
		cfg.SuperRes.AutoDownload = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", "err", err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		logger.Fatal("failed to create output directory", "err", err)
	}

	adapter := superres.NewRealESRGAN(superres.RealESRGANConfig{
		Model:        cfg.SuperRes.Model,
		Scale:        cfg.SuperRes.Scale,
		Timeout:      cfg.SuperRes.Timeout(),
		CacheDir:     cfg.SuperRes.CacheDir,
		AutoDownload: cfg.SuperRes.AutoDownload,
	}, logger)
	companion := assetcompanion.NewWithConfig(cfg, adapter, logger)

	opts := pipeline.DefaultOptions()
	opts.Target = target
	opts.TargetWidth = targetW
	opts.TargetHeight = targetH
	opts.Kind = types.Kind(kind)
	opts.SuperRes = types.SuperRes(superresMethod)
	opts.Margin = margin
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	opts.Format = format

	if logPath == "" {
		logPath = cfg.Output.LogJSONL
	}
	if logPath != "" {
		sink, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Fatal("failed to open metadata log", "err", err)
		}
		defer sink.Close()
		opts.LogSink = sink
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inputs, err := collectInputs(in)
	if err != nil {
		logger.Fatal("failed to collect inputs", "err", err)
	}
	if len(inputs) == 0 {
		logger.Fatal("no image files found", "in", in)
	}

	failed := 0
	for _, src := range inputs {
		dst := utils.GenerateOutputFilename(src, outDir, cfg.Output.Suffix, format)
		meta, err := companion.ProcessFile(ctx, src, dst, opts)
		if err != nil {
			if ctx.Err() != nil {
				logger.Fatal("interrupted", "err", ctx.Err())
			}
			logger.Error("processing failed", "src", src, "err", err)
			failed++
			continue
		}
		logger.Info("wrote asset",
			"dst", dst,
			"kind", meta.ResolvedKind,
			"size", fmt.Sprintf("%dx%d", meta.FinalWidth, meta.FinalHeight),
			"warnings", len(meta.Warnings))
		for _, w := range meta.Warnings {
			logger.Warn(w, "src", src)
		}
	}
	if failed > 0 {
		logger.Fatal("some images failed", "failed", failed, "total", len(inputs))
	}
}

func collectInputs(in string) ([]string, error) {
	info, err := os.Stat(in)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return utils.ListImageFiles(in)
	}
	if !utils.IsImageFile(in) {
		return nil, fmt.Errorf("unsupported input file: %s", in)
	}
	return []string{in}, nil
}
