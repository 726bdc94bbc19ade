package superres

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/menta2k/asset-companion/pkg/imageio"
)

// Known-good portable ncnn-vulkan release.
const (
	realesrganVersion  = "v0.2.5.0"
	realesrganReleases = "https://github.com/xinntao/Real-ESRGAN/releases"
)

// RealESRGANConfig holds the tunables for the external tool invocation.
type RealESRGANConfig struct {
	// Model is the network to run, e.g. "realesrgan-x4plus".
	Model string `json:"model"`
	// Scale is the tool's native upscale factor.
	Scale int `json:"scale"`
	// Timeout bounds a single subprocess invocation.
	Timeout time.Duration `json:"timeout"`
	// CacheDir is where downloaded portable bundles live. Empty means
	// ~/.cache/asset-companion/realesrgan.
	CacheDir string `json:"cache_dir"`
	// AutoDownload allows the adapter to fetch the portable bundle from
	// GitHub releases when no binary is found.
	AutoDownload bool `json:"auto_download"`
}

// DefaultRealESRGANConfig returns the adapter defaults.
func DefaultRealESRGANConfig() RealESRGANConfig {
	return RealESRGANConfig{
		Model:   "realesrgan-x4plus",
		Scale:   4,
		Timeout: 5 * time.Minute,
	}
}

// RealESRGAN runs the realesrgan-ncnn-vulkan binary. The resolved binary
// path is cached at most once for the process lifetime; concurrent
// resolution attempts (including a download) are deduplicated.
type RealESRGAN struct {
	config RealESRGANConfig
	logger *log.Logger

	mu       sync.Mutex
	resolved bool
	binary   string

	group singleflight.Group
}

// NewRealESRGAN creates the external-tool adapter. A nil logger disables
// diagnostics.
func NewRealESRGAN(config RealESRGANConfig, logger *log.Logger) *RealESRGAN {
	if config.Model == "" {
		config.Model = "realesrgan-x4plus"
	}
	if config.Scale <= 0 {
		config.Scale = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &RealESRGAN{config: config, logger: logger}
}

// Factor implements Adapter.
func (r *RealESRGAN) Factor() int { return r.config.Scale }

// Available implements Adapter.
func (r *RealESRGAN) Available(ctx context.Context) bool {
	_, err := r.binaryPath(ctx)
	return err == nil
}

// Upscale implements Adapter. The image round-trips through temporary
// PNG files; the subprocess runs with its own directory as cwd so the
// bundled models resolve, and is killed on context cancellation or
// timeout.
func (r *RealESRGAN) Upscale(ctx context.Context, img *image.NRGBA) (*image.NRGBA, error) {
	binary, err := r.binaryPath(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	workDir, err := os.MkdirTemp("", "asset-companion-sr-*")
	if err != nil {
		return nil, fmt.Errorf("superres workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	inPath := filepath.Join(workDir, "in.png")
	outPath := filepath.Join(workDir, "out.png")
	if err := imageio.Encode(img, nil, inPath); err != nil {
		return nil, fmt.Errorf("superres input: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binary,
		"-i", inPath,
		"-o", outPath,
		"-s", strconv.Itoa(r.config.Scale),
		"-n", r.config.Model,
		"-f", "png",
	)
	cmd.Dir = filepath.Dir(binary)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("realesrgan: %w", runCtx.Err())
		}
		return nil, fmt.Errorf("realesrgan failed: %w: %s", err, output)
	}
	r.logger.Debug("realesrgan finished", "elapsed", time.Since(start))

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("realesrgan produced no output: %w", err)
	}
	upscaled, _, err := imageio.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("superres output: %w", err)
	}
	return upscaled, nil
}

// binaryPath resolves the tool binary, populating the single-assignment
// cache on first success. Resolution order: PATH, cache dir, optional
// download. Failures are not cached so a later provisioning attempt can
// still succeed.
func (r *RealESRGAN) binaryPath(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.resolved {
		path := r.binary
		r.mu.Unlock()
		return path, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do("resolve", func() (interface{}, error) {
		return r.resolve(ctx)
	})
	if err != nil {
		return "", err
	}
	path := v.(string)

	r.mu.Lock()
	if !r.resolved {
		r.resolved = true
		r.binary = path
	}
	path = r.binary
	r.mu.Unlock()
	return path, nil
}

func (r *RealESRGAN) resolve(ctx context.Context) (string, error) {
	name := binaryName()
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	bundleDir := r.bundleDir()
	if path, err := findInBundle(bundleDir, name); err == nil {
		return path, nil
	}

	if !r.config.AutoDownload {
		return "", fmt.Errorf("%s not found in PATH or %s", name, bundleDir)
	}
	return r.download(ctx)
}

func (r *RealESRGAN) cacheDir() string {
	if r.config.CacheDir != "" {
		return r.config.CacheDir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "asset-companion", "realesrgan")
}

func (r *RealESRGAN) bundleDir() string {
	return filepath.Join(r.cacheDir(), "portable-"+realesrganVersion)
}

// download fetches and extracts the portable release bundle. The whole
// bundle is kept intact: the binary resolves models/ relative to its
// own directory.
func (r *RealESRGAN) download(ctx context.Context) (string, error) {
	asset := assetName()
	if asset == "" {
		return "", fmt.Errorf("no portable realesrgan build for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	url := fmt.Sprintf("%s/download/%s/%s", realesrganReleases, realesrganVersion, asset)
	r.logger.Info("downloading realesrgan-ncnn-vulkan", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download realesrgan: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download realesrgan: HTTP %d", resp.StatusCode)
	}

	cacheDir := r.cacheDir()
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}
	zipPath := filepath.Join(cacheDir, asset)
	f, err := os.Create(zipPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(zipPath)
		return "", fmt.Errorf("download realesrgan: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(zipPath)
		return "", err
	}
	defer os.Remove(zipPath)

	bundleDir := r.bundleDir()
	os.RemoveAll(bundleDir)
	if err := extractZip(zipPath, bundleDir); err != nil {
		return "", fmt.Errorf("extract realesrgan: %w", err)
	}

	path, err := findInBundle(bundleDir, binaryName())
	if err != nil {
		return "", err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, 0o755); err != nil {
			return "", err
		}
	}
	r.logger.Info("realesrgan ready", "binary", path)
	return path, nil
}

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "realesrgan-ncnn-vulkan.exe"
	}
	return "realesrgan-ncnn-vulkan"
}

func assetName() string {
	switch runtime.GOOS {
	case "windows":
		return "realesrgan-ncnn-vulkan-20220424-windows.zip"
	case "linux":
		return "realesrgan-ncnn-vulkan-20220424-ubuntu.zip"
	case "darwin":
		return "realesrgan-ncnn-vulkan-20220424-macos.zip"
	}
	return ""
}

// findInBundle locates the binary inside an extracted bundle and checks
// that the models directory travelled with it. Moving only the
// executable out of the bundle breaks model resolution at runtime.
func findInBundle(dir, name string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil || found == "" {
		return "", fmt.Errorf("binary %s not found under %s", name, dir)
	}
	models := filepath.Join(filepath.Dir(found), "models")
	if info, err := os.Stat(models); err != nil || !info.IsDir() {
		return "", fmt.Errorf("bundle at %s is missing its models directory", dir)
	}
	return found, nil
}

func extractZip(zipPath, destDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, entry := range zr.File {
		target := filepath.Join(destDir, filepath.Clean(entry.Name))
		if !filepath.IsLocal(filepath.Clean(entry.Name)) {
			return fmt.Errorf("zip entry escapes bundle dir: %s", entry.Name)
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := entry.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return err
		}
		out.Close()
		rc.Close()
	}
	return nil
}
