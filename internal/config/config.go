package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the application configuration. Every heuristic threshold
// in the pipeline is a named field here rather than an inlined constant.
type Config struct {
	Detect   DetectConfig   `json:"detect"`
	Classify ClassifyConfig `json:"classify"`
	Alpha    AlphaConfig    `json:"alpha"`
	Frame    FrameConfig    `json:"frame"`
	Enhance  EnhanceConfig  `json:"enhance"`
	SuperRes SuperResConfig `json:"superres"`
	Output   OutputConfig   `json:"output"`
}

// DetectConfig holds configuration for bounding-box detection.
type DetectConfig struct {
	AlphaThreshold    uint8   `json:"alpha_threshold"`
	SaliencyStdFactor float64 `json:"saliency_std_factor"`
	MinAreaFrac       float64 `json:"min_area_frac"`
	Margin            float64 `json:"margin"`
}

// ClassifyConfig holds configuration for style classification.
type ClassifyConfig struct {
	ProbeSize       int     `json:"probe_size"`
	MaxColors       int     `json:"max_colors"`
	EdgeGradientMin float64 `json:"edge_gradient_min"`
	MinEdgeRatio    float64 `json:"min_edge_ratio"`
	MaxPixelArtSize int     `json:"max_pixel_art_size"`
}

// AlphaConfig holds configuration for alpha repair.
type AlphaConfig struct {
	DefringeRadius  int     `json:"defringe_radius"`
	EdgeSmoothSigma float64 `json:"edge_smooth_sigma"`
}

// FrameConfig holds configuration for square framing.
type FrameConfig struct {
	CoverageThreshold float64 `json:"coverage_threshold"`
}

// EnhanceConfig holds configuration for the unsharp-mask pass.
type EnhanceConfig struct {
	Radius    float64 `json:"radius"`
	Amount    float64 `json:"amount"`
	Threshold float64 `json:"threshold"`
}

// SuperResConfig holds configuration for the external upscaler.
type SuperResConfig struct {
	Model        string `json:"model"`
	Scale        int    `json:"scale"`
	TimeoutSec   int    `json:"timeout_sec"`
	CacheDir     string `json:"cache_dir"`
	AutoDownload bool   `json:"auto_download"`
}

// Timeout returns the subprocess timeout as a duration.
func (s SuperResConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// OutputConfig holds configuration for output generation.
type OutputConfig struct {
	DefaultFormat string `json:"default_format"`
	OutputDir     string `json:"output_dir"`
	Suffix        string `json:"suffix"`
	LogJSONL      string `json:"log_jsonl"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Detect: DetectConfig{
			AlphaThreshold:    0,
			SaliencyStdFactor: 0.5,
			MinAreaFrac:       0.01,
			Margin:            2,
		},
		Classify: ClassifyConfig{
			ProbeSize:       128,
			MaxColors:       80,
			EdgeGradientMin: 0.25,
			MinEdgeRatio:    0.12,
			MaxPixelArtSize: 512,
		},
		Alpha: AlphaConfig{
			DefringeRadius:  2,
			EdgeSmoothSigma: 0.5,
		},
		Frame: FrameConfig{
			CoverageThreshold: 0.85,
		},
		Enhance: EnhanceConfig{
			Radius:    1.0,
			Amount:    0.1,
			Threshold: 1.0,
		},
		SuperRes: SuperResConfig{
			Model:        "realesrgan-x4plus",
			Scale:        4,
			TimeoutSec:   300,
			AutoDownload: false,
		},
		Output: OutputConfig{
			DefaultFormat: "png",
			OutputDir:     "./output",
			Suffix:        "_square",
		},
	}
}

// LoadFromFile loads configuration from a JSON file.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file.
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Detect.SaliencyStdFactor < 0 {
		return fmt.Errorf("detect.saliency_std_factor must not be negative")
	}

	if c.Detect.MinAreaFrac < 0 || c.Detect.MinAreaFrac > 1 {
		return fmt.Errorf("detect.min_area_frac must be between 0 and 1")
	}

	if c.Detect.Margin < 0 {
		return fmt.Errorf("detect.margin must not be negative")
	}

	if c.Classify.ProbeSize < 8 {
		return fmt.Errorf("classify.probe_size must be at least 8")
	}

	if c.Classify.MaxColors < 2 {
		return fmt.Errorf("classify.max_colors must be at least 2")
	}

	if c.Classify.MinEdgeRatio < 0 || c.Classify.MinEdgeRatio > 1 {
		return fmt.Errorf("classify.min_edge_ratio must be between 0 and 1")
	}

	if c.Alpha.DefringeRadius < 0 {
		return fmt.Errorf("alpha.defringe_radius must not be negative")
	}

	if c.Frame.CoverageThreshold < 0 || c.Frame.CoverageThreshold > 1 {
		return fmt.Errorf("frame.coverage_threshold must be between 0 and 1")
	}

	if c.Enhance.Amount < 0 || c.Enhance.Amount > 1 {
		return fmt.Errorf("enhance.amount must be between 0 and 1")
	}

	if c.SuperRes.Scale < 1 {
		return fmt.Errorf("superres.scale must be at least 1")
	}

	if c.SuperRes.TimeoutSec < 1 {
		return fmt.Errorf("superres.timeout_sec must be at least 1")
	}

	return nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "asset-companion", "config.json")
}
