package types

import "fmt"

// Kind classifies source artwork so the pipeline can pick the right
// numeric path for it.
type Kind string

const (
	KindAuto         Kind = "auto"
	KindPixelArt     Kind = "pixel_art"
	KindIllustration Kind = "illustration"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAuto, KindPixelArt, KindIllustration:
		return true
	}
	return false
}

// Resolved reports whether k is a concrete, non-auto kind.
// Stages past the classifier only ever see resolved kinds.
func (k Kind) Resolved() bool {
	return k == KindPixelArt || k == KindIllustration
}

// SuperRes selects the super-resolution method requested by the caller.
// Requesting a method does not guarantee its use; actual use is recorded
// separately in Metadata.
type SuperRes string

const (
	SuperResNone       SuperRes = "none"
	SuperResRealESRGAN SuperRes = "realesrgan"
)

// Valid reports whether s is a known super-resolution method.
func (s SuperRes) Valid() bool {
	return s == SuperResNone || s == SuperResRealESRGAN
}

// Algorithm names the resampling algorithm resolved for a scaling pass.
type Algorithm string

const (
	AlgorithmNearest Algorithm = "nearest"
	AlgorithmLanczos Algorithm = "lanczos"
)

// BoundingBox is a half-open pixel rectangle (x0,y0)-(x1,y1) with
// 0 <= X0 < X1 and 0 <= Y0 < Y1, always contained in its source image.
type BoundingBox struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// FullImage returns the bounding box covering an entire w x h image.
func FullImage(w, h int) BoundingBox {
	return BoundingBox{X0: 0, Y0: 0, X1: w, Y1: h}
}

// Width returns the box width in pixels.
func (b BoundingBox) Width() int { return b.X1 - b.X0 }

// Height returns the box height in pixels.
func (b BoundingBox) Height() int { return b.Y1 - b.Y0 }

// Area returns the box area in pixels.
func (b BoundingBox) Area() int { return b.Width() * b.Height() }

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool { return b.X1 <= b.X0 || b.Y1 <= b.Y0 }

// Expand grows the box by margin pixels on each side, clamped to a
// w x h image.
func (b BoundingBox) Expand(margin, w, h int) BoundingBox {
	out := BoundingBox{
		X0: b.X0 - margin,
		Y0: b.Y0 - margin,
		X1: b.X1 + margin,
		Y1: b.Y1 + margin,
	}
	return out.Clamp(w, h)
}

// Clamp restricts the box to the bounds of a w x h image.
func (b BoundingBox) Clamp(w, h int) BoundingBox {
	if b.X0 < 0 {
		b.X0 = 0
	}
	if b.Y0 < 0 {
		b.Y0 = 0
	}
	if b.X1 > w {
		b.X1 = w
	}
	if b.Y1 > h {
		b.Y1 = h
	}
	return b
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X0, b.Y0, b.X1, b.Y1)
}

// ScalingPlan is the fully resolved scaling decision for one pipeline
// call. It is constructed once by the scaler and consumed uniformly by
// the framing and enhancement stages; SuperResApplied is always truthful
// regardless of what was requested.
type ScalingPlan struct {
	Algorithm       Algorithm `json:"algorithm"`
	Factor          int       `json:"factor,omitempty"`
	TargetWidth     int       `json:"target_width"`
	TargetHeight    int       `json:"target_height"`
	SuperResApplied bool      `json:"superres_applied"`
}

// Metadata is the append-only processing record accumulated alongside
// every pipeline stage. It is finalized at pipeline end and never
// mutated afterwards.
type Metadata struct {
	Source            string      `json:"src,omitempty"`
	Destination       string      `json:"dst,omitempty"`
	OriginalWidth     int         `json:"original_width"`
	OriginalHeight    int         `json:"original_height"`
	BoundingBox       BoundingBox `json:"bounding_box"`
	ResolvedKind      Kind        `json:"resolved_kind"`
	CroppedWidth      int         `json:"cropped_width"`
	CroppedHeight     int         `json:"cropped_height"`
	FinalWidth        int         `json:"final_width"`
	FinalHeight       int         `json:"final_height"`
	ScalingAlgorithm  Algorithm   `json:"scaling_algorithm"`
	SuperResRequested bool        `json:"superres_requested"`
	SuperResApplied   bool        `json:"superres_applied"`
	Warnings          []string    `json:"warnings"`
	OK                bool        `json:"ok"`
}

// Warn appends a non-fatal warning to the record.
func (m *Metadata) Warn(format string, args ...interface{}) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}
