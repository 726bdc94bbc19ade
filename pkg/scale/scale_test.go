package scale

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/menta2k/asset-companion/pkg/superres"
	"github.com/menta2k/asset-companion/pkg/types"
)

// checkerboard creates an opaque two-color test pattern.
func checkerboard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func TestIntegerFactor(t *testing.T) {
	cases := []struct {
		w, h, target, want int
	}{
		{16, 16, 64, 4},
		{16, 8, 64, 4},
		{30, 30, 64, 2},
		{100, 100, 64, 1},
		{64, 64, 64, 1},
		{0, 0, 64, 1},
	}

	for _, tc := range cases {
		if got := IntegerFactor(tc.w, tc.h, tc.target); got != tc.want {
			t.Errorf("IntegerFactor(%d,%d,%d) = %d, want %d", tc.w, tc.h, tc.target, got, tc.want)
		}
	}
}

func TestApplyPixelArtNearestBlocks(t *testing.T) {
	scaler := New(nil)
	src := checkerboard(16, 16)

	out, plan, _, err := scaler.Apply(context.Background(), src, types.KindPixelArt, 64, 64, types.SuperResNone)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if plan.Algorithm != types.AlgorithmNearest {
		t.Errorf("Expected nearest algorithm, got %s", plan.Algorithm)
	}
	if plan.Factor != 4 {
		t.Errorf("Expected factor 4, got %d", plan.Factor)
	}
	if out.Rect.Dx() != 64 || out.Rect.Dy() != 64 {
		t.Fatalf("Expected 64x64, got %dx%d", out.Rect.Dx(), out.Rect.Dy())
	}

	// Every output pixel must equal its corresponding 4x4 source block.
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if out.NRGBAAt(x, y) != src.NRGBAAt(x/4, y/4) {
				t.Fatalf("Pixel (%d,%d) does not match source block", x, y)
			}
		}
	}
}

func TestApplyPixelArtFactorOneIsNoOp(t *testing.T) {
	scaler := New(nil)
	src := checkerboard(64, 64)

	out, plan, _, err := scaler.Apply(context.Background(), src, types.KindPixelArt, 64, 64, types.SuperResNone)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if plan.Factor != 1 {
		t.Errorf("Expected factor 1, got %d", plan.Factor)
	}
	if out != src {
		t.Error("Expected the same buffer back for factor 1, got a resampled copy")
	}
}

func TestApplyIllustrationFit(t *testing.T) {
	scaler := New(nil)
	src := checkerboard(800, 600)

	out, plan, warnings, err := scaler.Apply(context.Background(), src, types.KindIllustration, 512, 512, types.SuperResNone)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
	if plan.Algorithm != types.AlgorithmLanczos {
		t.Errorf("Expected lanczos algorithm, got %s", plan.Algorithm)
	}
	if plan.SuperResApplied {
		t.Error("Expected superres_applied=false")
	}
	if out.Rect.Dx() != 512 || out.Rect.Dy() != 384 {
		t.Errorf("Expected aspect-preserving 512x384, got %dx%d", out.Rect.Dx(), out.Rect.Dy())
	}
}

func TestApplyIllustrationNeverUpscalesWithoutSuperRes(t *testing.T) {
	scaler := New(nil)
	src := checkerboard(100, 80)

	out, _, _, err := scaler.Apply(context.Background(), src, types.KindIllustration, 512, 512, types.SuperResNone)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Rect.Dx() != 100 || out.Rect.Dy() != 80 {
		t.Errorf("Expected no upscaling, got %dx%d", out.Rect.Dx(), out.Rect.Dy())
	}
}

func TestApplySuperResUnavailableDegrades(t *testing.T) {
	scaler := New(&superres.Stub{Availability: false})
	src := checkerboard(100, 80)

	out, plan, warnings, err := scaler.Apply(context.Background(), src, types.KindIllustration, 512, 512, types.SuperResRealESRGAN)
	if err != nil {
		t.Fatalf("Expected graceful degradation, got error: %v", err)
	}
	if plan.SuperResApplied {
		t.Error("Expected superres_applied=false when tool unavailable")
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "unavailable") {
		t.Errorf("Expected an unavailability warning, got %v", warnings)
	}
	if out == nil {
		t.Fatal("Expected an output image")
	}
}

func TestApplySuperResApplied(t *testing.T) {
	scaler := New(&superres.Stub{Availability: true, ScaleFactor: 4})
	src := checkerboard(200, 150)

	out, plan, warnings, err := scaler.Apply(context.Background(), src, types.KindIllustration, 512, 512, types.SuperResRealESRGAN)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !plan.SuperResApplied {
		t.Error("Expected superres_applied=true")
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
	// 200x150 -> 800x600 -> fit down to 512x384.
	if out.Rect.Dx() != 512 || out.Rect.Dy() != 384 {
		t.Errorf("Expected 512x384, got %dx%d", out.Rect.Dx(), out.Rect.Dy())
	}
}

func TestApplySuperResFailureIsFatal(t *testing.T) {
	boom := errors.New("gpu on fire")
	scaler := New(&superres.Stub{Availability: true, Err: boom})
	src := checkerboard(100, 80)

	_, _, _, err := scaler.Apply(context.Background(), src, types.KindIllustration, 512, 512, types.SuperResRealESRGAN)
	if !errors.Is(err, boom) {
		t.Errorf("Expected tool failure to propagate, got %v", err)
	}
}

func TestApplyPixelArtIgnoresSuperRes(t *testing.T) {
	scaler := New(&superres.Stub{Availability: true})
	src := checkerboard(16, 16)

	_, plan, warnings, err := scaler.Apply(context.Background(), src, types.KindPixelArt, 64, 64, types.SuperResRealESRGAN)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if plan.SuperResApplied {
		t.Error("Expected superres to stay off on the pixel-art path")
	}
	if len(warnings) != 1 {
		t.Errorf("Expected a skip warning, got %v", warnings)
	}
}

func TestApplyUnresolvedKind(t *testing.T) {
	scaler := New(nil)

	_, _, _, err := scaler.Apply(context.Background(), checkerboard(8, 8), types.KindAuto, 64, 64, types.SuperResNone)
	if err == nil {
		t.Error("Expected an error for unresolved kind")
	}
}
