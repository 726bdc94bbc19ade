package alphafix

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestUnpremultiplyLeavesOpaqueAndTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{200, 100, 50, 255})
	img.SetNRGBA(1, 0, color.NRGBA{200, 100, 50, 0})

	Unpremultiply(img)

	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{200, 100, 50, 255}) {
		t.Errorf("Opaque pixel changed: %v", got)
	}
	if got := img.NRGBAAt(1, 0); got != (color.NRGBA{200, 100, 50, 0}) {
		t.Errorf("Transparent pixel changed: %v", got)
	}
}

func TestUnpremultiplyRoundTrip(t *testing.T) {
	// Premultiply a known color, unpremultiply, and expect the original
	// back within rounding error.
	orig := color.NRGBA{200, 100, 50, 128}
	a := float64(orig.A) / 255.0

	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{
		uint8(float64(orig.R)*a + 0.5),
		uint8(float64(orig.G)*a + 0.5),
		uint8(float64(orig.B)*a + 0.5),
		orig.A,
	})

	Unpremultiply(img)

	got := img.NRGBAAt(0, 0)
	for name, pair := range map[string][2]uint8{
		"r": {got.R, orig.R},
		"g": {got.G, orig.G},
		"b": {got.B, orig.B},
	} {
		if math.Abs(float64(pair[0])-float64(pair[1])) > 2 {
			t.Errorf("Channel %s: got %d, want %d within epsilon 2", name, pair[0], pair[1])
		}
	}
	if got.A != orig.A {
		t.Errorf("Alpha changed: got %d, want %d", got.A, orig.A)
	}
}

func TestDefringeReplacesHaloColor(t *testing.T) {
	// A red opaque block with one white semi-transparent halo pixel on
	// its edge. Defringe should pull the halo toward red.
	img := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{220, 10, 10, 255})
		}
	}
	img.SetNRGBA(4, 2, color.NRGBA{255, 255, 255, 120})

	Defringe(img, 2)

	got := img.NRGBAAt(4, 2)
	if got.A != 120 {
		t.Errorf("Defringe must not touch alpha: got %d", got.A)
	}
	if got.R < 200 || got.G > 30 || got.B > 30 {
		t.Errorf("Expected halo pulled toward red, got %v", got)
	}
}

func TestDefringeLeavesOpaqueAndTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{10, 20, 30, 255})
	img.SetNRGBA(1, 0, color.NRGBA{99, 99, 99, 0})
	img.SetNRGBA(2, 0, color.NRGBA{40, 50, 60, 255})

	Defringe(img, 1)

	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("Opaque pixel changed: %v", got)
	}
	if got := img.NRGBAAt(1, 0); got != (color.NRGBA{99, 99, 99, 0}) {
		t.Errorf("Transparent pixel changed: %v", got)
	}
}

func TestDefringeNoOpaqueNeighbors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	img.SetNRGBA(1, 1, color.NRGBA{77, 88, 99, 100})

	Defringe(img, 1)

	if got := img.NRGBAAt(1, 1); got != (color.NRGBA{77, 88, 99, 100}) {
		t.Errorf("Edge pixel without opaque neighbors changed: %v", got)
	}
}

func TestSmoothEdgesAlphaOnly(t *testing.T) {
	// Opaque block on transparent canvas: smoothing must soften the
	// alpha transition without touching color of opaque interior.
	img := image.NewNRGBA(image.Rect(0, 0, 9, 9))
	for y := 2; y < 7; y++ {
		for x := 2; x < 7; x++ {
			img.SetNRGBA(x, y, color.NRGBA{10, 200, 30, 255})
		}
	}

	SmoothEdges(img, 1.0)

	center := img.NRGBAAt(4, 4)
	if center.R != 10 || center.G != 200 || center.B != 30 {
		t.Errorf("Color must be untouched, got %v", center)
	}
	edge := img.NRGBAAt(2, 4)
	if edge.A == 255 || edge.A == 0 {
		t.Errorf("Expected softened alpha at block edge, got %d", edge.A)
	}
	outside := img.NRGBAAt(0, 0)
	if outside.A > 10 {
		t.Errorf("Expected far corner to stay near transparent, got %d", outside.A)
	}
}

func TestSmoothEdgesZeroSigmaNoOp(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{1, 2, 3, 200})
	before := append([]uint8(nil), img.Pix...)

	SmoothEdges(img, 0)

	for i := range before {
		if img.Pix[i] != before[i] {
			t.Fatalf("Pixel buffer changed at offset %d", i)
		}
	}
}
