package enhance

import (
	"image"
	"image/color"
	"testing"
)

// stepEdge creates an image split into a dark left half and a bright
// right half, the classic unsharp masking target.
func stepEdge(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{60, 60, 60, 255}
			if x >= w/2 {
				c = color.NRGBA{190, 190, 190, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestNew(t *testing.T) {
	enhancer := New()
	if enhancer == nil {
		t.Fatal("New() returned nil")
	}

	cfg := DefaultConfig()
	if cfg.Radius != 1.0 || cfg.Amount != 0.1 || cfg.Threshold != 1.0 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestUnsharpMaskFlatImageUnchanged(t *testing.T) {
	enhancer := New()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{100, 100, 100, 255})
		}
	}

	enhancer.UnsharpMask(img)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if c := img.NRGBAAt(x, y); c != (color.NRGBA{100, 100, 100, 255}) {
				t.Fatalf("Flat pixel at (%d,%d) changed to %v", x, y, c)
			}
		}
	}
}

func TestUnsharpMaskSharpensEdge(t *testing.T) {
	enhancer := New()
	img := stepEdge(32, 32)

	enhancer.UnsharpMask(img)

	// Overshoot on either side of the step: the dark side gets darker,
	// the bright side brighter.
	dark := img.NRGBAAt(15, 16)
	bright := img.NRGBAAt(16, 16)
	if dark.R >= 60 {
		t.Errorf("Expected dark side of edge to darken below 60, got %d", dark.R)
	}
	if bright.R <= 190 {
		t.Errorf("Expected bright side of edge to brighten above 190, got %d", bright.R)
	}

	// Pixels far from the edge are below the threshold and stay put.
	if c := img.NRGBAAt(2, 16); c.R != 60 {
		t.Errorf("Expected far dark pixel unchanged, got %d", c.R)
	}
	if c := img.NRGBAAt(29, 16); c.R != 190 {
		t.Errorf("Expected far bright pixel unchanged, got %d", c.R)
	}
}

func TestUnsharpMaskLeavesAlphaAlone(t *testing.T) {
	enhancer := New()
	img := stepEdge(32, 32)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			c := img.NRGBAAt(x, y)
			c.A = 128
			img.SetNRGBA(x, y, c)
		}
	}

	enhancer.UnsharpMask(img)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if a := img.NRGBAAt(x, y).A; a != 128 {
				t.Fatalf("Alpha at (%d,%d) changed to %d", x, y, a)
			}
		}
	}
}
