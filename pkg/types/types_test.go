package types

import "testing"

func TestBoundingBoxBasics(t *testing.T) {
	box := BoundingBox{X0: 2, Y0: 4, X1: 10, Y1: 12}
	if box.Width() != 8 || box.Height() != 8 {
		t.Errorf("Expected 8x8, got %dx%d", box.Width(), box.Height())
	}
	if box.Area() != 64 {
		t.Errorf("Expected area 64, got %d", box.Area())
	}
	if box.Empty() {
		t.Error("Expected non-empty box")
	}
	if !(BoundingBox{X0: 5, Y0: 5, X1: 5, Y1: 9}).Empty() {
		t.Error("Expected zero-width box to be empty")
	}
}

func TestBoundingBoxExpandClamp(t *testing.T) {
	box := BoundingBox{X0: 4, Y0: 4, X1: 12, Y1: 12}

	expanded := box.Expand(2, 16, 16)
	want := BoundingBox{X0: 2, Y0: 2, X1: 14, Y1: 14}
	if expanded != want {
		t.Errorf("Expected %s, got %s", want.String(), expanded.String())
	}

	// Expansion past the edges clamps to the image bounds.
	if clamped := box.Expand(10, 16, 16); clamped != FullImage(16, 16) {
		t.Errorf("Expected full-image box, got %s", clamped.String())
	}

	clamped := BoundingBox{X0: -3, Y0: 2, X1: 20, Y1: 12}.Clamp(16, 16)
	if clamped != (BoundingBox{X0: 0, Y0: 2, X1: 16, Y1: 12}) {
		t.Errorf("Unexpected clamp result %s", clamped.String())
	}
}

func TestKindValidation(t *testing.T) {
	for _, k := range []Kind{KindAuto, KindPixelArt, KindIllustration} {
		if !k.Valid() {
			t.Errorf("Expected %q to be valid", k)
		}
	}
	if Kind("sprite").Valid() {
		t.Error("Expected unknown kind to be invalid")
	}
	if KindAuto.Resolved() {
		t.Error("Expected auto to be unresolved")
	}
	if !KindPixelArt.Resolved() {
		t.Error("Expected pixel_art to be resolved")
	}
}

func TestSuperResValidation(t *testing.T) {
	if !SuperResNone.Valid() || !SuperResRealESRGAN.Valid() {
		t.Error("Expected built-in methods to be valid")
	}
	if SuperRes("waifu2x").Valid() {
		t.Error("Expected unknown method to be invalid")
	}
}
