// Package alphafix repairs alpha-channel artifacts: premultiplied-alpha
// darkening, background-color fringing on semi-transparent edges, and
// stair-stepped alpha transitions. All passes operate in place on RGBA8
// buffers.
package alphafix

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Unpremultiply reverses premultiplied-alpha darkening by scaling RGB by
// 255/alpha for every pixel with alpha strictly between 0 and 255. Fully
// transparent pixels are left untouched (their color is unobservable)
// and fully opaque pixels are already correct.
func Unpremultiply(img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			a := row[i+3]
			if a == 0 || a == 0xff {
				continue
			}
			scale := 255.0 / float64(a)
			row[i] = clamp8(float64(row[i]) * scale)
			row[i+1] = clamp8(float64(row[i+1]) * scale)
			row[i+2] = clamp8(float64(row[i+2]) * scale)
		}
	}
}

// Defringe replaces the RGB of every semi-transparent edge pixel with a
// distance-weighted average of the fully opaque pixels within radius,
// removing halo colors left over from compositing against a mismatched
// background. Fully opaque and fully transparent pixels are untouched.
// Edge pixels with no opaque neighbor in range keep their color.
func Defringe(img *image.NRGBA, radius int) {
	if radius < 1 {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()

	// Work from a snapshot so already-defringed pixels don't bleed into
	// their neighbors' averages.
	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			a := src[i+3]
			if a == 0 || a == 0xff {
				continue
			}

			var sumR, sumG, sumB, sumW float64
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w || (dx == 0 && dy == 0) {
						continue
					}
					j := ny*img.Stride + nx*4
					if src[j+3] != 0xff {
						continue
					}
					weight := 1.0 / math.Sqrt(float64(dx*dx+dy*dy))
					sumR += weight * float64(src[j])
					sumG += weight * float64(src[j+1])
					sumB += weight * float64(src[j+2])
					sumW += weight
				}
			}
			if sumW == 0 {
				continue
			}
			img.Pix[i] = clamp8(sumR / sumW)
			img.Pix[i+1] = clamp8(sumG / sumW)
			img.Pix[i+2] = clamp8(sumB / sumW)
		}
	}
}

// SmoothEdges applies a light Gaussian blur to the alpha channel only,
// reducing jagged alpha transitions on illustrations without touching
// color. Sigma values of 0.5-1.0 are typical; non-positive sigma is a
// no-op.
func SmoothEdges(img *image.NRGBA, sigma float64) {
	if sigma <= 0 {
		return
	}
	blurred := imaging.Blur(img, sigma)

	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			j := y*blurred.Stride + x*4
			img.Pix[i+3] = blurred.Pix[j+3]
		}
	}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
