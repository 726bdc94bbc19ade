// Package imageio decodes source images into in-memory RGBA buffers and
// encodes processed buffers back to disk, carrying any embedded ICC color
// profile through opaquely in both directions.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	_ "image/gif"
)

// DecodeError indicates a corrupt or unsupported source image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError indicates the filesystem rejected the output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write image %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Decode decodes an image from raw bytes into an NRGBA buffer with the
// alpha channel always materialized (fully opaque if the source carried
// none). Any embedded ICC profile is extracted and returned unmodified;
// it is never interpreted or converted.
func Decode(data []byte) (*image.NRGBA, []byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Some webp variants are only handled by the cgo decoder.
		if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			img = wimg
		} else {
			return nil, nil, &DecodeError{Err: err}
		}
	}

	// imaging.Clone always yields a tightly packed NRGBA copy.
	return imaging.Clone(img), ExtractICC(data), nil
}

// Encode writes img to path, re-embedding the given ICC profile when the
// output format supports it. The file is written to a temporary path in
// the destination directory and atomically renamed into place, so a
// failed or interrupted write never leaves a partial file at path.
func Encode(img image.Image, icc []byte, path string) error {
	data, err := EncodeBytes(img, icc, formatForPath(path))
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// EncodeBytes encodes img into the given format ("png", "webp", "jpg"),
// embedding the ICC profile for PNG output. PNG is the default.
func EncodeBytes(img image.Image, icc []byte, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "webp":
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
			return nil, &WriteError{Err: err}
		}
		return buf.Bytes(), nil
	case "jpg", "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
			return nil, &WriteError{Err: err}
		}
		return buf.Bytes(), nil
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, &WriteError{Err: err}
		}
		if len(icc) == 0 {
			return buf.Bytes(), nil
		}
		out, err := embedPNGProfile(buf.Bytes(), icc)
		if err != nil {
			return nil, &WriteError{Err: err}
		}
		return out, nil
	}
}

func formatForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if len(ext) > 0 {
		return ext[1:]
	}
	return "png"
}

// writeFileAtomic writes data to a sibling temp file, syncs it, and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
