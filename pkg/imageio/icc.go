package imageio

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

var (
	pngMagic   = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	iccProfile = []byte("ICC_PROFILE\x00")
)

// ExtractICC pulls the raw ICC profile bytes out of PNG or JPEG data.
// It returns nil when no profile is embedded or the container is not
// one of those two formats.
func ExtractICC(data []byte) []byte {
	if bytes.HasPrefix(data, pngMagic) {
		return extractPNGProfile(data)
	}
	if len(data) > 2 && data[0] == 0xFF && data[1] == 0xD8 {
		return extractJPEGProfile(data)
	}
	return nil
}

// extractPNGProfile walks PNG chunks looking for iCCP and inflates its
// payload. The chunk layout is: profile name (latin-1, NUL terminated),
// one compression-method byte (0 = zlib), zlib-compressed profile.
func extractPNGProfile(data []byte) []byte {
	r := bytes.NewReader(data)
	if _, err := r.Seek(8, io.SeekStart); err != nil {
		return nil
	}

	hdr := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, hdr); err != nil {
			return nil
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		chunkType := string(hdr[4:8])

		if chunkType == "iCCP" {
			payload := make([]byte, length)
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil
			}
			nul := bytes.IndexByte(payload, 0)
			if nul < 0 || nul+2 > len(payload) || payload[nul+1] != 0 {
				return nil
			}
			zr, err := zlib.NewReader(bytes.NewReader(payload[nul+2:]))
			if err != nil {
				return nil
			}
			defer zr.Close()
			profile, err := io.ReadAll(zr)
			if err != nil {
				return nil
			}
			return profile
		}
		if chunkType == "IEND" {
			return nil
		}
		if _, err := r.Seek(int64(length)+4, io.SeekCurrent); err != nil {
			return nil
		}
	}
}

// extractJPEGProfile walks JPEG markers collecting APP2 ICC_PROFILE
// segments. Profiles larger than one segment are split across several
// APP2 markers carrying sequence/count bytes; segments arrive in order
// in practice, so they are concatenated as found.
func extractJPEGProfile(data []byte) []byte {
	r := bytes.NewReader(data)
	if _, err := r.Seek(2, io.SeekStart); err != nil {
		return nil
	}

	var profile []byte
	buf := make([]byte, 2)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			break
		}
		if buf[0] != 0xFF {
			break
		}
		marker := buf[1]
		if marker == 0xD9 || marker == 0xDA {
			// End of image or start of scan; no more metadata.
			break
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			break
		}
		length := int(binary.BigEndian.Uint16(buf)) - 2
		if length < 0 {
			break
		}

		if marker == 0xE2 {
			seg := make([]byte, length)
			if _, err := io.ReadFull(r, seg); err != nil {
				break
			}
			if len(seg) > len(iccProfile)+2 && bytes.HasPrefix(seg, iccProfile) {
				profile = append(profile, seg[len(iccProfile)+2:]...)
			}
		} else {
			if _, err := r.Seek(int64(length), io.SeekCurrent); err != nil {
				break
			}
		}
	}
	if len(profile) == 0 {
		return nil
	}
	return profile
}

// embedPNGProfile splices an iCCP chunk into encoded PNG data, directly
// after the IHDR chunk. The profile bytes are zlib-compressed per the
// PNG spec.
func embedPNGProfile(data, profile []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, pngMagic) {
		return nil, fmt.Errorf("not a png stream")
	}
	if len(data) < 16 {
		return nil, fmt.Errorf("truncated png stream")
	}

	// IHDR is always the first chunk: 4 length + 4 type + data + 4 crc.
	ihdrLen := int(binary.BigEndian.Uint32(data[8:12]))
	splice := 8 + 4 + 4 + ihdrLen + 4
	if splice > len(data) || string(data[12:16]) != "IHDR" {
		return nil, fmt.Errorf("malformed png stream")
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(profile); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	var payload bytes.Buffer
	payload.WriteString("ICC Profile")
	payload.WriteByte(0) // name terminator
	payload.WriteByte(0) // compression method: zlib
	payload.Write(compressed.Bytes())

	var chunk bytes.Buffer
	binary.Write(&chunk, binary.BigEndian, uint32(payload.Len()))
	chunk.WriteString("iCCP")
	chunk.Write(payload.Bytes())
	crc := crc32.NewIEEE()
	crc.Write([]byte("iCCP"))
	crc.Write(payload.Bytes())
	binary.Write(&chunk, binary.BigEndian, crc.Sum32())

	out := make([]byte, 0, len(data)+chunk.Len())
	out = append(out, data[:splice]...)
	out = append(out, chunk.Bytes()...)
	out = append(out, data[splice:]...)
	return out, nil
}
