// Package format maps requested output format names to normalized
// identifiers, content types and encoder parameters.
package format

import (
	"image/png"
	"strings"
)

type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
	AVIF Format = "avif"
	TIFF Format = "tiff"
	BMP  Format = "bmp"
)

// Default is used whenever the requested format is absent or unknown.
const Default = JPEG

const (
	DefaultQuality = 80
	MinQuality     = 1
	MaxQuality     = 100
)

// OctetStream is served for outputs whose content type is unknown.
const OctetStream = "application/octet-stream"

var contentTypes = map[Format]string{
	JPEG: "image/jpeg",
	PNG:  "image/png",
	WebP: "image/webp",
	AVIF: "image/avif",
	TIFF: "image/tiff",
	BMP:  "image/bmp",
}

// TIFFCompression names the compression scheme applied to tiff outputs.
type TIFFCompression string

const (
	TIFFUncompressed TIFFCompression = "none"
	TIFFDeflate      TIFFCompression = "deflate"
)

// Params are the encoder settings for one output format.
type Params struct {
	Format          Format
	Quality         int
	PNGCompression  png.CompressionLevel
	TIFFCompression TIFFCompression
	UsesQuality     bool
}

// Normalize resolves a requested format name. Matching is case-insensitive
// and "jpg" is an alias of "jpeg". Unknown or empty names resolve to Default
// with ok set to false.
func Normalize(name string) (f Format, ok bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "jpg" {
		n = string(JPEG)
	}
	if _, known := contentTypes[Format(n)]; known {
		return Format(n), true
	}
	return Default, false
}

// ContentType returns the content type registered for a format identifier.
// Identifiers outside the supported set have no entry.
func ContentType(name string) (string, bool) {
	f, ok := Normalize(name)
	if !ok {
		return "", false
	}
	return contentTypes[f], true
}

// ContentTypeOrDefault is ContentType with the binary stream fallback used
// when serving stored outputs.
func ContentTypeOrDefault(name string) string {
	if ct, ok := ContentType(name); ok {
		return ct
	}
	return OctetStream
}

// Extension is the file extension (without dot) written for f.
func (f Format) Extension() string {
	if f == "" {
		return string(Default)
	}
	return string(f)
}

func (f Format) ContentType() string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return OctetStream
}

// ClampQuality bounds q to [MinQuality, MaxQuality].
func ClampQuality(q int) int {
	if q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}

// ParamsFor returns the encoder parameters for f. Quality only matters for
// lossy formats; png always uses the strongest compression level and bmp is
// a straight re-encode.
func ParamsFor(f Format, quality int) Params {
	p := Params{Format: f, Quality: ClampQuality(quality)}
	switch f {
	case JPEG, WebP, AVIF:
		p.UsesQuality = true
	case PNG:
		p.PNGCompression = png.BestCompression
	case TIFF:
		// x/image/tiff has no lossy compression; deflate is the closest match.
		p.TIFFCompression = TIFFDeflate
	case BMP:
	default:
		p.Format = Default
		p.UsesQuality = true
	}
	return p
}
