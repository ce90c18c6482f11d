package processor

import (
	"bytes"

	"github.com/chai2010/webp"
	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	goexif "github.com/rwcarlsen/goexif/exif"

	"github.com/trunov/imageconv/internal/format"
)

var exifHeader = []byte("Exif\x00\x00")

// APP1 length field minus itself and the Exif header.
const maxAPP1Payload = 0xFFFF - 2 - 6

// extractExif returns the TIFF-structured EXIF payload of a jpeg, png or
// webp input, or nil.
func extractExif(data []byte, mime string) []byte {
	var raw []byte
	switch mime {
	case "image/jpeg":
		if x, err := goexif.Decode(bytes.NewReader(data)); err == nil {
			raw = x.Raw
		}
	case "image/png":
		if mc, err := pngstructure.NewPngMediaParser().ParseBytes(data); err == nil {
			_, raw, _ = mc.Exif()
		}
	case "image/webp":
		raw, _ = webp.GetMetadata(data, "EXIF")
		raw = bytes.TrimPrefix(raw, exifHeader)
	}
	if len(raw) < 8 {
		return nil
	}
	if _, err := goexif.Decode(bytes.NewReader(raw)); err != nil {
		return nil
	}
	return append([]byte(nil), raw...)
}

func readOrientation(raw []byte) int {
	x, err := goexif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 1
	}
	tag, err := x.Get(goexif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

func exifBuilder(raw []byte) (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, err
	}
	_, index, err := exif.Collect(im, exif.NewTagIndex(), raw)
	if err != nil {
		return nil, err
	}
	return exif.NewIfdBuilderFromExistingChain(index.RootIfd), nil
}

// resetOrientation returns raw re-encoded with the IFD0 orientation set to 1
// (top-left). Payloads that cannot be parsed or rebuilt are dropped.
func resetOrientation(raw []byte) []byte {
	x, err := goexif.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	if _, err := x.Get(goexif.Orientation); err != nil {
		return append([]byte(nil), raw...)
	}
	ib, err := exifBuilder(raw)
	if err != nil {
		return nil
	}
	if err := ib.SetStandardWithName("Orientation", []uint16{1}); err != nil {
		return nil
	}
	out, err := exif.NewIfdByteEncoder().EncodeToExif(ib)
	if err != nil {
		return nil
	}
	return out
}

// embedExif writes raw into an encoded image. Formats without a metadata
// container here (tiff, bmp, avif) are returned unchanged, as are jpeg
// payloads larger than one APP1 segment.
func embedExif(encoded, raw []byte, f format.Format) ([]byte, error) {
	switch f {
	case format.JPEG:
		if len(raw) > maxAPP1Payload {
			return encoded, nil
		}
		return jpegWithExif(encoded, raw)
	case format.PNG:
		return pngWithExif(encoded, raw)
	case format.WebP:
		return webp.SetMetadata(encoded, raw, "EXIF")
	}
	return encoded, nil
}

func jpegWithExif(encoded, raw []byte) ([]byte, error) {
	ib, err := exifBuilder(raw)
	if err != nil {
		return nil, err
	}
	mc, err := jpegstructure.NewJpegMediaParser().ParseBytes(encoded)
	if err != nil {
		return nil, err
	}
	sl, ok := mc.(*jpegstructure.SegmentList)
	if !ok {
		return encoded, nil
	}
	if err := sl.SetExif(ib); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := sl.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pngWithExif(encoded, raw []byte) ([]byte, error) {
	ib, err := exifBuilder(raw)
	if err != nil {
		return nil, err
	}
	mc, err := pngstructure.NewPngMediaParser().ParseBytes(encoded)
	if err != nil {
		return nil, err
	}
	cs, ok := mc.(*pngstructure.ChunkSlice)
	if !ok {
		return encoded, nil
	}
	if err := cs.SetExif(ib); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := cs.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
