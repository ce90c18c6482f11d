package processor

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/avif"
	"golang.org/x/image/tiff"

	"github.com/trunov/imageconv/internal/format"
)

// ImageModifier defines an image modifier
type ImageModifier interface {
	Modify(img image.Image) image.Image
}

// ImageResizer shrinks an image to fit within Width x Height keeping the
// aspect ratio. A zero bound leaves that axis unconstrained and images are
// never enlarged.
type ImageResizer struct {
	Width  int
	Height int
}

// Modify to implement ImageModifier interface
func (r *ImageResizer) Modify(img image.Image) image.Image {
	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())

	if w == 0 || h == 0 || (r.Width <= 0 && r.Height <= 0) {
		return img
	}

	ratio := 0.0
	if r.Width > 0 {
		ratio = w / float64(r.Width)
	}
	if r.Height > 0 {
		if hRatio := h / float64(r.Height); hRatio > ratio {
			ratio = hRatio
		}
	}

	// Nothing to do - return original image
	if ratio <= 1 {
		return img
	}

	newW := max(1, int(math.Round(w/ratio)))
	newH := max(1, int(math.Round(h/ratio)))

	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}

// ImageOrienter applies an EXIF orientation so the pixels are stored upright.
type ImageOrienter struct {
	Orientation int
}

func (o *ImageOrienter) Modify(img image.Image) image.Image {
	switch o.Orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// Source is a decoded input image plus the metadata carried alongside it.
type Source struct {
	Image       image.Image
	MIME        string
	Exif        []byte // raw TIFF-structured EXIF payload, nil when absent or stripped
	Orientation int
}

// Codec is the capability set the transform pipeline needs from an image
// backend.
type Codec interface {
	Decode(data []byte) (*Source, error)
	AutoOrient(src *Source)
	Metadata(src *Source, preserve bool)
	Resize(src *Source, width, height int)
	Encode(w io.Writer, src *Source, p format.Params) error
}

// ImageCodec is the default Codec built on imaging, chai2010/webp and
// gen2brain/avif.
type ImageCodec struct{}

func NewImageCodec() *ImageCodec {
	return &ImageCodec{}
}

func (ImageCodec) Decode(data []byte) (*Source, error) {
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("unsupported input type: %s", mime.String())
	}

	var (
		img image.Image
		err error
	)
	switch {
	case mime.Is("image/webp"):
		img, err = webp.Decode(bytes.NewReader(data))
	case mime.Is("image/avif"):
		img, err = avif.Decode(bytes.NewReader(data))
	default:
		img, err = imaging.Decode(bytes.NewReader(data))
		if err != nil && truncated(err) {
			if recovered, rerr := decodeTruncated(data, mime.String()); rerr == nil {
				log.Printf("[processor] recovered truncated %s input: %v", mime.String(), err)
				img, err = recovered, nil
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error decoding image (%s): %w", mime.String(), err)
	}

	src := &Source{Image: img, MIME: mime.String(), Orientation: 1}
	if raw := extractExif(data, mime.String()); raw != nil {
		src.Exif = raw
		src.Orientation = readOrientation(raw)
	}
	return src, nil
}

func (ImageCodec) AutoOrient(src *Source) {
	if src.Orientation > 1 {
		src.Image = (&ImageOrienter{Orientation: src.Orientation}).Modify(src.Image)
	}
	src.Orientation = 1
	if src.Exif != nil {
		src.Exif = resetOrientation(src.Exif)
	}
}

func (ImageCodec) Metadata(src *Source, preserve bool) {
	if !preserve {
		src.Exif = nil
	}
}

func (ImageCodec) Resize(src *Source, width, height int) {
	src.Image = (&ImageResizer{Width: width, Height: height}).Modify(src.Image)
}

func (ImageCodec) Encode(w io.Writer, src *Source, p format.Params) error {
	buf := new(bytes.Buffer)
	var err error

	switch p.Format {
	case format.PNG:
		err = imaging.Encode(buf, src.Image, imaging.PNG, imaging.PNGCompressionLevel(p.PNGCompression))
	case format.WebP:
		err = webp.Encode(buf, src.Image, &webp.Options{
			Lossless: false,
			Quality:  float32(p.Quality),
		})
	case format.AVIF:
		err = avif.Encode(buf, src.Image, avif.Options{
			Quality:      p.Quality,
			QualityAlpha: p.Quality,
			Speed:        8,
		})
	case format.TIFF:
		opts := &tiff.Options{Compression: tiff.Uncompressed}
		if p.TIFFCompression == format.TIFFDeflate {
			opts = &tiff.Options{Compression: tiff.Deflate, Predictor: true}
		}
		err = tiff.Encode(buf, src.Image, opts)
	case format.BMP:
		err = imaging.Encode(buf, src.Image, imaging.BMP)
	default:
		err = imaging.Encode(buf, src.Image, imaging.JPEG, imaging.JPEGQuality(p.Quality))
	}
	if err != nil {
		return fmt.Errorf("error encoding to %s: %w", p.Format, err)
	}

	out := buf.Bytes()
	if src.Exif != nil {
		out, err = embedExif(out, src.Exif, p.Format)
		if err != nil {
			return fmt.Errorf("error embedding metadata: %w", err)
		}
	}

	_, err = w.Write(out)
	return err
}
