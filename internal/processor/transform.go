package processor

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/trunov/imageconv/internal/entities"
	"github.com/trunov/imageconv/internal/format"
)

// Transformer converts a single input buffer according to a
// ConversionOptions policy.
type Transformer struct {
	codec Codec
}

func NewTransformer(codec Codec) *Transformer {
	if codec == nil {
		codec = NewImageCodec()
	}
	return &Transformer{codec: codec}
}

// Transform decodes data, normalizes its orientation, keeps or strips
// metadata, applies the downscale-only resize and encodes to the target
// format. Every failure wraps entities.ErrProcessing.
func (t *Transformer) Transform(ctx context.Context, name string, data []byte, opts entities.ConversionOptions) (entities.ConvertedOutput, error) {
	out := entities.ConvertedOutput{}
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("%w: %s: %v", entities.ErrProcessing, name, err)
	}

	f, _ := format.Normalize(opts.Format)

	src, err := t.codec.Decode(data)
	if err != nil {
		return out, fmt.Errorf("%w: %s: %v", entities.ErrProcessing, name, err)
	}

	t.codec.AutoOrient(src)
	t.codec.Metadata(src, opts.PreserveMetadata)
	if opts.ResizeWidth > 0 || opts.ResizeHeight > 0 {
		t.codec.Resize(src, opts.ResizeWidth, opts.ResizeHeight)
	}

	buf := new(bytes.Buffer)
	if err := t.codec.Encode(buf, src, format.ParamsFor(f, opts.Quality)); err != nil {
		return out, fmt.Errorf("%w: %s: %v", entities.ErrProcessing, name, err)
	}

	b := src.Image.Bounds()
	return entities.ConvertedOutput{
		Name:        OutputName(name, f),
		Data:        buf.Bytes(),
		Size:        int64(buf.Len()),
		ContentType: f.ContentType(),
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// OutputName replaces the extension of the uploaded file name with the one
// of f. Directory components sent by the client are dropped.
func OutputName(original string, f format.Format) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if ext := filepath.Ext(base); ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + "." + f.Extension()
}
