// Package archive streams converted outputs as a zip archive.
package archive

import (
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/trunov/imageconv/internal/entities"
)

// WriteZip writes one deflated entry per output, in order, straight to w.
// Entries are compressed at the best level; nothing beyond the current
// entry's compressor state is buffered.
func WriteZip(w io.Writer, outputs []entities.ConvertedOutput, modified time.Time) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, o := range outputs {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     o.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", o.Name, err)
		}
		if _, err := fw.Write(o.Data); err != nil {
			return fmt.Errorf("zip entry %s: %w", o.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}
