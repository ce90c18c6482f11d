package archive

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/trunov/imageconv/internal/entities"
)

func TestWriteZip(t *testing.T) {
	outputs := []entities.ConvertedOutput{
		{Name: "a.webp", Data: bytes.Repeat([]byte("a"), 4096)},
		{Name: "b.webp", Data: []byte("bbb")},
	}

	var buf bytes.Buffer
	if err := WriteZip(&buf, outputs, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("write zip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("entries = %d, want 2", len(zr.File))
	}
	for i, f := range zr.File {
		if f.Name != outputs[i].Name {
			t.Errorf("entry %d name = %q, want %q", i, f.Name, outputs[i].Name)
		}
		if f.Method != zip.Deflate {
			t.Errorf("entry %s method = %d, want deflate", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if !bytes.Equal(got, outputs[i].Data) {
			t.Errorf("entry %s content mismatch", f.Name)
		}
	}
	if zr.File[0].CompressedSize64 >= zr.File[0].UncompressedSize64 {
		t.Errorf("repetitive entry was not compressed: %d >= %d", zr.File[0].CompressedSize64, zr.File[0].UncompressedSize64)
	}
}

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("connection reset")
	}
	f.after--
	return len(p), nil
}

func TestWriteZipPropagatesWriteErrors(t *testing.T) {
	data := make([]byte, 256<<10)
	rand.New(rand.NewSource(1)).Read(data)
	outputs := []entities.ConvertedOutput{{Name: "a.png", Data: data}}
	if err := WriteZip(&failingWriter{after: 1}, outputs, time.Now()); err == nil {
		t.Fatal("expected error from failing writer")
	}
}
