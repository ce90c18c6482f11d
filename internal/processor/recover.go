package processor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/klauspost/compress/zlib"
)

var (
	errShortHuffmanData = jpeg.FormatError("short Huffman data")
	errShortPixelData   = png.FormatError("not enough pixel data")

	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	jpegEOI      = []byte{0xFF, 0xD9}
)

// Upper bound on the padding or raw scanline bytes a recovery may add.
const maxRecoveredBytes = 1 << 30

// truncated reports whether a decoder stopped because its input ended early.
func truncated(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, errShortHuffmanData) ||
		errors.Is(err, errShortPixelData)
}

// decodeTruncated retries a jpeg or png whose data stops early. The rows
// that arrived are kept and the missing ones are filled in.
func decodeTruncated(data []byte, mime string) (image.Image, error) {
	switch mime {
	case "image/jpeg":
		return decodeTruncatedJPEG(data)
	case "image/png":
		return decodeTruncatedPNG(data)
	}
	return nil, fmt.Errorf("no recovery for %s", mime)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// decodeTruncatedJPEG pads the entropy-coded data with zero bits, which
// always decode, and closes the stream with EOI.
func decodeTruncatedJPEG(data []byte) (image.Image, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	pad := min(int64(cfg.Width)*int64(cfg.Height)*4+4096, maxRecoveredBytes)
	r := io.MultiReader(
		bytes.NewReader(data),
		io.LimitReader(zeroReader{}, pad),
		bytes.NewReader(jpegEOI),
	)
	return jpeg.Decode(r)
}

type pngHeader struct {
	width, height int
	depth         int
	colorType     byte
	interlaced    bool
}

func parsePNGHeader(b []byte) (pngHeader, error) {
	if len(b) != 13 {
		return pngHeader{}, errors.New("bad IHDR length")
	}
	return pngHeader{
		width:      int(binary.BigEndian.Uint32(b[0:4])),
		height:     int(binary.BigEndian.Uint32(b[4:8])),
		depth:      int(b[8]),
		colorType:  b[9],
		interlaced: b[12] == 1,
	}, nil
}

func (h pngHeader) bitsPerPixel() int {
	channels := map[byte]int{0: 1, 2: 3, 3: 1, 4: 2, 6: 4}[h.colorType]
	return channels * h.depth
}

// rawSize is the length of the filtered scanline stream, per Adam7 pass
// when interlaced.
func (h pngHeader) rawSize() int64 {
	rowBytes := func(cols int) int64 {
		return 1 + (int64(cols)*int64(h.bitsPerPixel())+7)/8
	}
	if !h.interlaced {
		return int64(h.height) * rowBytes(h.width)
	}

	passes := [7][4]int{
		{0, 0, 8, 8}, {4, 0, 8, 8}, {0, 4, 4, 8}, {2, 0, 4, 4},
		{0, 2, 2, 4}, {1, 0, 2, 2}, {0, 1, 1, 2},
	}
	var total int64
	for _, p := range passes {
		cols := (h.width - p[0] + p[2] - 1) / p[2]
		rows := (h.height - p[1] + p[3] - 1) / p[3]
		if cols <= 0 || rows <= 0 {
			continue
		}
		total += int64(rows) * rowBytes(cols)
	}
	return total
}

// decodeTruncatedPNG inflates whatever image data arrived, leaves the
// remaining scanlines blank and decodes the rebuilt stream.
func decodeTruncatedPNG(data []byte) (image.Image, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errors.New("not a png stream")
	}

	var (
		head   []byte
		ihdr   []byte
		idat   bytes.Buffer
		inData bool
	)
	for i := len(pngSignature); i+8 <= len(data); {
		size := int64(binary.BigEndian.Uint32(data[i:]))
		typ := string(data[i+4 : i+8])
		end := int64(i) + 12 + size
		body := data[i+8 : min(int64(len(data)), int64(i)+8+size)]

		if typ == "IEND" {
			break
		}
		if typ == "IDAT" {
			inData = true
			idat.Write(body)
		} else if !inData && end <= int64(len(data)) {
			if typ == "IHDR" {
				ihdr = body
			}
			head = append(head, data[i:end]...)
		}
		if end > int64(len(data)) {
			break
		}
		i = int(end)
	}

	hdr, err := parsePNGHeader(ihdr)
	if err != nil {
		return nil, err
	}
	want := hdr.rawSize()
	if want <= 0 || want > maxRecoveredBytes {
		return nil, fmt.Errorf("image too large to recover: %d bytes", want)
	}

	zr, err := zlib.NewReader(bytes.NewReader(idat.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("image data: %w", err)
	}
	raw, _ := io.ReadAll(io.LimitReader(zr, want))
	if len(raw) == 0 {
		return nil, errors.New("no image data received")
	}
	raw = append(raw, make([]byte, want-int64(len(raw)))...)

	var packed bytes.Buffer
	zw, _ := zlib.NewWriterLevel(&packed, zlib.BestSpeed)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	var rebuilt bytes.Buffer
	rebuilt.Write(pngSignature)
	rebuilt.Write(head)
	writePNGChunk(&rebuilt, "IDAT", packed.Bytes())
	writePNGChunk(&rebuilt, "IEND", nil)
	return png.Decode(&rebuilt)
}

func writePNGChunk(w *bytes.Buffer, typ string, body []byte) {
	_ = binary.Write(w, binary.BigEndian, uint32(len(body)))
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(body)
	w.WriteString(typ)
	w.Write(body)
	_ = binary.Write(w, binary.BigEndian, crc.Sum32())
}
