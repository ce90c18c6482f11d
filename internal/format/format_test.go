package format

import (
	"image/png"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     string
		want   Format
		wantOK bool
	}{
		{"jpeg", JPEG, true},
		{"JPG", JPEG, true},
		{" webp ", WebP, true},
		{"AVIF", AVIF, true},
		{"tiff", TIFF, true},
		{"bmp", BMP, true},
		{"png", PNG, true},
		{"gif", JPEG, false},
		{"", JPEG, false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestContentType(t *testing.T) {
	if ct, ok := ContentType("jpg"); !ok || ct != "image/jpeg" {
		t.Errorf("ContentType(jpg) = %q, %v", ct, ok)
	}
	if ct, ok := ContentType("heic"); ok || ct != "" {
		t.Errorf("ContentType(heic) = %q, %v; want no entry", ct, ok)
	}
	if got := ContentTypeOrDefault("heic"); got != OctetStream {
		t.Errorf("ContentTypeOrDefault(heic) = %q, want %q", got, OctetStream)
	}
	if got := WebP.ContentType(); got != "image/webp" {
		t.Errorf("WebP.ContentType() = %q", got)
	}
}

func TestClampQuality(t *testing.T) {
	for in, want := range map[int]int{-5: 1, 0: 1, 1: 1, 50: 50, 100: 100, 250: 100} {
		if got := ClampQuality(in); got != want {
			t.Errorf("ClampQuality(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParamsFor(t *testing.T) {
	if p := ParamsFor(PNG, 10); p.PNGCompression != png.BestCompression || p.UsesQuality {
		t.Errorf("png params = %+v", p)
	}
	if p := ParamsFor(WebP, 500); p.Quality != 100 || !p.UsesQuality {
		t.Errorf("webp params = %+v", p)
	}
	if p := ParamsFor(TIFF, 50); p.TIFFCompression != TIFFDeflate {
		t.Errorf("tiff params = %+v", p)
	}
	if p := ParamsFor(BMP, 50); p.UsesQuality {
		t.Errorf("bmp params = %+v", p)
	}
	if p := ParamsFor(Format("gif"), 50); p.Format != JPEG {
		t.Errorf("unknown format params = %+v, want jpeg fallback", p)
	}
}
