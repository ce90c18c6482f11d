package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPromExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm("imageconv")
	if err := p.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := p.Register(reg); err != nil {
		t.Fatalf("second register should be a no-op: %v", err)
	}

	p.ObserveBatch("ok", 3, 0.2)
	p.IncConverted("webp")
	p.IncDownload("zip", "ok")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`imageconv_batches_total{status="ok"} 1`,
		`imageconv_files_converted_total{format="webp"} 1`,
		`imageconv_downloads_total{kind="zip",status="ok"} 1`,
		`imageconv_batch_files_count 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
