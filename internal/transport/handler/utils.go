package handler

import (
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/trunov/imageconv/internal/entities"
	"github.com/trunov/imageconv/internal/format"
)

type APIError struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

func writeMultipartError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	msg := strings.ToLower(err.Error())

	switch {
	case errors.As(err, &maxErr), strings.Contains(msg, "too large"):
		writeJSONError(w, "request exceeds maximum allowed size", http.StatusRequestEntityTooLarge)

	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		writeJSONError(w, "No files uploaded", http.StatusBadRequest)

	default:
		writeJSONError(w, "invalid multipart body: "+err.Error(), http.StatusBadRequest)
	}
}

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(APIError{
		Error: message,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// parseConversionOptions reads the shared options of a convert request.
// Unknown formats fall back to jpeg, quality is clamped to [1,100] with 80
// for absent or non-numeric values, and non-positive resize bounds mean no
// constraint.
func parseConversionOptions(form url.Values) entities.ConversionOptions {
	f, _ := format.Normalize(form.Get("targetFormat"))
	return entities.ConversionOptions{
		Format:           string(f),
		Quality:          parseQuality(form.Get("quality")),
		ResizeWidth:      parseDimension(form.Get("resizeWidth")),
		ResizeHeight:     parseDimension(form.Get("resizeHeight")),
		PreserveMetadata: parseBool(form.Get("preserveExif")) || parseBool(form.Get("preserveMetadata")),
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func parseQuality(s string) int {
	v, ok := parseNumber(s)
	if !ok {
		return format.DefaultQuality
	}
	if v < format.MinQuality {
		return format.MinQuality
	}
	if v > format.MaxQuality {
		return format.MaxQuality
	}
	return int(v)
}

func parseDimension(s string) int {
	v, ok := parseNumber(s)
	if !ok || v < 1 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func fileURL(jobID, name string) string {
	return "/api/file/" + url.PathEscape(jobID) + "/" + url.PathEscape(name)
}

func zipURL(jobID string) string {
	return "/api/zip/" + url.PathEscape(jobID)
}
