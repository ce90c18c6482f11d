package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"github.com/trunov/imageconv/internal/archive"
	"github.com/trunov/imageconv/internal/config"
	"github.com/trunov/imageconv/internal/entities"
	"github.com/trunov/imageconv/internal/format"
	"github.com/trunov/imageconv/internal/metrics"
)

type UseCase interface {
	ConvertBatch(ctx context.Context, uploads []entities.Upload, opts entities.ConversionOptions) (entities.Job, error)
	GetFile(ctx context.Context, jobID, name string) (entities.ConvertedOutput, error)
	GetJob(ctx context.Context, jobID string) (entities.Job, error)
}

type Handler struct {
	useCase UseCase
	cfg     *config.Config
	metrics metrics.Metrics
}

func New(useCase UseCase, cfg *config.Config, m metrics.Metrics) *Handler {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Handler{
		useCase: useCase,
		cfg:     cfg,
		metrics: m,
	}
}

// ConvertImages handles POST /api/convert.
func (h *Handler) ConvertImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxRequestBodyBytes())

	if err := r.ParseMultipartForm(h.cfg.Upload.MaxMultipartMemoryMB << 20); err != nil {
		writeMultipartError(w, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSONError(w, "No files uploaded", http.StatusBadRequest)
		return
	}
	if len(headers) > h.cfg.Upload.MaxFiles {
		writeJSONError(w, fmt.Sprintf("too many files: at most %d per request", h.cfg.Upload.MaxFiles), http.StatusBadRequest)
		return
	}

	maxFileSize := h.cfg.Upload.MaxFileSizeMB << 20
	uploads := make([]entities.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxFileSize {
			writeJSONError(w, fmt.Sprintf("file %q exceeds maximum allowed size", fh.Filename), http.StatusRequestEntityTooLarge)
			return
		}
		file, err := fh.Open()
		if err != nil {
			writeJSONError(w, "an error occurred while reading the upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxFileSize+1))
		file.Close()
		if err != nil {
			writeJSONError(w, "an error occurred while reading the upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if int64(len(data)) > maxFileSize {
			writeJSONError(w, fmt.Sprintf("file %q exceeds maximum allowed size", fh.Filename), http.StatusRequestEntityTooLarge)
			return
		}
		uploads = append(uploads, entities.Upload{Name: fh.Filename, Data: data})
	}

	opts := parseConversionOptions(r.MultipartForm.Value)

	job, err := h.useCase.ConvertBatch(r.Context(), uploads, opts)
	if err != nil {
		if errors.Is(err, entities.ErrValidation) {
			writeJSONError(w, "No files uploaded", http.StatusBadRequest)
			return
		}
		captureError(r, err)
		writeJSONError(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	resp := ConvertResponse{
		JobID:     job.ID,
		Files:     make([]FileInfo, 0, len(job.Outputs)),
		ZipURL:    zipURL(job.ID),
		ExpiresAt: job.ExpiresAt,
	}
	for _, o := range job.Outputs {
		resp.Files = append(resp.Files, FileInfo{
			Name:        o.Name,
			Size:        o.Size,
			ContentType: o.ContentType,
			Width:       o.Width,
			Height:      o.Height,
			URL:         fileURL(job.ID, o.Name),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetFile handles GET /api/file/{jobId}/{name}.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	name := chi.URLParam(r, "name")
	// chi matches on the raw path when the request carried escapes Go would
	// not have produced itself.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}

	out, err := h.useCase.GetFile(r.Context(), jobID, name)
	if err != nil {
		h.lookupFailed(w, r, "file", err)
		return
	}

	contentType := out.ContentType
	if contentType == "" {
		contentType = format.OctetStream
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment(out.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		log.Printf("[download] job %s file %s: client write failed: %v", jobID, out.Name, err)
		h.metrics.IncDownload("file", "aborted")
		return
	}
	h.metrics.IncDownload("file", "ok")
}

// GetZip handles GET /api/zip/{jobId}. The archive is written while it is
// built; a failure midway aborts the connection.
func (h *Handler) GetZip(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job, err := h.useCase.GetJob(r.Context(), jobID)
	if err != nil {
		h.lookupFailed(w, r, "zip", err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachment("images-"+job.ID+".zip"))
	w.WriteHeader(http.StatusOK)

	if err := archive.WriteZip(w, job.Outputs, job.CreatedAt); err != nil {
		log.Printf("[download] job %s: zip stream failed: %v", jobID, err)
		h.metrics.IncDownload("zip", "aborted")
		if r.Context().Err() == nil {
			captureError(r, err)
		}
		panic(http.ErrAbortHandler)
	}
	h.metrics.IncDownload("zip", "ok")
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) lookupFailed(w http.ResponseWriter, r *http.Request, kind string, err error) {
	if errors.Is(err, entities.ErrNotFound) {
		h.metrics.IncDownload(kind, "not_found")
		writeJSONError(w, "Not found", http.StatusNotFound)
		return
	}
	h.metrics.IncDownload(kind, "error")
	captureError(r, err)
	writeJSONError(w, "Lookup failed", http.StatusInternalServerError)
}

func captureError(r *http.Request, err error) {
	log.Printf("[http] %s %s: %v", r.Method, r.URL.Path, err)
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
