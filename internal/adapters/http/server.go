package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flowgraph/portgraph/internal/app/services"
	"github.com/flowgraph/portgraph/internal/core/graph"
	"github.com/flowgraph/portgraph/internal/core/store"
	"github.com/flowgraph/portgraph/internal/logging"
	"github.com/flowgraph/portgraph/internal/presentation/mermaid"
	"github.com/flowgraph/portgraph/pkg/serialization"
	"github.com/flowgraph/portgraph/pkg/validation"
)

// APIVersion is reported by /info.
const APIVersion = "1.0.0"

// Models defines the model operations the API exposes.
type Models interface {
	Import(ctx context.Context, name string, r io.Reader, from services.Encoding, tags ...string) (*store.Record, error)
	Export(ctx context.Context, id string, w io.Writer, to services.Encoding) error
	Load(ctx context.Context, id string, opts ...graph.LoadOption) (*graph.Model, *store.Record, error)
	List(ctx context.Context, filter store.Filter) ([]*store.Record, error)
	Delete(ctx context.Context, id string) error
	Prune(ctx context.Context, id string) ([]graph.NodeID, *store.Record, error)
}

// Server serves the model API.
type Server struct {
	Models         Models
	Logger         *slog.Logger
	Metrics        http.Handler
	MaxUploadBytes int64
}

type listQuery struct {
	Name   string   `query:"name" json:"name" validate:"omitempty,max=255"`
	Tags   []string `query:"tag" json:"tag" validate:"dive,required"`
	Limit  int      `query:"limit" json:"limit" validate:"min=0,max=1000"`
	Offset int      `query:"offset" json:"offset" validate:"min=0"`
	Since  string   `query:"since" json:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Before string   `query:"before" json:"before" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type importQuery struct {
	Name        string   `query:"name" json:"name" validate:"required,max=255"`
	Codec       string   `query:"codec" json:"codec" validate:"omitempty,codec"`
	Compression string   `query:"compression" json:"compression" validate:"omitempty,compression"`
	Tags        []string `query:"tag" json:"tag" validate:"dive,required"`
}

type importHeaders struct {
	ContentType string `header:"Content-Type" json:"Content-Type" validate:"omitempty,archive_media_type"`
}

type exportQuery struct {
	Format      string `query:"format" json:"format" validate:"omitempty,codec"`
	Compression string `query:"compression" json:"compression" validate:"omitempty,compression"`
}

type listResponse struct {
	Models []*store.Record `json:"models"`
	Count  int             `json:"count"`
}

type pruneResponse struct {
	Removed []graph.NodeID `json:"removed"`
	Model   *store.Record  `json:"model"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// NewHandler creates the HTTP handler for the model API.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = 32 << 20
	}

	v := validation.NewMiddleware(nil)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.Health)
	r.Get("/info", s.Info)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/models", func(r chi.Router) {
		r.With(v.ValidateQuery(listQuery{})).Get("/", s.ListModels)
		r.With(v.ValidateQuery(importQuery{}), v.ValidateHeaders(importHeaders{})).Post("/", s.ImportModel)
		r.Route("/{id}", func(r chi.Router) {
			r.With(v.ValidateQuery(exportQuery{})).Get("/", s.ExportModel)
			r.Delete("/", s.DeleteModel)
			r.Get("/describe", s.DescribeModel)
			r.Get("/graph", s.GraphModel)
			r.Post("/prune", s.PruneModel)
		})
	})

	return r
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info handles GET /info.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":            "portgraph-server",
		"api_version":    APIVersion,
		"format_version": graph.FormatVersion,
	})
}

// ListModels handles GET /models.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	q, _ := validation.QueryFrom[listQuery](r.Context())
	filter := store.Filter{
		Name:   q.Name,
		Tags:   q.Tags,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	var err error
	if filter.Since, err = parseTime(q.Since); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Before, err = parseTime(q.Before); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	records, err := s.Models.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	if records == nil {
		records = []*store.Record{}
	}
	s.writeJSON(w, http.StatusOK, listResponse{Models: records, Count: len(records)})
}

// ImportModel handles POST /models. The body is an archive in the encoding
// named by the codec and compression parameters. Without a codec parameter
// the Content-Type header decides, and JSON is the default.
func (s *Server) ImportModel(w http.ResponseWriter, r *http.Request) {
	q, _ := validation.QueryFrom[importQuery](r.Context())
	from := services.Encoding{Codec: q.Codec, Compression: q.Compression}
	if h, ok := validation.HeadersFrom[importHeaders](r.Context()); ok && from.Codec == "" && h.ContentType != "" {
		from.Codec, _ = serialization.CodecForMediaType(h.ContentType)
	}
	if from.Codec == "" {
		from.Codec = "json"
	}

	body := http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	record, err := s.Models.Import(r.Context(), q.Name, body, from, q.Tags...)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		s.writeError(w, statusFor(err, http.StatusUnprocessableEntity), err)
		return
	}

	w.Header().Set("Location", "/models/"+record.ID)
	s.writeJSON(w, http.StatusCreated, record)
}

// ExportModel handles GET /models/{id}.
func (s *Server) ExportModel(w http.ResponseWriter, r *http.Request) {
	q, _ := validation.QueryFrom[exportQuery](r.Context())
	to := services.Encoding{Codec: q.Format, Compression: q.Compression}
	if to.Codec == "" {
		to.Codec = "json"
	}

	var buf bytes.Buffer
	if err := s.Models.Export(r.Context(), chi.URLParam(r, "id"), &buf, to); err != nil {
		s.writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}

	w.Header().Set("Content-Type", contentType(to))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// DeleteModel handles DELETE /models/{id}.
func (s *Server) DeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.Models.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DescribeModel handles GET /models/{id}/describe.
func (s *Server) DescribeModel(w http.ResponseWriter, r *http.Request) {
	m, _, err := s.Models.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err, http.StatusUnprocessableEntity), err)
		return
	}
	s.writeJSON(w, http.StatusOK, validation.Describe(m))
}

// GraphModel handles GET /models/{id}/graph and returns a Mermaid chart.
func (s *Server) GraphModel(w http.ResponseWriter, r *http.Request) {
	m, _, err := s.Models.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err, http.StatusUnprocessableEntity), err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, mermaid.Generate(m, nil))
}

// PruneModel handles POST /models/{id}/prune.
func (s *Server) PruneModel(w http.ResponseWriter, r *http.Request) {
	removed, record, err := s.Models.Prune(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err, http.StatusUnprocessableEntity), err)
		return
	}
	if removed == nil {
		removed = []graph.NodeID{}
	}
	s.writeJSON(w, http.StatusOK, pruneResponse{Removed: removed, Model: record})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: services.ErrorKind(err)})
}

// statusFor maps well-known errors to a status and falls back to def.
func statusFor(err error, def int) int {
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidRecordID),
		errors.Is(err, store.ErrInvalidName),
		errors.Is(err, store.ErrInvalidLimit),
		errors.Is(err, store.ErrInvalidOffset),
		errors.Is(err, store.ErrInvalidTimeRange),
		errors.Is(err, serialization.ErrUnknownCodec),
		errors.Is(err, serialization.ErrUnknownCompression):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrStoreFull):
		return http.StatusInsufficientStorage
	}
	return def
}

func contentType(e services.Encoding) string {
	if e.Compression != "" && e.Compression != string(serialization.CompressionNone) {
		return "application/octet-stream"
	}
	switch e.Codec {
	case "json":
		return "application/json"
	case "yaml", "yml":
		return "application/yaml"
	default:
		return "application/msgpack"
	}
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return &t, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("encode response", "status", status, "error", err)
	}
}
