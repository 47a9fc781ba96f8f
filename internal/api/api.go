// Package api exposes report exports over HTTP.
//
//	GET /api/targets/{target_id}/export/?[filter][&mapping=NAME][&format=json|cyclonedx]
//	GET /healthz
//
// Every failed export is answered with 400 and an RFC 9457 problem document.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/owtf/exporter/internal/bom"
	"github.com/owtf/exporter/internal/log"
	"github.com/owtf/exporter/internal/model"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/owtf/exporter/internal/api"

	RequestIDHeader = "X-Request-Id"

	FormatJSON      = "json"
	FormatCycloneDX = "cyclonedx"

	contentTypeJSON      = "application/json"
	contentTypeCycloneDX = "application/vnd.cyclonedx+json; version=1.6"
	contentTypeProblem   = "application/problem+json"
)

// Reporter builds a report of a single target.
type Reporter interface {
	Build(ctx context.Context, targetID int64, filter model.Filter, mappingName string) (model.Report, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	reporter Reporter
	health   Pinger
	tracer   trace.Tracer
	meter    metric.Meter
	metrics  metrics
	mux      *http.ServeMux
}

type metrics struct {
	reports  metric.Int64Counter
	duration metric.Float64Histogram
}

type Option func(*Server)

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(s *Server) {
		s.meter = meter
	}
}

func New(reporter Reporter, health Pinger, opts ...Option) (*Server, error) {
	s := &Server{
		reporter: reporter,
		health:   health,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.metrics.reports, err = s.meter.Int64Counter(
		"exporter.reports",
		metric.WithDescription("Number of report exports"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reports counter: %w", err)
	}
	s.metrics.duration, err = s.meter.Float64Histogram(
		"exporter.report.duration",
		metric.WithDescription("Report export duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	s.mux.HandleFunc("GET /api/targets/{target_id}/export/{$}", s.export)
	s.mux.HandleFunc("GET /api/targets/{target_id}/export", s.export)
	s.mux.HandleFunc("GET /healthz", s.healthz)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	ctx := log.ContextAttrs(r.Context(),
		slog.String("request_id", id),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	s.mux.ServeHTTP(w, r.WithContext(ctx))
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := s.tracer.Start(r.Context(), "api.export", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	format, err := s.serveExport(ctx, w, r)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		problem(ctx, w, err)
	}
	attrs := metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("outcome", outcome),
	)
	s.metrics.reports.Add(ctx, 1, attrs)
	s.metrics.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func (s *Server) serveExport(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	query := r.URL.Query()
	format := query.Get("format")
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCycloneDX {
		return format, fmt.Errorf("%w: format %q", model.ErrInvalidParameterType, format)
	}

	raw := r.PathValue("target_id")
	targetID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return format, fmt.Errorf("%w: target_id %q", model.ErrInvalidTargetReference, raw)
	}

	mappingName := query.Get("mapping")
	query.Del("mapping")
	query.Del("format")
	var filter model.Filter
	if len(query) > 0 {
		filter = model.Filter(query)
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("target.id", targetID),
		attribute.String("format", format),
	)

	rep, err := s.reporter.Build(ctx, targetID, filter, mappingName)
	if err != nil {
		return format, err
	}

	switch format {
	case FormatCycloneDX:
		w.Header().Set("Content-Type", contentTypeCycloneDX)
		w.WriteHeader(http.StatusOK)
		if err := bom.FromReport(rep).AsJSON(w); err != nil {
			slog.ErrorContext(ctx, "writing response failed", "error", err)
		}
	default:
		writeJSON(ctx, w, http.StatusOK, contentTypeJSON, rep)
	}
	return format, nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.health.Ping(ctx); err != nil {
		slog.ErrorContext(ctx, "health check failed", "error", err)
		writeJSON(ctx, w, http.StatusServiceUnavailable, contentTypeJSON, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(ctx, w, http.StatusOK, contentTypeJSON, map[string]string{"status": "ok"})
}

// Problem is an RFC 9457 problem document.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// InternalErrorDetail replaces the detail of errors outside of the client
// error taxonomy so storage internals are not echoed to callers.
const InternalErrorDetail = "internal error"

// problem answers 400 for any export failure. Errors outside of the client
// error taxonomy are logged at error level and reported with a generic detail.
func problem(ctx context.Context, w http.ResponseWriter, err error) {
	detail := err.Error()
	if model.IsClientError(err) {
		slog.WarnContext(ctx, "export failed", "error", err)
	} else {
		slog.ErrorContext(ctx, "export failed", "error", err)
		detail = InternalErrorDetail
	}
	writeJSON(ctx, w, http.StatusBadRequest, contentTypeProblem, Problem{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusBadRequest),
		Status: http.StatusBadRequest,
		Detail: detail,
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "writing response failed", "error", err)
	}
}
