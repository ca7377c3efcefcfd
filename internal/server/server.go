// Package server exposes the query views as a read-only JSON API.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/immistat/engine"
	"github.com/spektr-org/immistat/internal/metrics"
	"github.com/spektr-org/immistat/schema"
)

// Options configures a Server.
type Options struct {
	TopN        int                 // default n for ranked views
	MetricsPath string              // empty disables the metrics endpoint
	Gatherer    prometheus.Gatherer // defaults to prometheus.DefaultGatherer
	Metrics     *metrics.Metrics
	Logger      logrus.FieldLogger
}

// Server is the HTTP layer. It delegates every computation to engine.Execute.
type Server struct {
	holder *Holder
	opts   Options
	log    logrus.FieldLogger
}

// New creates a Server over h.
func New(h *Holder, opts Options) *Server {
	if opts.TopN <= 0 {
		opts.TopN = engine.DefaultTopN
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Server{holder: h, opts: opts, log: log}
}

// Router wires all endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	if s.opts.MetricsPath != "" {
		r.Method(http.MethodGet, s.opts.MetricsPath, promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/dataset", s.handleDataset)
		r.Get("/districts", s.view(engine.ViewDistricts))
		r.Get("/districts/top", s.view(engine.ViewTopDistricts))
		r.Get("/districts/leading", s.view(engine.ViewLeadingDistrict))
		r.Get("/governorates", s.view(engine.ViewGovernorates))
		r.Get("/categories", s.view(engine.ViewCategories))
		r.Get("/categories/leading", s.view(engine.ViewLeadingCategory))
		r.Get("/composition", s.view(engine.ViewComposition))
		r.Get("/insights", s.view(engine.ViewInsights))
		r.Post("/query", s.handleQuery)
		r.Post("/reload", s.handleReload)
	})
	return r
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok", "loaded": false}
	if ds, err := s.holder.Dataset(); err == nil {
		resp["loaded"] = true
		resp["dataset"] = ds.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

type datasetInfo struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	LoadedAt   time.Time `json:"loadedAt"`
	Records    int       `json:"records"`
	Categories []string  `json:"categories"`
	GrandTotal int64     `json:"grandTotal"`
}

func describe(ds *engine.Dataset) datasetInfo {
	return datasetInfo{
		ID:         ds.ID,
		Source:     ds.Source,
		LoadedAt:   ds.LoadedAt,
		Records:    ds.Len(),
		Categories: ds.Categories(),
		GrandTotal: engine.GrandTotal(ds),
	}
}

func (s *Server) handleDataset(w http.ResponseWriter, _ *http.Request) {
	ds, err := s.holder.Dataset()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(ds))
}

// view serves one engine view from query parameters.
func (s *Server) view(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, err := specFromQuery(name, r)
		if err != nil {
			writeError(w, err)
			return
		}
		s.execute(w, spec)
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var spec engine.QuerySpec
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		writeError(w, errors.Wrapf(engine.ErrInvalidArgument, "decode query: %v", err))
		return
	}
	s.execute(w, spec)
}

func (s *Server) execute(w http.ResponseWriter, spec engine.QuerySpec) {
	ds, err := s.holder.Dataset()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := engine.Execute(spec, ds,
		engine.WithDefaultTopN(s.opts.TopN),
		engine.WithLogger(s.log),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.holder.Reload(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(ds))
}

// ============================================================================
// REQUEST PARSING
// ============================================================================

// specFromQuery reads n, categories, sort and identifier filters.
// An absent categories parameter means all categories; "categories=" means none.
func specFromQuery(view string, r *http.Request) (engine.QuerySpec, error) {
	q := r.URL.Query()
	spec := engine.QuerySpec{View: view, SortBy: q.Get("sort")}

	if raw := q.Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return spec, errors.Wrapf(engine.ErrInvalidArgument, "n must be a positive integer, got %q", raw)
		}
		spec.N = n
	}

	if _, ok := q["categories"]; ok {
		spec.Categories = splitList(q["categories"])
	}

	for _, dim := range []string{schema.DimensionDistrict, schema.DimensionGovernorate} {
		if vals := splitList(q[dim]); len(vals) > 0 {
			if spec.Filters.Dimensions == nil {
				spec.Filters.Dimensions = make(map[string][]string)
			}
			spec.Filters.Dimensions[dim] = vals
		}
	}
	return spec, nil
}

// splitList flattens repeated and comma-separated values, dropping blanks.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ============================================================================
// RESPONSES
// ============================================================================

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps error kinds onto HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, engine.ErrEmptyDataset):
		return http.StatusUnprocessableEntity, "empty_dataset"
	case errors.Is(err, engine.ErrDataSource):
		return http.StatusServiceUnavailable, "data_source"
	case errors.Is(err, ErrNoDataset):
		return http.StatusServiceUnavailable, "no_dataset"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeJSON(w, status, errorBody{Error: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ============================================================================
// MIDDLEWARE
// ============================================================================

// instrument records request latency by chi route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.opts.Metrics.ObserveRequest(route, r.Method, strconv.Itoa(status), elapsed)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"route":      route,
			"status":     status,
			"elapsed":    elapsed.String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}
