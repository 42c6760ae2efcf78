// Package server exposes finished feature collections and cache statistics
// over HTTP so a map front-end can load them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/cache"
	"github.com/sells-group/venue-atlas/internal/geojson"
	"github.com/sells-group/venue-atlas/internal/model"
)

// CacheReader is the read side of the geocode cache.
type CacheReader interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, filter cache.ListFilter) ([]model.CacheRecord, error)
}

// validIdentifier matches the names the pipeline gives its output files.
var validIdentifier = regexp.MustCompile(`^([a-z0-9_]+|[A-Z0-9]+)$`)

// Server serves the output directory and the cache.
type Server struct {
	outputDir string
	cache     CacheReader
	router    chi.Router
}

// New creates a Server reading collections from outputDir.
func New(outputDir string, cr CacheReader) *Server {
	s := &Server{outputDir: outputDir, cache: cr}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/features/{identifier}", s.features)
	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", s.cacheStats)
		r.Get("/records", s.cacheRecords)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) features(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(chi.URLParam(r, "identifier"), ".json")
	if !validIdentifier.MatchString(id) {
		writeError(w, http.StatusBadRequest, "invalid identifier")
		return
	}

	path := filepath.Join(s.outputDir, geojson.Filename(id))
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "collection not found")
		return
	}
	if err != nil {
		zap.L().Error("server: open collection", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.cache.Count(r.Context())
	if err != nil {
		zap.L().Error("server: count cache", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"records": n})
}

func (s *Server) cacheRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := cache.ListFilter{
		State: strings.ToUpper(q.Get("state")),
		City:  q.Get("city"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	records, err := s.cache.List(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list cache", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []model.CacheRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
