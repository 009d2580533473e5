package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kmrl/docintel/internal/config"
	"github.com/kmrl/docintel/internal/core/ports"
	"github.com/kmrl/docintel/internal/observability/metrics"
)

const serviceName = "api"

// UploadSpool receives multipart file parts before the pipeline owns them.
type UploadSpool interface {
	Write(originalName string, r io.Reader, limit int64) (string, int64, error)
}

type Dependencies struct {
	Ingestor  ports.DocumentIngestor
	Documents ports.DocumentService
	Stats     ports.StatsService
	Spool     UploadSpool
	// Files removes spooled parts when a request is rejected before the
	// pipeline runs.
	Files   ports.FileStore
	Metrics *metrics.HTTPServerMetrics
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", rt.healthz)
	r.Get("/health", rt.healthz)
	if rt.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.deps.Metrics.Handler())
	}

	r.Route("/api/documents", func(r chi.Router) {
		r.Get("/", rt.listDocuments)
		r.Post("/upload", rt.uploadDocuments)

		r.Get("/stats/dashboard", rt.dashboardStats)
		r.Get("/stats/department-distribution", rt.departmentDistribution)
		r.Get("/stats/processing-efficiency", rt.processingEfficiency)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", rt.getDocument)
			r.Put("/", rt.updateDocument)
			r.Delete("/", rt.deleteDocument)
			r.Get("/analysis", rt.getDocumentAnalysis)
			r.Get("/download", rt.downloadDocument)
			r.Get("/file", rt.originalFile)
		})
	})

	var handler http.Handler = r
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
