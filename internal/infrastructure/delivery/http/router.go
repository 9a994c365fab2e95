// Package httprouter exposes the video service over HTTP and websockets.
package httprouter

import (
	"log/slog"
	"net/http"
	"slices"

	"tubefetch/internal/config"
	"tubefetch/internal/infrastructure/delivery/http/middleware"
	"tubefetch/internal/observability"
	"tubefetch/internal/service"
)

type Router struct {
	*http.ServeMux
	log         *slog.Logger
	cfg         *config.Config
	metrics     *observability.Metrics
	globalChain []func(http.Handler) http.Handler
	routeChain  []func(http.Handler) http.Handler
	isSubRouter bool
	svc         service.Video
}

func New(log *slog.Logger, cfg *config.Config, svc service.Video, metrics *observability.Metrics) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log.With(slog.String("package", "httprouter")),
		cfg:      cfg,
		metrics:  metrics,
		svc:      svc,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

func (r *Router) Use(middleware ...func(http.Handler) http.Handler) {
	if r.isSubRouter {
		r.routeChain = append(r.routeChain, middleware...)
	} else {
		r.globalChain = append(r.globalChain, middleware...)
	}
}

func (r *Router) Group(fn func(r *Router)) {
	subRouter := &Router{
		isSubRouter: true,
		routeChain:  slices.Clone(r.routeChain),
		ServeMux:    r.ServeMux,
		log:         r.log,
		cfg:         r.cfg,
		metrics:     r.metrics,
		svc:         r.svc,
	}

	fn(subRouter)
}

func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, h)
}

func (r *Router) Handle(pattern string, h http.Handler) {
	for _, middleware := range slices.Backward(r.routeChain) {
		h = middleware(h)
	}

	r.ServeMux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, middleware := range slices.Backward(r.globalChain) {
		h = middleware(h)
	}

	h.ServeHTTP(w, req)
}

func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(r.metrics),
	)
}

func (r *Router) SetRoutes() {
	r.SetRoutesHealthcheck()
	r.SetRoutesVideos()
	r.SetRoutesFiles()

	r.Handle("GET /metrics", observability.Handler())
}

func (r *Router) SetRoutesHealthcheck() {
	r.HandleFunc("GET /v1/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func (r *Router) SetRoutesVideos() {
	r.Group(func(r *Router) {
		r.Use(noStore)

		r.HandleFunc("GET /v1/videos", r.GetVideo)
		r.HandleFunc("POST /v1/downloads", r.Download)
		r.HandleFunc("GET /v1/downloads/ws", r.DownloadWS)
	})
}

func (r *Router) SetRoutesFiles() {
	r.Group(func(r *Router) {
		r.Use(noStore)

		r.HandleFunc("GET /v1/files", r.ListFiles)
	})
	r.HandleFunc("GET /v1/files/{id}", r.GetFile)
}

// noStore keeps per-request results out of shared caches.
func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
