// Package rest exposes the editor session to HTTP renderers.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"strategy-editor/infrastructure/observability"
	restmiddleware "strategy-editor/interfaces/http/rest/middleware"
)

// RouterOptions toggles optional surfaces
type RouterOptions struct {
	EnableCORS    bool
	EnableMetrics bool
}

// Router handles HTTP routing
type Router struct {
	editor      *EditorHandler
	persistence *PersistenceHandler
	metrics     *observability.Collector
	opts        RouterOptions
	logger      *zap.Logger
}

// NewRouter creates a new router. metrics may be nil.
func NewRouter(host *SessionHost, metrics *observability.Collector, opts RouterOptions, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		editor:      NewEditorHandler(host, logger),
		persistence: NewPersistenceHandler(host, logger),
		metrics:     metrics,
		opts:        opts,
		logger:      logger,
	}
}

// Setup configures all routes
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	if r.metrics != nil {
		router.Use(restmiddleware.Logger(r.logger, r.metrics))
	} else {
		router.Use(restmiddleware.Logger(r.logger, nil))
	}
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	if r.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	if r.opts.EnableMetrics && r.metrics != nil {
		router.Method(http.MethodGet, "/metrics", r.metrics.Handler())
	}

	router.Route("/api/v1/editor", func(rt chi.Router) {
		rt.Get("/", r.editor.GetView)
		rt.Get("/catalog", r.editor.GetCatalog)
		rt.Put("/details", r.editor.RenameStrategy)
		rt.Post("/gestures", r.editor.HandleGesture)

		rt.Route("/nodes", func(rt chi.Router) {
			rt.Post("/", r.editor.AddNode)
			rt.Delete("/{nodeID}", r.editor.DeleteNode)
			rt.Post("/{nodeID}/duplicate", r.editor.DuplicateNode)
			rt.Get("/{nodeID}/properties", r.editor.GetProperties)
			rt.Put("/{nodeID}/properties", r.editor.UpdateProperties)
		})

		rt.Post("/undo", r.editor.Undo)
		rt.Post("/redo", r.editor.Redo)
		rt.Post("/clear", r.editor.Clear)

		rt.Post("/save", r.persistence.Save)
		rt.Post("/load", r.persistence.Load)
		rt.Post("/import", r.persistence.Import)
		rt.Get("/export", r.persistence.Export)
		rt.Post("/submit", r.persistence.Submit)
	})

	return router
}
