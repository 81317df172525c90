package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hanko-field/promoclock/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	countdowns RouteRegistrar
	watches    RouteRegistrar

	watchMiddlewares []func(http.Handler) http.Handler
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	defaultTimeout    = 30 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the countdown route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		if cfg.countdowns != nil {
			cfg.countdowns(api)
		} else {
			registerNotImplementedRoute(api, "/promotions/{code}/countdown", "countdowns")
			registerNotImplementedRoute(api, "/countdowns/preview", "countdowns")
		}

		api.Group(func(group chi.Router) {
			for _, mw := range cfg.watchMiddlewares {
				if mw != nil {
					group.Use(mw)
				}
			}
			if cfg.watches != nil {
				cfg.watches(group)
				return
			}
			registerNotImplementedRoute(group, "/watches", "watches")
		})
	})

	return r
}

// WithBasePath overrides the /api/v1 prefix.
func WithBasePath(path string) Option {
	return func(cfg *routerConfig) {
		if path != "" {
			cfg.basePath = path
		}
	}
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithCountdownRoutes configures the registrar responsible for countdown reads and previews.
func WithCountdownRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.countdowns = reg
	}
}

// WithWatchRoutes configures the registrar responsible for server-side watches.
func WithWatchRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.watches = reg
	}
}

// WithWatchMiddlewares configures middlewares applied to the watch routes only.
func WithWatchMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.watchMiddlewares = append(cfg.watchMiddlewares, mw...)
	}
}

func registerNotImplementedRoute(r chi.Router, path, name string) {
	r.HandleFunc(path, notImplementedHandler(name))
}

func notImplementedHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s endpoints are not configured", name), http.StatusNotImplemented))
	}
}
