// Package api exposes posts, comments, users and interactions over HTTP.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/murmurapp/murmur-server/internal/config"
	"github.com/murmurapp/murmur-server/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	store    store.RecordStore
	services *Services
	router   *chi.Mux
	api      huma.API
	handler  http.Handler
	logger   *slog.Logger
}

// NewServer creates the router, registers every route and wraps it for tracing.
// A nil resolver reads the actor from the X-Actor-ID header.
func NewServer(st store.RecordStore, services *Services, cfg config.ServerConfig, resolver ActorResolver, logger *slog.Logger) *Server {
	if resolver == nil {
		resolver = HeaderActorResolver{}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", ActorHeader, "traceparent", "baggage"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	router.Use(actorMiddleware(resolver))

	s := &Server{
		store:    st,
		services: services,
		router:   router,
		api:      newAPI(router, "Murmur API"),
		logger:   logger,
	}
	s.registerRoutes()

	s.handler = otelhttp.NewHandler(router, "murmur-api", otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))
	return s
}

// newAPI builds the huma API on router with the envelope and error mapping installed.
func newAPI(router *chi.Mux, title string) huma.API {
	humaConfig := huma.DefaultConfig(title, "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()
	return api
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerPostRoutes()
	s.registerInteractionRoutes()
	s.registerCommentRoutes()
	s.registerUserRoutes()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
