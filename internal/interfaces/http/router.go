package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ipede/mfa-service/docs"
	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/infrastructure/config"
	"github.com/ipede/mfa-service/internal/infrastructure/metrics"
	"github.com/ipede/mfa-service/internal/interfaces/http/handlers"
	"github.com/ipede/mfa-service/internal/interfaces/http/middleware/auth"
	metricsmw "github.com/ipede/mfa-service/internal/interfaces/http/middleware/metrics"
	"github.com/ipede/mfa-service/internal/interfaces/http/middleware/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dependencies are the collaborators the router serves
type Dependencies struct {
	Config      *config.Config
	MFAService  domain.MFAService
	UserService domain.UserService
	// Ready reports whether the storage backend answers
	Ready    func(ctx context.Context) error
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type Router struct {
	router  *chi.Mux
	limiter *ratelimit.RateLimiter
}

func NewRouter(deps Dependencies) *Router {
	cfg := deps.Config
	logger := deps.Logger
	ready := deps.Ready
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}

	authMiddleware := auth.NewAuthMiddleware(cfg.JWTSecret, logger)
	rateLimiter := ratelimit.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 3*time.Minute)

	mfaHandler := handlers.NewMFAHandler(deps.MFAService, logger)
	userHandler := handlers.NewUserHandler(deps.UserService, logger)

	// Create router with middleware
	router := createRouter()
	if deps.Metrics != nil {
		router.Use(metricsmw.WithMetrics(deps.Metrics, logger))
	}

	// Health check endpoints
	router.Group(func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				logger.Error("Storage health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("Storage unavailable"))
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Ready"))
		})

		r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Alive"))
		})
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Swagger UI configuration
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
		httpSwagger.DeepLinking(true),
		httpSwagger.PersistAuthorization(true),
	))

	// Serve Swagger JSON with CORS headers
	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write(docs.SwaggerJSON)
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		r.Use(authMiddleware.Verifier, authMiddleware.Authenticator)

		r.Route("/mfa", func(r chi.Router) {
			r.Post("/generate-key", mfaHandler.GenerateKey)
			r.Post("/attach", mfaHandler.Attach)
			r.Post("/verify", mfaHandler.Verify)
			r.Post("/regenerate-codes", mfaHandler.RegenerateCodes)
			r.Post("/detach", mfaHandler.Detach)
			r.Delete("/{username}", mfaHandler.Purge)
		})

		r.Get("/users/{username}", userHandler.GetMetadata)
	})

	return &Router{router: router, limiter: rateLimiter}
}

func createRouter() *chi.Mux {
	router := chi.NewRouter()

	// Add middleware
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Timeout(60 * time.Second))

	return router
}

// RunJanitor evicts idle rate limit buckets until ctx is done
func (r *Router) RunJanitor(ctx context.Context) {
	r.limiter.Run(ctx, time.Minute)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
