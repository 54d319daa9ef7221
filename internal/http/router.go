package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/speechgate/internal/http/handlers"
	"github.com/geocoder89/speechgate/internal/http/middlewares"
	"github.com/geocoder89/speechgate/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterDeps struct {
	Env                string
	ServiceName        string
	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	Verifier  middlewares.IdentityVerifier
	Accounts  handlers.Authenticator
	Generator handlers.SpeechGenerator

	// StorePing backs /readyz; nil means always ready.
	StorePing func(ctx context.Context) error

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, deps RouterDeps) *gin.Engine {
	if deps.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	if deps.ServiceName != "" {
		r.Use(otelgin.Middleware(deps.ServiceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.CORSAllowedOrigins))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health
	h := handlers.NewHealthHandler(deps.StorePing)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// docs
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	authMW := middlewares.NewAuthMiddleware(deps.Verifier, deps.Prom, log)

	authHandler := handlers.NewAuthHandler(deps.Accounts)
	speechHandler := handlers.NewSpeechHandler(deps.Generator)

	api := r.Group("/")
	if deps.MaxBodyBytes > 0 {
		api.Use(middlewares.MaxBodyBytes(deps.MaxBodyBytes))
	}
	api.Use(authMW.RequireIdentity())
	{
		api.POST("/auth", authHandler.Authenticate)
		api.POST("/generate-speech", speechHandler.Generate)
	}

	return r
}
