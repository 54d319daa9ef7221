package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/geocoder89/speechgate/internal/auth"
	"github.com/geocoder89/speechgate/internal/config"
	httpx "github.com/geocoder89/speechgate/internal/http"
	"github.com/geocoder89/speechgate/internal/observability"
	"github.com/geocoder89/speechgate/internal/service"
	"github.com/geocoder89/speechgate/internal/speech"
)

const serviceName = "speechgate"

func main() {
	// .env is optional; real deployments inject the environment
	_ = godotenv.Load()

	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.OTelEnabled {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.OTelEndpoint, cfg.OTelSampleRatio)
		cancel()

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	store, closeStore, err := openUserStore(cfg, prom, log)
	if err != nil {
		log.Error("user store init failed", "store", cfg.UserStore, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// outbound clients carry the trace context
	jwksClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	speechClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	verifier := auth.NewGoogleVerifier(cfg.GoogleClientID, auth.NewKeySet(cfg.GoogleJWKSURL, jwksClient))
	synth := speech.New(cfg.OpenAIAPIKey, speech.WithBaseURL(cfg.OpenAIBaseURL), speech.WithHTTPClient(speechClient))

	accounts := service.NewAccounts(store, log)
	generator := service.NewGenerator(store, synth, service.GeneratorConfig{
		TrialMaximum: cfg.TrialMaximum,
		Timeout:      cfg.SpeechTimeout,
	}, prom, log)

	// set up routers with the log
	router := httpx.NewRouter(log, httpx.RouterDeps{
		Env:                cfg.Env,
		ServiceName:        serviceName,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		Verifier:           verifier,
		Accounts:           accounts,
		Generator:          generator,
		StorePing:          store.Ping,
		Prom:               prom,
		Gatherer:           reg,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// audio is streamed for as long as the synthesis deadline allows
		WriteTimeout: cfg.SpeechTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.UserStore)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
