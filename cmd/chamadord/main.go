package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/InnersoftTecnologia/chama-ja/internal/config"
	"github.com/InnersoftTecnologia/chama-ja/internal/httpapi"
	"github.com/InnersoftTecnologia/chama-ja/internal/hub"
	"github.com/InnersoftTecnologia/chama-ja/internal/store/postgres"
	"github.com/InnersoftTecnologia/chama-ja/internal/telemetry"
	"github.com/InnersoftTecnologia/chama-ja/internal/tts"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("chamadord")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool, postgres.Options{CallAttempts: cfg.CallAttempts})

	speech, err := tts.NewClient(cfg.TTSEndpoint, cfg.TTSCacheDir, cfg.TTSTimeout)
	if err != nil {
		log.Fatalf("tts cache: %v", err)
	}

	h := hub.New()
	handler := httpapi.NewHandler(st, httpapi.Options{Speech: speech})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:    cfg.RateLimitPerMinute,
		IPBurst:        cfg.RateLimitBurst,
		TokenPerMinute: cfg.TokenRateLimitPerMinute,
		TokenBurst:     cfg.TokenRateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/api/", handler.Routes())
	mux.Handle("/healthz", handler.Routes())
	mux.Handle("/rt/tickets/", httpapi.NewRealtimeHandler(st, h))

	apiHandler := otelhttp.NewHandler(
		httpapi.LoggingMiddleware(limiter.Middleware(httpapi.AuthMiddleware(st, mux))),
		"chamadord",
	)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      apiHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := hub.NewDispatcher(st, h, cfg.DispatchInterval, cfg.DispatchBatchSize)
	go dispatcher.Run(ctx)

	if cfg.TTSPrefetch {
		announcer := tts.NewAnnouncer(speech, st, cfg.DispatchInterval, cfg.DispatchBatchSize)
		go announcer.Run(ctx)
	}

	go func() {
		log.Printf("chamadord listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
