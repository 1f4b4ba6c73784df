// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sostenible-social/marketplace-chat/internal/cache"
	"github.com/sostenible-social/marketplace-chat/internal/config"
	"github.com/sostenible-social/marketplace-chat/internal/handler"
	"github.com/sostenible-social/marketplace-chat/internal/middleware"
	"github.com/sostenible-social/marketplace-chat/internal/realtime"
	"github.com/sostenible-social/marketplace-chat/internal/service"
	"github.com/sostenible-social/marketplace-chat/internal/store"
	"github.com/sostenible-social/marketplace-chat/pkg/logger"
	"github.com/sostenible-social/marketplace-chat/pkg/tracing"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "marketplace-chat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Durable store: Postgres when configured, in-memory otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pg, err := store.NewPostgresStore(connectCtx, cfg.DatabaseURL)
		if err != nil {
			cancel()
			log.Error("failed to connect to database", zap.Error(err))
			os.Exit(1)
		}
		if err := pg.EnsureSchema(connectCtx); err != nil {
			cancel()
			log.Error("failed to ensure schema", zap.Error(err))
			os.Exit(1)
		}
		cancel()
		st = pg
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		st = store.NewMemoryStore()
	}
	defer st.Close()

	// Conversation cache is optional.
	var c cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("failed to connect to redis, cache disabled", zap.Error(err))
		} else {
			c = rc
			defer rc.Close()
		}
	}

	hub := realtime.NewHub(log)
	defer hub.Close()

	conversationSvc := service.NewConversationService(st, c, log, cfg.StoreTimeout)
	messageSvc := service.NewMessageService(st, conversationSvc, hub, log, cfg.StoreTimeout)

	healthHandler := handler.NewHealthHandler(st, c)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, log)
	wsHandler := handler.NewWSHandler(hub, messageSvc, cfg.JWTSecret, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Websocket endpoint; identity is verified in the handshake.
	r.Get("/ws", wsHandler.Serve)

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Resolve)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
