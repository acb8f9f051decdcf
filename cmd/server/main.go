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
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/config"
	"github.com/AnshRaj112/macrolog-backend/internal/database"
	"github.com/AnshRaj112/macrolog-backend/internal/handlers"
	"github.com/AnshRaj112/macrolog-backend/internal/logging"
	"github.com/AnshRaj112/macrolog-backend/internal/middleware"
	"github.com/AnshRaj112/macrolog-backend/internal/routes"
	"github.com/AnshRaj112/macrolog-backend/internal/services"
	"github.com/AnshRaj112/macrolog-backend/internal/store"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("no .env file found")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := database.ConnectPostgres(ctx, cfg.PostgresURI, logger)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer database.DisconnectPostgres(pg)

	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI, logger)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer database.DisconnectRedis(rdb)

	mongoClient, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer database.DisconnectMongo(mongoClient)

	docs := store.NewMongoStore(mongoDB)
	if err := docs.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to ensure MongoDB indexes", zap.Error(err))
	}

	hub := services.NewLedgerHub(rdb, logger.Named("realtime"))
	hub.Start(ctx)

	ledger := services.NewLedger(docs, logger.Named("ledger"), loc)
	ledger.SetPublisher(hub)
	sessions := services.NewSessionStore(rdb)

	profiles := services.NewProfileService(docs, logger.Named("profile"))
	profiles.SetCache(services.NewRedisCache(rdb, services.DefaultCacheTTL))

	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(services.NewUserService(pg), sessions, logger),
		Profile:  handlers.NewProfileHandler(profiles, logger),
		Ledger:   handlers.NewLedgerHandler(ledger, logger),
		Foods:    handlers.NewFoodHandler(services.NewFoodLogService(docs, ledger, logger.Named("foods")), logger),
		Realtime: handlers.NewLedgerSocketHandler(hub, ledger, cfg.AllowedOrigins, logger),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ZapRequestLogger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		logger.Info("production security enabled")
	} else {
		r.Use(middleware.NewRedisRateLimiter(rdb, logger).Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, h, sessions, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("macrolog backend running",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Environment),
			zap.String("ledger_timezone", loc.String()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
