package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poivault/poivault-go/internal/config"
	"github.com/poivault/poivault-go/internal/crypto"
	"github.com/poivault/poivault-go/internal/handler"
	"github.com/poivault/poivault-go/internal/ids"
	"github.com/poivault/poivault-go/internal/logging"
	"github.com/poivault/poivault-go/internal/repository"
	"github.com/poivault/poivault-go/internal/service"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	logger, err := logging.Init(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Warn("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	db, err := repository.NewDB(ctx, cfg.MySQLDSN)
	if db == nil {
		logger.Fatal("open mysql", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, cfg.StoreTimeout)
	if err != nil {
		logger.Warn("mysql ping failed, schema check skipped", zap.Error(err))
	} else if err := userRepo.EnsureTable(ctx); err != nil {
		logger.Fatal("create users table", zap.Error(err))
	}

	mdb, err := repository.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("connect mongo", zap.Error(err))
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mdb.Client().Disconnect(dctx); err != nil {
			logger.Warn("mongo disconnect", zap.Error(err))
		}
	}()
	if err := repository.EnsureIndexes(ctx, mdb); err != nil {
		logger.Warn("ensure mongo indexes", zap.Error(err))
	}

	poiRepo := repository.NewPOIRepository(mdb, cfg.StoreTimeout)
	historyRepo := repository.NewHistoryRepository(mdb, cfg.StoreTimeout)
	tokenRepo := repository.NewTokenRepository(mdb, cfg.StoreTimeout)
	cipher := crypto.NewCoordinateCipher(cfg.CoordinateKey)

	hasher := crypto.NewPasswordHasher(crypto.HashParams{
		Memory:      cfg.HashMemoryKiB,
		Iterations:  cfg.HashTime,
		Parallelism: cfg.HashThreads,
	})

	authService := service.NewAuthService(userRepo, tokenRepo, hasher, cfg.JWTSecret, cfg.JWTExpiry)
	poiService := service.NewPOIService(poiRepo, userRepo)
	searchService := service.NewSearchService(poiRepo, historyRepo, cipher, logger)

	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()

	router := handler.NewRouter(handler.RouterConfig{
		Context:     serveCtx,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Revocations: tokenRepo,
		RequestIDs:  ids.NewRequestIDs(cfg.NodeID),
		Logger:      logger,
	},
		handler.NewAuthHandler(authService, logger),
		handler.NewPOIHandler(poiService, logger),
		handler.NewSearchHandler(searchService, logger),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}
