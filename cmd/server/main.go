package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/campus-accounts/internal/api"
	"github.com/wuwenbin0122/campus-accounts/internal/auth"
	"github.com/wuwenbin0122/campus-accounts/internal/db"
	"github.com/wuwenbin0122/campus-accounts/internal/metrics"
	"github.com/wuwenbin0122/campus-accounts/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: failed to load .env: %v", err)
	}

	cfg := utils.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	users, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store: failed to open", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("failed to initialise token manager", zap.Error(err))
	}

	service := auth.NewService(users, auth.NewBcryptHasher(cfg.BcryptCost), tokens)
	router := setupRouter(cfg, logger, service, tokens)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server crashed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}

func openStore(ctx context.Context, cfg *utils.Config, logger *zap.Logger) (db.UserStore, func(), error) {
	switch cfg.StoreDriver {
	case utils.StoreMongo:
		mongoStore, err := db.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		if err := mongoStore.EnsureCollections(ctx); err != nil {
			_ = mongoStore.Close(context.Background())
			return nil, nil, err
		}
		closeFn := func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				logger.Warn("mongo: close error", zap.Error(err))
			}
		}
		return db.NewMongoUsers(mongoStore), closeFn, nil

	case utils.StorePostgres:
		postgres, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx); err != nil {
			postgres.Close()
			return nil, nil, err
		}
		return db.NewPostgresUsers(postgres.Pool), postgres.Close, nil

	case utils.StoreMemory:
		logger.Warn("using in-memory store; records are lost on restart")
		return db.NewMemoryUsers(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func setupRouter(cfg *utils.Config, logger *zap.Logger, service *auth.Service, tokens *auth.TokenManager) *gin.Engine {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.RequestLogger(logger), gin.Recovery(), api.RequestTimeout(cfg.RequestTimeout))

	api.NewHandler(service, tokens, metrics.New()).RegisterRoutes(router)

	return router
}
