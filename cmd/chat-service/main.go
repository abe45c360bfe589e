package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-chat/internal/auth"
	"github.com/weiawesome/wes-io-chat/internal/bridge"
	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/handler"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/internal/router"
	"github.com/weiawesome/wes-io-chat/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/database"
	"github.com/weiawesome/wes-io-chat/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
	"github.com/weiawesome/wes-io-chat/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(cfg.Log)
	logger := pkglog.L()
	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("db_driver", cfg.Database.Driver).
		Str("pubsub_driver", cfg.PubSub.Driver).
		Str("storage_driver", cfg.Storage.Driver).
		Msg("starting chat service")

	if cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	userRepo := repository.NewGormUserRepository(db)
	chatRepo := repository.NewGormChatRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	requestRepo := repository.NewGormRequestRepository(db)

	userCache, closeCache := initUserCache(cfg)
	defer closeCache()

	bus, err := pubsub.NewBus(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize pubsub")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing pubsub")
		}
	}()

	store, err := storage.New(ctx, cfg.Storage.Config)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.MaxAge, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token manager")
	}

	h := hub.NewHub()
	br := bridge.New(messageRepo, bus)
	authenticator := auth.NewAuthenticator(tokens, userRepo, userCache, cfg.Cache.TTL)
	rt := router.New(h, authenticator, br)

	userSvc := service.NewUserService(userRepo, chatRepo, requestRepo, tokens, store, cfg.Storage.URLExpiry, h)
	chatSvc := service.NewChatService(userRepo, chatRepo, messageRepo, br, store, cfg.Storage.URLExpiry, h)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	if local, ok := store.(*storage.LocalStorage); ok && cfg.Storage.Local.PublicURL != "" {
		r.Static(cfg.Storage.Local.PublicURL, local.BasePath())
	}

	handler.NewWSHandler(rt, cfg.WebSocket, cfg.Auth.CookieName, cfg.Server.AllowedOrigins).RegisterRoutes(r)
	handler.NewHandler(
		userSvc,
		chatSvc,
		middleware.NewAuthMiddleware(tokens, cfg.Auth.CookieName),
		handler.CookieConfig{Name: cfg.Auth.CookieName, MaxAge: cfg.Auth.MaxAge, Production: cfg.Server.Production},
		h,
	).RegisterRoutes(r)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	h.CloseAll()
	if err := h.Drain(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("websocket connections did not drain")
	}

	logger.Info().Msg("chat service stopped")
}

// initUserCache connects the Redis user cache when enabled. It falls back to
// no cache when Redis is unreachable.
func initUserCache(cfg *config.Config) (cache.UserCache, func()) {
	l := pkglog.L()
	if !cfg.Redis.Enabled {
		l.Info().Msg("user cache disabled")
		return nil, func() {}
	}

	c, err := cache.NewRedisUserCache(cfg.Redis, cfg.Cache.Prefix)
	if err != nil {
		l.Warn().Err(err).Msg("failed to connect to redis, running without user cache")
		return nil, func() {}
	}

	l.Info().Str("address", cfg.Redis.Address).Msg("user cache initialized")
	return c, func() {
		if err := c.Close(); err != nil {
			l.Error().Err(err).Msg("error closing redis connection")
		}
	}
}
