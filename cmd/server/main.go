package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/tts-access-api/internal/config"
	"github.com/iliyamo/tts-access-api/internal/database"
	"github.com/iliyamo/tts-access-api/internal/handler"
	"github.com/iliyamo/tts-access-api/internal/logging"
	"github.com/iliyamo/tts-access-api/internal/middleware"
	"github.com/iliyamo/tts-access-api/internal/queue"
	"github.com/iliyamo/tts-access-api/internal/repository"
	"github.com/iliyamo/tts-access-api/internal/response"
	"github.com/iliyamo/tts-access-api/internal/router"
	"github.com/iliyamo/tts-access-api/internal/service"
	"github.com/iliyamo/tts-access-api/internal/utils"
)

func main() {
	cfg := config.Load()
	log := logging.Must(cfg.Env)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connect", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("database migrate", zap.Error(err))
	}

	// Redis is optional for the limiter and cache; the status store keeps a
	// lazily connected client so TTS lookups recover once Redis is back.
	rdb := config.NewRedisClient()
	statusRDB := rdb
	if rdb == nil {
		log.Warn("redis unavailable at start-up: rate limiting and response cache disabled")
		statusRDB = config.NewLazyRedisClient()
		if statusRDB == nil {
			log.Fatal("invalid redis configuration")
		}
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	otps := repository.NewOtpRepo(db)
	tickets := repository.NewResetTicketRepo(db)
	statuses := repository.NewTTSStatusRepo(statusRDB, cfg.TTSStatusTTL)

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	mailer := service.NewMailer(service.SMTPConfig{
		Host: cfg.SMTPHost, Port: cfg.SMTPPort, User: cfg.SMTPUser, Pass: cfg.SMTPPass, From: cfg.MailFrom,
	}, log)
	publisher := service.NewRabbitPublisher(cfg.RabbitURL, cfg.TTSTaskQueue, log)

	authSvc := service.NewAuthService(users, roles, otps, tickets, tokens, mailer, log, service.AuthConfig{
		BcryptCost:            cfg.BcryptCost,
		OTPTTL:                cfg.OTPTTL,
		DefaultRole:           cfg.DefaultRole,
		DefaultProfilePicture: cfg.DefaultProfilePicture,
		ResetTicketRequired:   cfg.ResetTicketRequired,
		ResetTicketTTL:        cfg.ResetTicketTTL,
	})
	authz := service.NewAuthorizer(users, service.NewRBAC(roles), log)
	w := response.Writer{Dev: cfg.IsDevelopment(), Log: log}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	guards := router.Guards{
		Tokens:    tokens,
		Authz:     authz,
		W:         w,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, w, log),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log),
	}
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, w), guards)
	router.RegisterUser(e, handler.NewUserHandler(
		service.NewProfileService(users),
		service.NewTTSService(statuses, publisher, log), w), guards)
	router.RegisterAdmin(e, handler.NewAdminHandler(service.NewAdminService(users, roles, log), w), guards)

	if cfg.TTSStatusQueue != "" {
		consumer := queue.NewStatusConsumer(cfg.RabbitURL, cfg.TTSStatusQueue, statuses, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("status consumer stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
}
