package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mypharma/pharma-backend/internal/auth"
	"github.com/mypharma/pharma-backend/internal/config"
	"github.com/mypharma/pharma-backend/internal/database"
	"github.com/mypharma/pharma-backend/internal/gateway"
	"github.com/mypharma/pharma-backend/internal/handler"
	"github.com/mypharma/pharma-backend/internal/queue"
	"github.com/mypharma/pharma-backend/internal/repository"
	"github.com/mypharma/pharma-backend/internal/router"
	"github.com/mypharma/pharma-backend/internal/service"
	"github.com/mypharma/pharma-backend/internal/store"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	if cfg.Env == "dev" {
		if l, err := zap.NewDevelopment(); err == nil {
			log = l
		}
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("mysql: connect failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatal("mysql: schema bootstrap failed", zap.Error(err))
	}
	cancel()

	// Ephemeral state prefers Redis; the in-process store keeps a single
	// node working when Redis is down, at the cost of shared visibility.
	rdb := config.NewRedisClient(cfg)
	var cache store.Ephemeral
	if rdb != nil {
		cache = store.NewRedis(rdb)
	} else {
		log.Warn("redis unavailable, using in-process store; throttling disabled")
		cache = store.NewMemory()
	}

	users := repository.NewUserRepo(db)
	audit := repository.NewAuditRepo(db)
	products := repository.NewProductRepo(db)

	pub := service.NewPublisher(cfg.RabbitURL, log)

	otpMgr := auth.NewOTPManager(cache, users, pub, auth.OTPConfig{
		Length:            cfg.OTPLength,
		TTL:               cfg.OTPTTL,
		MaxResendPerHour:  cfg.OTPMaxResend,
		RegTokenTTL:       cfg.RegTokenTTL,
		EmailTokenTTL:     cfg.EmailTokenTTL,
		PasswordMinLength: cfg.PasswordMinLength,
		BcryptCost:        cfg.BcryptCost,
		FrontendURL:       cfg.FrontendURL,
	}, log)

	credMgr := auth.NewCredentialManager(users, cache, pub, audit, auth.CredentialConfig{
		LockoutThreshold:  cfg.LockoutThreshold,
		LockoutDuration:   cfg.LockoutDuration,
		ResetTokenTTL:     cfg.ResetTokenTTL,
		PasswordMinLength: cfg.PasswordMinLength,
		BcryptCost:        cfg.BcryptCost,
		FrontendURL:       cfg.FrontendURL,
	}, log)

	tokenMgr := auth.NewTokenManager(cache, users, auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Rotate:     cfg.Rotate,
	})

	// Delivery worker: consumes the broker queue and pushes to providers.
	dispatcher := gateway.NewDispatcher(cfg.SMSGatewayURL, cfg.SMSAPIKey, cfg.SMSSenderID,
		cfg.EmailGatewayURL, cfg.EmailAPIKey, log)
	go func() {
		if err := queue.StartDeliveryConsumer(cfg.RabbitURL, dispatcher, log); err != nil {
			log.Error("delivery consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Auth:     handler.NewAuthHandler(otpMgr, credMgr, tokenMgr, users, audit, log),
		Products: handler.NewProductHandler(products, log),
		Admin:    handler.NewAdminHandler(products, audit, log),
		Tokens:   tokenMgr,
		Redis:    rdb,
	})

	log.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
