package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/example/rampwallet/internal/auth"
	"github.com/example/rampwallet/internal/config"
	"github.com/example/rampwallet/internal/database"
	"github.com/example/rampwallet/internal/handlers"
	"github.com/example/rampwallet/internal/logger"
	"github.com/example/rampwallet/internal/ratelimit"
	"github.com/example/rampwallet/internal/routes"
	"github.com/example/rampwallet/internal/services"
	"github.com/example/rampwallet/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("rampwallet", "info", true)
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Init("rampwallet", cfg.LogLevel, cfg.IsDevelopment())

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	st := store.NewGormStore(db)

	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenExpires, cfg.TokenIssuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build token service")
	}
	sessions := auth.NewSessionTracker(st, cfg.SessionTTL)

	opts := []auth.Option{
		auth.WithCodeTTLs(cfg.ResetCodeTTL, cfg.VerificationCodeTTL),
		auth.WithCodeSender(services.NewEmailService(services.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, cfg.IsDevelopment())),
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable at startup, limiter fails open until it recovers")
		}
		cancel()

		opts = append(opts, auth.WithLimiter(ratelimit.New(rdb, ratelimit.Config{
			Prefix:      "rampwallet:attempts",
			MaxAttempts: cfg.LoginMaxAttempts,
			Cooldown:    cfg.LoginCooldown,
		})))
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, attempt limiting disabled")
	}

	accounts := auth.NewService(st, auth.NewBcryptHasher(cfg.BcryptCost), tokens, sessions, opts...)

	app := fiber.New(fiber.Config{
		AppName:      "Rampwallet Backend",
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Device-ID",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	routes.Register(app, routes.Dependencies{
		Store:         st,
		Accounts:      accounts,
		Resolver:      auth.NewResolver(tokens, st, sessions),
		Status:        auth.NewStatusUpdater(st, cfg.StrictKYCTransition),
		Provider:      services.NewBridgeClient(cfg.Bridge.BaseURL, cfg.Bridge.APIKey, cfg.Bridge.Timeout),
		WebhookSecret: cfg.Bridge.WebhookSecret,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Msg("starting server")
		return app.Listen(":" + cfg.AppPort)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down server")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
}
