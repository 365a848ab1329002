// main.go
//
// A link-in-bio profile service for linkz.bio
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of linkz-bio.
// linkz-bio is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// linkz-bio is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with linkz-bio.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/linkz-bio/internal/config"
	"github.com/localnerve/linkz-bio/internal/database"
	"github.com/localnerve/linkz-bio/internal/handlers"
	"github.com/localnerve/linkz-bio/internal/logger"
	"github.com/localnerve/linkz-bio/internal/middleware"
	"github.com/localnerve/linkz-bio/internal/services"
	"go.uber.org/zap"

	_ "github.com/localnerve/linkz-bio/docs/api" // Swagger docs
)

// @title linkz.bio API
// @version 1.0.0
// @description Link-in-bio profile service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/linkz-bio
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog, _ := zap.NewProduction()
		bootLog.Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Optional profile cache
	rdb, err := services.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	var cache services.ProfileCache = services.NoopCache{}
	if rdb != nil {
		defer rdb.Close()
		cache = services.NewRedisProfileCache(rdb, cfg.CacheTTL, log.Named("cache"))
		log.Info("profile cache enabled", zap.Duration("ttl", cfg.CacheTTL))
	}

	authn, err := services.NewAuthenticator(cfg, log.Named("auth"))
	if err != nil {
		log.Fatal("failed to create authenticator", zap.Error(err))
	}

	var inspector services.MediaInspector = services.ExtensionInspector{}
	if cfg.MediaProbe {
		inspector = services.NewHTTPMediaInspector(2*time.Second, log.Named("media"))
	}
	gate := services.NewEntitlementGate(inspector)

	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY is not configured; checkout is disabled")
	}
	if cfg.StripeWebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET is not configured; webhooks will fail signature validation")
	}
	provider := services.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, log.Named("ratelimit"))
	limiter.StartCleanup(ctx, 10*time.Minute)

	routes := &handlers.Routes{
		Authenticator: authn,
		RateLimiter:   limiter,
		Profiles: &handlers.ProfileHandler{
			Profiles: services.NewProfileService(db, gate, cache, log.Named("profiles")),
		},
		Usernames: &handlers.UsernameHandler{
			Usernames: services.NewUsernameService(db, cache, log.Named("usernames")),
		},
		Billing: &handlers.BillingHandler{
			Billing:       services.NewBillingService(db, provider, cfg.StripePriceID, cache, log.Named("billing")),
			PublicBaseURL: cfg.PublicBaseURL,
		},
		Health: &handlers.HealthHandler{Config: cfg, DB: db, Redis: rdb, Log: log.Named("health")},
	}

	// Create Fiber app
	app := fiber.New(handlers.AppConfig(cfg, log))
	if len(cfg.TrustedProxies) == 0 {
		log.Info("TRUSTED_PROXIES is not configured; clients are keyed by peer address")
	}

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("linkz_bio")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	routes.Register(app)

	// 404 handler
	app.Use(handlers.NotFound)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("gracefully shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	// Start server
	log.Info("starting server", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}

	log.Info("server stopped")
}
