package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/shopspring/decimal"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/authz"
	"restoran-pos/internal/config"
	"restoran-pos/internal/database"
	"restoran-pos/internal/events"
	"restoran-pos/internal/logging"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/orders"
	"restoran-pos/internal/realtime"
	"restoran-pos/internal/settings"
	"restoran-pos/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	for _, w := range cfg.Warnings {
		logging.Warn().Msg(w)
	}

	decimal.MarshalJSONWithoutQuotes = true

	if err := database.Init(cfg); err != nil {
		logging.Fatal().Err(err).Msg("database init")
	}

	authorizer, err := authz.New(cfg.CasbinPolicyPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("authorization policy")
	}

	bus, err := events.NewBus(events.BusConfig{
		NATSURL:       cfg.NATSURL,
		SubjectPrefix: cfg.NATSSubjectPrefix,
		RestaurantID:  cfg.RestaurantID,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("event bus")
	}
	defer bus.Close()

	settingsSvc := settings.NewService(database.DB, settings.Defaults{
		TaxRate:           cfg.DefaultTaxRate,
		ServiceChargeRate: cfg.DefaultServiceChargeRate,
	})
	orderSvc := orders.NewService(orders.NewGormStore(database.DB), bus,
		orders.WithRates(settingsSvc.Rates),
		orders.WithAudit(audit.Record),
	)

	app := fiber.New(fiber.Config{
		AppName:               "restoran-pos",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             8 * 1024 * 1024,
		ErrorHandler:          apperr.Handler(cfg.IsProduction()),
	})
	app.Use(requestid.New(requestid.Config{ContextKey: logging.RequestIDKey}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(logging.Middleware())
	app.Use(metrics.Middleware())

	registerRoutes(app, routeDeps{
		cfg:      cfg,
		authz:    authorizer,
		users:    auth.DBUserLoader(database.DB),
		pub:      bus,
		orders:   orderSvc,
		settings: settingsSvc,
	})

	hub := realtime.NewHub()
	rt := realtime.NewServer(realtime.ServerConfig{
		Addr:           ":" + cfg.RealtimePort,
		JWTSecret:      cfg.JWTSecret,
		RestaurantID:   cfg.RestaurantID,
		AllowedOrigins: cfg.CORSOriginList(),
		LoadUser:       auth.DBUserLoader(database.DB),
	}, hub)

	tree := supervisor.NewTree(logging.Slog(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(hub)
	tree.AddMessagingService(realtime.NewForwarder(bus, hub))
	tree.AddMessagingService(rt)
	tree.AddAPIService(supervisor.NewFiberService(app, ":"+cfg.HTTPPort, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("http_port", cfg.HTTPPort).
		Str("realtime_port", cfg.RealtimePort).
		Str("restaurant_id", cfg.RestaurantID).
		Bool("nats", cfg.NATSURL != "").
		Msg("server starting")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor stopped")
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, s := range report {
			logging.Warn().Str("service", s.Name).Msg("service did not stop in time")
		}
	}
	logging.Info().Msg("server stopped")
}
