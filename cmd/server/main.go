package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/broker"
	"restoran-pos/internal/catalog"
	"restoran-pos/internal/config"
	"restoran-pos/internal/database"
	"restoran-pos/internal/floor"
	"restoran-pos/internal/logger"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/models"
	"restoran-pos/internal/notify"
	"restoran-pos/internal/order"
	"restoran-pos/internal/payment"
	"restoran-pos/internal/sequence"
	"restoran-pos/internal/shift"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.NewLogger()

	if err := godotenv.Load(); err != nil {
		log.Info("MAIN", "no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("MAIN", err.Error())
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("DB", err.Error())
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("DB", err.Error())
	}
	if err := database.SeedSettings(db, cfg); err != nil {
		log.Fatal("DB", "could not seed business settings: "+err.Error())
	}
	log.Info("DB", "connected and migrated")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fallback := catalog.Settings{
		Name:           cfg.BusinessName,
		Currency:       cfg.Currency,
		TaxRatePercent: cfg.TaxRatePercent,
		ReceiptFooter:  cfg.ReceiptFooter,
	}
	menu := catalog.NewCache(catalog.NewDBLoader(db, fallback), cfg.CacheRefreshInterval, fallback, log)
	if err := menu.Start(ctx); err != nil {
		log.Warnf("CATALOG", "initial load failed, serving defaults: %v", err)
	}
	defer menu.Stop()

	hub := notify.NewHub(256, log)
	defer hub.Close()

	if sink := newSink(cfg, log); sink != nil {
		sub := broker.Attach(hub, sink, log)
		defer func() {
			hub.Unsubscribe(sub)
			if err := sink.Close(); err != nil {
				log.Warnf("BROKER", "close: %v", err)
			}
		}()
	}

	seq, closeSeq := newSequence(ctx, cfg, log)
	defer closeSeq()

	auditSvc := audit.NewService(db, log)
	floorSvc := floor.NewService(db, hub, log)
	shiftSvc := shift.NewService(db, hub, auditSvc, log)
	guard := shift.NewGuard(shiftSvc, cfg.ShiftPolicy, log)

	orderSvc := order.NewService(order.Deps{
		DB:       db,
		Catalog:  menu,
		Sequence: seq,
		Bus:      hub,
		Audit:    auditSvc,
		Shifts:   guard,
		Log:      log,
	})

	payDeps := payment.Deps{
		DB:       db,
		Catalog:  menu,
		Sequence: seq,
		Bus:      hub,
		Audit:    auditSvc,
		Shifts:   guard,
		Log:      log,
	}
	if cfg.StripeSecretKey != "" {
		payDeps.Verifier = payment.NewStripeVerifier(cfg.StripeSecretKey)
		log.Info("PAYMENT", "card references are verified against Stripe")
	}
	paymentSvc := payment.NewService(payDeps)

	authHandlers := auth.NewHandlers(db, cfg.JWTSecret, auth.NewLoginLimiter(cfg.LoginRatePerMinute), auditSvc, log)
	sessions := auth.NewSessionValidator(db, cfg.JWTSecret)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			if apperr.KindOf(err) != "" {
				return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			log.Errorf("HTTP", "unexpected error on %s %s: %v", c.Method(), c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{
			"status":      "ok",
			"subscribers": hub.SubscriberCount(),
			"menu_loaded": menu.Snapshot().LoadedAt,
		})
	})
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	// Public
	api.Post("/auth/register-admin", authHandlers.RegisterAdmin())
	api.Post("/auth/login", authHandlers.Login())
	// EventSource cannot send headers, so the stream checks ?token= itself.
	api.Get("/events", notify.StreamHandler(hub, sessions, log))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", authHandlers.Me())

	// Menu & settings
	protected.Get("/menu", catalog.ListMenuHandler(menu))
	protected.Get("/settings", catalog.GetSettingsHandler(menu))

	// Tables
	protected.Get("/tables", floor.ListTablesHandler(floorSvc))
	protected.Put("/tables/:id/status", auth.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleWaiter), floor.UpdateTableStatusHandler(floorSvc))

	// Orders
	staff := auth.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleCashier, models.RoleWaiter)
	kitchen := auth.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleCashier, models.RoleWaiter, models.RoleKitchen)
	protected.Post("/orders", staff, order.CreateOrderHandler(orderSvc))
	protected.Get("/orders", kitchen, order.ListOrdersHandler(orderSvc))
	protected.Get("/orders/:id", kitchen, order.GetOrderHandler(orderSvc))
	protected.Patch("/orders/:id/status", kitchen, order.UpdateOrderStatusHandler(orderSvc))

	// Payments & receipts
	cashier := auth.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleCashier)
	protected.Post("/orders/:id/pay", cashier, payment.PayOrderHandler(paymentSvc))
	protected.Get("/orders/:id/receipt", staff, payment.GetReceiptHandler(paymentSvc))

	// Shifts
	protected.Post("/shifts/start", shift.StartShiftHandler(shiftSvc))
	protected.Post("/shifts/end", shift.EndShiftHandler(shiftSvc))
	protected.Get("/shifts/current", shift.CurrentShiftHandler(shiftSvc))

	managers := auth.RequireRole(models.RoleAdmin, models.RoleManager)
	protected.Get("/shifts", managers, shift.ListShiftsHandler(shiftSvc))
	protected.Get("/shifts/:id/report", managers, shift.ShiftReportHandler(shiftSvc))
	protected.Get("/audit-logs", managers, audit.ListAuditLogsHandler(auditSvc))

	// Admin
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))
	adminRoutes.Post("/tables", floor.CreateTableHandler(floorSvc))

	go func() {
		<-ctx.Done()
		log.Info("MAIN", "shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("MAIN", "shutdown: %v", err)
		}
	}()

	log.Infof("MAIN", "listening on :%s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal("MAIN", err.Error())
	}
}

func newSink(cfg *config.Config, log *logger.Logger) broker.Sink {
	switch cfg.EventBroker {
	case "kafka":
		sink, err := broker.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Fatal("BROKER", err.Error())
		}
		return sink
	case "rabbitmq":
		sink, err := broker.NewRabbitSink(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
		if err != nil {
			log.Fatal("BROKER", err.Error())
		}
		return sink
	default:
		return nil
	}
}

func newSequence(ctx context.Context, cfg *config.Config, log *logger.Logger) (sequence.Generator, func()) {
	if cfg.SequenceBackend != "redis" {
		return sequence.NewDBGenerator(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatal("SEQUENCE", "could not reach redis: "+err.Error())
	}
	log.Infof("SEQUENCE", "order and receipt numbers from redis at %s", cfg.RedisAddr)

	return sequence.NewRedisGenerator(rdb), func() {
		if err := rdb.Close(); err != nil {
			log.Warnf("SEQUENCE", "close redis: %v", err)
		}
	}
}
