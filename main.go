package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bevera/internal/cart"
	"bevera/internal/config"
	"bevera/internal/database"
	"bevera/internal/handlers"
	"bevera/internal/logger"
	"bevera/internal/repositories"
	"bevera/internal/services"
	"bevera/pkg/invoice"
	"bevera/pkg/rabbitmq"
	"bevera/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	app, cleanup, err := NewApp(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize application", zap.Error(err))
	}
	defer cleanup()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zl.Info("starting server", zap.String("addr", cfg.Server.Port))
		if err := app.Listen(cfg.Server.Port); err != nil {
			zl.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	zl.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zl.Error("error during fiber shutdown", zap.Error(err))
	}
	zl.Info("server gracefully stopped")
}

// NewApp wires storage, messaging, services and routes. The returned cleanup
// releases every connection it opened.
func NewApp(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*fiber.App, func(), error) {
	zl = logger.OrNop(zl)
	if insecure := cfg.InsecureDefaults(); len(insecure) > 0 {
		zl.Warn("using development placeholder secrets, set them before deploying",
			zap.Strings("settings", insecure), zap.String("env", cfg.Env))
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*fiber.App, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	// --- Database ---
	db, err := database.Open(cfg.Database, zl)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := database.Migrate(db); err != nil {
		return fail(err)
	}
	if err := database.Seed(ctx, db, cfg.Seed, zl); err != nil {
		return fail(err)
	}
	store := repositories.NewStore(db)

	// --- Cart sessions ---
	var carts cart.Store
	if cfg.Session.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fail(fmt.Errorf("failed to connect to redis at %s: %w", cfg.Session.RedisAddr, err))
		}
		closers = append(closers, func() { _ = rdb.Close() })
		carts = cart.NewRedisStore(rdb, cfg.Session.TTL)
		zl.Info("cart sessions in redis", zap.String("addr", cfg.Session.RedisAddr))
	} else {
		carts = cart.NewMemoryStore(cfg.Session.TTL)
		zl.Info("cart sessions in memory")
	}

	// --- Order events ---
	var events services.EventPublisher
	mqStatus := "disabled"
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL}, zl)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = mqClient.Close() })
		if err := mqClient.ConsumeOrderEvents(rabbitmq.LogOrderEvent(zl)); err != nil {
			zl.Warn("order event consumer not started", zap.Error(err))
		}
		events = mqClient
		mqStatus = "connected"
	}

	// --- Files ---
	files, err := storage.NewFileStorage(cfg.Storage.Root)
	if err != nil {
		return fail(err)
	}

	// --- Services ---
	authService := services.NewAuthService(store.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, zl)
	svc := handlers.Services{
		Auth:       authService,
		Products:   services.NewProductService(store, files, cfg.Inventory.LowStockFallback, zl),
		Categories: services.NewCategoryService(store.Categories, store.Products, zl),
		Cart:       services.NewCartService(store.Products, carts, zl),
		Orders:     services.NewOrderService(store, carts, events, zl),
		Invoices:   services.NewInvoiceService(store.Orders, files, invoice.NewPDFRenderer("Bevera"), zl),
		Inventory:  services.NewInventoryService(store, cfg.Inventory.LowStockFallback, zl),
		Users:      services.NewUserService(store.Users, zl),
		Favorites:  services.NewFavoriteService(store.Favorites, store.Products),
		Dashboards: services.NewDashboardService(store, cfg.Inventory.LowStockFallback),
	}

	// --- Fiber ---
	app := fiber.New(fiber.Config{
		AppName:      "bevera",
		ErrorHandler: handlers.ErrorHandler(zl),
		BodyLimit:    10 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	// Invoices live under the same root and are served by the order routes only.
	imageRoot := filepath.Join(cfg.Storage.Root, services.ImageDir)
	if err := os.MkdirAll(imageRoot, 0o755); err != nil {
		return fail(err)
	}
	app.Static(services.ImagePrefix+services.ImageDir, imageRoot)

	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "connected"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			dbStatus = "unreachable"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
			"rabbitmq": mqStatus,
		})
	})

	handlers.RegisterRoutes(app.Group("/api/v1"), svc, cfg.Session.TTL, zl)

	return app, cleanup, nil
}
