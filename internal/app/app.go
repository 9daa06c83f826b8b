// Package app wires configuration, stores and services into a Fiber app.
package app

import (
	"context"
	"fmt"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/handlers"
	"marketplace/internal/middleware"
	"marketplace/internal/repositories"
	"marketplace/internal/services"
	"marketplace/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// Services groups the business services behind the HTTP surface.
type Services struct {
	Auth     *services.AuthService
	Users    *services.UserService
	Products *services.ProductService
	Orders   *services.OrderService
	Stats    *services.StatsService
	Uploads  *services.UploadService
}

// NewServices builds every service on top of store. publisher may be nil.
func NewServices(cfg config.Config, store *repositories.Store, images services.ImageStore, publisher services.EventPublisher, log *zap.Logger) *Services {
	return &Services{
		Auth: services.NewAuthService(store.Users, services.AuthConfig{
			JWTSecret:  cfg.JWTSecret,
			TokenTTL:   cfg.JWTTTL,
			BcryptCost: cfg.BcryptCost,
		}, log.Named("auth")),
		Users:    services.NewUserService(store.Users, cfg.BcryptCost, log.Named("users")),
		Products: services.NewProductService(store.Products, store.Users, log.Named("products")),
		Orders:   services.NewOrderService(store.Orders, store.Tx, publisher, log.Named("orders")),
		Stats:    services.NewStatsService(store.Users, store.Products, store.Orders),
		Uploads:  services.NewUploadService(images, cfg.UploadMaxBytes, log.Named("uploads")),
	}
}

// New builds the Fiber app with every route mounted under /api/v1.
func New(cfg config.Config, svc *Services, healthCheck func(ctx context.Context) error, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "marketplace",
		BodyLimit:    int(cfg.UploadMaxBytes) + 1<<20,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	if cfg.UploadDir != "" && cfg.UploadBaseURL != "" {
		app.Static(cfg.UploadBaseURL, cfg.UploadDir)
	}

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	authRequired := middleware.AuthRequired(svc.Auth, log)

	handlers.NewAuthHandler(svc.Auth, log).RegisterRoutes(apiV1, authRequired)
	handlers.NewProductHandler(svc.Products, log).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(svc.Orders, log).RegisterRoutes(apiV1, authRequired)
	handlers.NewSellerHandler(svc.Products, svc.Orders, svc.Stats, svc.Uploads, log).RegisterRoutes(apiV1, authRequired)
	handlers.NewAdminHandler(svc.Users, svc.Products, svc.Orders, svc.Stats, log).RegisterRoutes(apiV1, authRequired)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"store":  cfg.StoreDriver,
		}
		if healthCheck != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := healthCheck(ctx); err != nil {
				status["status"] = "degraded"
				status["error"] = fmt.Sprintf("store unreachable: %v", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
		}
		return c.JSON(status)
	})

	return app
}

// NewLocalImageStore is a convenience for callers that only have a config.
func NewLocalImageStore(cfg config.Config) (*storage.LocalImageStore, error) {
	return storage.NewLocalImageStore(cfg.UploadDir, cfg.UploadBaseURL)
}
