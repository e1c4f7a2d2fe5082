// internal/router/router.go
package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/javajoker/fifo-inventory/internal/config"
	"github.com/javajoker/fifo-inventory/internal/consumer"
	"github.com/javajoker/fifo-inventory/internal/handlers"
	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/middleware"
	"github.com/javajoker/fifo-inventory/internal/services"
	"github.com/javajoker/fifo-inventory/internal/simulator"
)

// Dependencies are the long-lived components the API is built on.
// Consumer and RateLimiter are optional.
type Dependencies struct {
	Engine      *inventory.Engine
	Storage     *services.StorageService
	Consumer    *consumer.Consumer
	RateLimiter *middleware.RateLimiter
	Logger      logrus.FieldLogger
}

func Initialize(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	}

	// Initialize services
	authService, err := services.NewAuthService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	reportService := services.NewReportService(deps.Engine, deps.Storage, cfg.AWS.ReportPrefix)
	generator := simulator.NewGenerator(cfg.Simulator.ProductIDs, time.Now().UnixNano())
	simulationService := services.NewSimulationService(generator, deps.Engine)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	inventoryHandler := handlers.NewInventoryHandler(deps.Engine)
	productHandler := handlers.NewProductHandler(deps.Engine)
	simulationHandler := handlers.NewSimulationHandler(simulationService)
	reportHandler := handlers.NewReportHandler(reportService)
	healthHandler := handlers.NewHealthHandler(deps.Engine, deps.Consumer, cfg.Environment)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(deps.RateLimiter.Middleware())

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
		}

		protected := v1.Group("")
		if cfg.Auth.Enabled {
			protected.Use(middleware.AuthRequired())
		}
		{
			protected.POST("/events", inventoryHandler.ApplyEvent)
			protected.GET("/inventory", inventoryHandler.GetInventory)
			protected.GET("/transactions", inventoryHandler.GetTransactions)
			protected.GET("/batches", inventoryHandler.GetBatches)

			protected.GET("/products", productHandler.GetProducts)
			protected.GET("/products/:id", productHandler.GetProduct)

			protected.POST("/simulate", simulationHandler.Simulate)

			reports := protected.Group("/reports")
			{
				reports.GET("/valuation", reportHandler.GetValuation)
				reports.POST("/valuation/export", reportHandler.ExportValuation)
			}
		}
	}

	return r, nil
}
