package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	allocationapp "github.com/dirac/fulfillment/internal/application/allocation"
	fulfillmentapp "github.com/dirac/fulfillment/internal/application/fulfillment"
	orderapp "github.com/dirac/fulfillment/internal/application/order"
	purchasingapp "github.com/dirac/fulfillment/internal/application/purchasing"
	shippingapp "github.com/dirac/fulfillment/internal/application/shipping"
	warehouseapp "github.com/dirac/fulfillment/internal/application/warehouse"
	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/infrastructure/config"
	"github.com/dirac/fulfillment/internal/infrastructure/event"
	"github.com/dirac/fulfillment/internal/infrastructure/logger"
	"github.com/dirac/fulfillment/internal/infrastructure/persistence"
	"github.com/dirac/fulfillment/internal/interfaces/http/handler"
	"github.com/dirac/fulfillment/internal/interfaces/http/middleware"
	"github.com/dirac/fulfillment/internal/interfaces/http/router"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fulfillment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("gate_mode", cfg.Allocation.GateMode))

	db, err := persistence.NewDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	gate, err := allocation.NewConfirmationGate(cfg.Allocation.Mode())
	if err != nil {
		log.Fatal("Invalid confirmation gate mode", zap.Error(err))
	}

	// Transaction scopes bind each application service to the database
	allocationScope := persistence.NewGormAllocationScope(db.DB)
	orderScope := persistence.NewGormOrderScope(db.DB)
	purchasingScope := persistence.NewGormPurchasingScope(db.DB)
	fulfillmentScope := persistence.NewGormFulfillmentScope(db.DB)

	// Application services
	allocationService := allocationapp.NewAllocationService(allocationScope, log)
	orderService := orderapp.NewOrderService(orderScope, allocationService, gate, log)
	purchaseOrderService := purchasingapp.NewPurchaseOrderService(purchasingScope, allocationService, orderService, log)
	receiptService := purchasingapp.NewReceiptService(purchasingScope, orderService, log)
	coordinator := fulfillmentapp.NewAutoTransitionCoordinator(log)
	fulfillmentService := fulfillmentapp.NewFulfillmentService(fulfillmentScope, coordinator, log)
	warehouseService := warehouseapp.NewWarehouseService(persistence.NewGormWarehouseRepository(db.DB), log)
	shipmentService := shippingapp.NewShipmentService(persistence.NewGormShipmentRepository(db.DB), log)

	// Event bus and cross-context handlers
	eventBus := event.NewInMemoryEventBus(log)

	depositHandler := fulfillmentapp.NewDepositReevaluationHandler(fulfillmentService, log)
	eventBus.Subscribe(depositHandler)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Event.ShutdownTimeout)
		defer cancel()
		if err := eventBus.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	allocationService.SetEventPublisher(eventBus)
	orderService.SetEventPublisher(eventBus)
	purchaseOrderService.SetEventPublisher(eventBus)
	receiptService.SetEventPublisher(eventBus)
	fulfillmentService.SetEventPublisher(eventBus)

	// HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinRecovery(log))
	engine.Use(logger.GinLogger(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewWarehouseHandler(warehouseService))
	r.Register(handler.NewOrderHandler(orderService))
	r.Register(handler.NewAllocationHandler(allocationService))
	r.Register(handler.NewPurchaseOrderHandler(purchaseOrderService))
	r.Register(handler.NewReceiptHandler(receiptService))
	r.Register(handler.NewFulfillmentHandler(fulfillmentService))
	r.Register(handler.NewShipmentHandler(shipmentService))
	r.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness including database connectivity
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "error",
				"time":     time.Now().Format(time.RFC3339),
			})
			return
		}
		body := gin.H{
			"status":   "healthy",
			"database": "ok",
			"time":     time.Now().Format(time.RFC3339),
		}
		if stats, err := db.Stats(); err == nil {
			body["connections"] = gin.H{
				"open":    stats.OpenConnections,
				"in_use":  stats.InUse,
				"idle":    stats.Idle,
				"waiting": stats.WaitCount,
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
