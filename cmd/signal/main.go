package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livecart/internal/core/domain"
	"livecart/internal/core/services"
	httphandlers "livecart/internal/handlers/http"
	"livecart/internal/infrastructure/distributed"
	"livecart/internal/infrastructure/middleware"
	"livecart/internal/infrastructure/monitoring"
	repositories "livecart/internal/infrastructure/repositories"
	signalrelay "livecart/internal/infrastructure/signal"
	"livecart/pkg/config"
	"livecart/pkg/logger"
	"livecart/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/livecart/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing if enabled
	if cfg.Tracing.Enabled {
		tp, err := tracing.Init(tracing.Config{
			Enabled:     true,
			ServiceName: "livecart-signal",
			Environment: cfg.Tracing.Environment,
			JaegerURL:   cfg.Tracing.JaegerURL,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			log.Warnw("failed to initialize tracing", "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				tp.Shutdown(ctx)
			}()
			log.Info("tracing enabled")
		}
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	// Initialize repositories
	roomRepo := repoFactory.CreateRoomRepository()
	catalogRepo := repoFactory.CreateCatalogRepository(defaultCatalog())
	orderRepo := repoFactory.CreateOrderRepository()
	userRepo := repoFactory.CreateUserRepository()

	// Initialize services
	roomService := services.NewRoomService(roomRepo)
	catalogService := services.NewCatalogService(catalogRepo, cfg.Catalog.CacheTTL)
	orderService := services.NewOrderService(orderRepo, catalogRepo)
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	// Initialize monitoring
	collector := monitoring.NewPrometheusCollector()

	// Initialize signaling relay
	relay := signalrelay.NewRelayServer(roomService, log)
	relay.SetMetrics(collector)
	relay.SetPingInterval(cfg.Signal.PingInterval)
	relay.SetPongTimeout(cfg.Signal.PongTimeout)
	if cfg.RateLimiting.Enabled {
		relay.SetMessageRate(
			rate.Limit(cfg.RateLimiting.WebSocket.MessagesPerSecond),
			cfg.RateLimiting.WebSocket.Burst,
		)
	}

	// With Redis, relay instances coordinate room lifecycle over pub/sub so a
	// viewer connected to one instance still loses its channel when the
	// seller's instance ends the room.
	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()
	if redisClient := repoFactory.RedisClient(); redisClient != nil {
		eventBus := distributed.NewRoomEventBus(redisClient, uuid.NewString(), log)
		defer eventBus.Close()

		relay.SetRoomEndedHook(func(roomID domain.RoomID) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := eventBus.PublishRoomEnded(ctx, roomID); err != nil {
				log.Warnw("failed to publish room ended", "room_id", roomID, "error", err)
			}
		})

		go func() {
			err := eventBus.Subscribe(busCtx, func(event *distributed.Event) error {
				if event.Type == distributed.EventRoomEnded {
					relay.CloseRoom(event.RoomID)
					collector.RecordRoomEnded(event.RoomID)
				}
				return nil
			})
			if err != nil && busCtx.Err() == nil {
				log.Warnw("room event subscription ended", "error", err)
			}
		}()
	}

	// Initialize HTTP handlers
	authHandler := httphandlers.NewAuthHandler(authService, userRepo, cfg.Auth.AccessTokenTTL)
	roomHandler := httphandlers.NewRoomHandler(roomService, authService, collector)
	catalogHandler := httphandlers.NewCatalogHandler(catalogService)
	orderHandler := httphandlers.NewOrderHandler(orderService, authService, collector)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestLoggingMiddleware(logger.NewContextLogger(zapLogger)))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	authHandler.SetupRoutes(router)
	roomHandler.SetupRoutes(router)
	catalogHandler.SetupRoutes(router)
	orderHandler.SetupRoutes(router)

	// Signaling channel endpoint
	router.GET("/ws", gin.WrapF(relay.HandleWebSocket))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
			"rooms":     len(relay.RoomOccupancy()),
		})
	})

	// Readiness endpoint
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("repositories", repoFactory.HealthCheck, 2*time.Second)

	router.GET("/ready", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := 200
		if status.Status != "healthy" {
			code = 503
		}
		c.JSON(code, status)
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts. Write timeout stays disabled because
	// websocket sessions outlive any sane response deadline.
	srv := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting LiveCart signaling server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down LiveCart signaling server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}

	log.Info("Server stopped")
}

// defaultCatalog seeds the in-memory catalog for demo deployments.
func defaultCatalog() []domain.Product {
	return []domain.Product{
		{ID: "sku-espresso-cup", Name: "Espresso Cup Set", Description: "Set of two ceramic cups", PriceCents: 2400, ImageURL: "/img/espresso-cups.jpg"},
		{ID: "sku-linen-apron", Name: "Linen Apron", Description: "Stonewashed linen, one size", PriceCents: 4900, ImageURL: "/img/linen-apron.jpg"},
		{ID: "sku-olive-board", Name: "Olive Wood Board", Description: "Hand-cut serving board", PriceCents: 3600, ImageURL: "/img/olive-board.jpg"},
		{ID: "sku-honey-jar", Name: "Wildflower Honey", Description: "500g raw honey", PriceCents: 1200, ImageURL: "/img/honey.jpg"},
	}
}
