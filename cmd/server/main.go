package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/lrstanley/go-ytdlp"
	"github.com/redis/go-redis/v9"

	"github.com/mediafetch/api/internal/cleanup"
	"github.com/mediafetch/api/internal/config"
	"github.com/mediafetch/api/internal/fetch"
	"github.com/mediafetch/api/internal/handler"
	"github.com/mediafetch/api/internal/middleware"
	"github.com/mediafetch/api/internal/model"
	"github.com/mediafetch/api/internal/registry"
	"github.com/mediafetch/api/internal/service"
	"github.com/mediafetch/api/internal/store"
	"github.com/mediafetch/api/internal/store/sqlite"
	"github.com/mediafetch/api/internal/worker"
	ws "github.com/mediafetch/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize metadata database
	db, err := sqlite.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewMediaRepository(db)

	// Initialize artifact store
	artifactStore, err := store.NewStore(cfg.Downloads.Dir)
	if err != nil {
		log.Fatalf("Failed to create artifact store: %v", err)
	}

	retention := time.Duration(cfg.Downloads.RetentionHours) * time.Hour
	taskRegistry := registry.NewRedisRegistry(redisClient, retention)

	// Make sure the yt-dlp binary is available
	ytdlp.MustInstall(ctx, nil)
	fetcher := fetch.NewYtdlpFetcher(cfg.Downloads.CookieFile)

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize services
	mediaService := service.NewMediaService(taskRegistry, asynqClient, cfg.Server.BaseURL)

	// Initialize handlers
	mediaHandler := handler.NewMediaHandler(mediaService, validate, cfg.Downloads.SyncTimeout)
	filesHandler := handler.NewFilesHandler(artifactStore, repo)
	healthHandler := handler.NewHealthHandler(redisClient, db)

	// Initialize middleware
	keyValidator := middleware.NewRedisKeyValidator(redisClient, cfg.Auth.APIKeys)
	authMiddleware := middleware.NewAuthMiddleware(keyValidator, cfg.Auth.JWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key",
	}))

	// Health check
	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	// Produced download links are public; everything else needs a credential.
	api.Get("/download/:filename", filesHandler.Download)

	media := api.Group("/media", authMiddleware.Authenticate(), rateLimiter.MediaLimit(cfg.RateLimit.PerMinute))
	media.Post("/", mediaHandler.Submit)
	media.Post("/batch", mediaHandler.SubmitBatch)

	api.Get("/tasks/:id", authMiddleware.Authenticate(), mediaHandler.Status)
	api.Get("/files", authMiddleware.Authenticate(), filesHandler.List)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tasks/:id", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("id"))
	}))

	// Start Asynq worker server
	mediaWorker := worker.NewMediaWorker(taskRegistry, artifactStore, repo, fetcher, hub, cfg.Server.BaseURL, cfg.Downloads.PlaylistMax)
	go startWorkerServer(cfg, mediaWorker)

	// Start retention sweeper
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	sweeper := cleanup.NewSweeper(artifactStore, repo, retention)
	go sweeper.Run(sweepCtx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		stopSweeper()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, mediaWorker *worker.MediaWorker) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				service.QueueMedia: 10,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(model.TaskTypeMedia, mediaWorker.ProcessTask)
	mux.HandleFunc(model.TaskTypeBatch, mediaWorker.ProcessBatchTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
