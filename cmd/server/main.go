package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/medianote/api/internal/client"
	"github.com/medianote/api/internal/config"
	"github.com/medianote/api/internal/downloader"
	"github.com/medianote/api/internal/export"
	"github.com/medianote/api/internal/handler"
	"github.com/medianote/api/internal/middleware"
	"github.com/medianote/api/internal/model"
	"github.com/medianote/api/internal/resolver"
	"github.com/medianote/api/internal/service"
	"github.com/medianote/api/internal/store"
	"github.com/medianote/api/internal/transcriber"
	"github.com/medianote/api/internal/worker"
	ws "github.com/medianote/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Open the SQLite store backing the registries
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

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

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	renderClient := client.NewRenderClient(&cfg.Render)

	// Downloader registry: one entry per supported platform
	downloaders := downloader.NewRegistry()
	downloaders.Register(downloader.NewBilibiliDownloader(cfg.Tools.YtdlpBin, st))
	downloaders.Register(downloader.NewYoutubeDownloader(cfg.Tools.YtdlpBin, st))
	downloaders.Register(downloader.NewDouyinDownloader(cfg.Tools.YtdlpBin, st))
	downloaders.Register(downloader.NewPodcastDownloader(cfg.Tools.PodcastAPIURL, st))

	encoder := transcriber.NewFFmpegEncoder(cfg.Tools.FfmpegBin)
	if !encoder.Available() {
		log.Println("Warning: ffmpeg not found, oversized audio cannot be compressed")
	}

	// Initialize services
	providerService := service.NewProviderService(st)
	if err := providerService.SeedDefaults(ctx); err != nil {
		log.Printf("Warning: provider seeding failed: %v", err)
	}
	noteService := service.NewNoteService(st, redisClient, asynqClient, resolver.New(), model.DownloadQuality(cfg.Note.Quality))
	exporter := export.NewExporter(cfg.Data.OutputDir, cfg.Data.StaticDir, renderClient)
	exportService := service.NewExportService(exporter)

	// Initialize handlers
	providerHandler := handler.NewProviderHandler(providerService, validate)
	noteHandler := handler.NewNoteHandler(noteService, validate)
	exportHandler := handler.NewExportHandler(exportService, validate)
	configHandler := handler.NewConfigHandler(st, renderClient, validate, cfg.Tools.YtdlpBin, cfg.Tools.FfmpegBin)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    20 * 1024 * 1024, // 20MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"render": renderClient.HealthCheck(c.Context()) == nil,
				"ffmpeg": encoder.Available(),
				"auth":   cfg.JWT.Secret != "",
			},
		})
	})

	// Exported documents and note images
	app.Static("/static", cfg.Data.StaticDir)
	app.Static("/output", cfg.Data.OutputDir)

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Note routes
	notes := api.Group("/notes")
	notes.Post("/generate", rateLimiter.NoteLimit(cfg.RateLimit.NotePerHour), noteHandler.Generate)
	notes.Get("/:taskId/status", noteHandler.Status)
	notes.Get("/:taskId", noteHandler.Result)

	// Provider registry routes
	providers := api.Group("/providers")
	providers.Get("/", providerHandler.List)
	providers.Post("/", providerHandler.Create)
	providers.Get("/:id", providerHandler.Get)
	providers.Put("/:id", providerHandler.Update)
	providers.Delete("/:id", providerHandler.Delete)
	providers.Post("/:id/models", providerHandler.CreateModel)
	providers.Get("/:id/models", providerHandler.ListModels)
	api.Delete("/models/:id", providerHandler.DeleteModel)

	// Export routes
	api.Post("/export", rateLimiter.ExportLimit(cfg.RateLimit.ExportPerHour), exportHandler.Export)

	// Config routes
	configGroup := api.Group("/config")
	configGroup.Get("/cookies/:platform", configHandler.GetCookie)
	configGroup.Put("/cookies", configHandler.SetCookie)
	configGroup.Get("/health", configHandler.SystemHealth)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tasks/:taskId", websocket.New(func(c *websocket.Conn) {
		taskID := c.Params("taskId")
		hub.HandleConnection(c, taskID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, redisClient, providerService, downloaders, encoder, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
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

func startWorkerServer(
	cfg *config.Config,
	redisClient *redis.Client,
	providerService *service.ProviderService,
	downloaders *downloader.Registry,
	encoder transcriber.AudioEncoder,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"note": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	noteWorker := worker.NewNoteWorker(redisClient, providerService, downloaders, encoder, hub, cfg.Data.MediaDir)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeNote, noteWorker.ProcessTask)

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
