package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"taskchat/internal/config"
	"taskchat/internal/database"
	"taskchat/internal/handlers"
	"taskchat/internal/jobs"
	"taskchat/internal/logging"
	"taskchat/internal/middleware"
	"taskchat/internal/services"
	"taskchat/internal/taskstore"
	"taskchat/internal/tools"
	"taskchat/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting TaskChat Server...")

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, DB: %s)", cfg.Port, cfg.DatabasePath)

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Redis is optional; without it rate limiting stays in-memory.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("⚠️  Redis unreachable, falling back to in-memory rate limiting: %v", err)
			redisClient = nil
		} else {
			log.Println("✅ Redis connected")
			defer redisClient.Close()
		}
		cancel()
	}

	// MongoDB is optional; without it conversation archival is disabled.
	var mongoDB *database.MongoDB
	if cfg.MongoURI != "" {
		log.Println("🔗 Connecting to MongoDB...")
		mongoDB, err = database.NewMongoDB(cfg.MongoURI)
		if err != nil {
			log.Printf("⚠️  Failed to connect to MongoDB: %v (archival disabled)", err)
			mongoDB = nil
		} else {
			defer mongoDB.Close(context.Background())
		}
	}

	// Tool layer: the only path to task storage.
	store := taskstore.NewSQLiteStore(db)
	registry := tools.NewRegistry(0)
	if err := tools.RegisterTaskTools(registry, store); err != nil {
		log.Fatalf("❌ Failed to register task tools: %v", err)
	}
	log.Printf("🔧 Registered %d task tools", registry.Count())

	// Pipeline services.
	conversations := services.NewConversationService(db)
	classifier := buildClassifier(cfg)
	resolver := services.NewTaskResolver(registry)
	agent := services.NewActionAgent(registry)
	formatter := services.NewResponseFormatter()
	chatbot := services.NewChatbotService(conversations, classifier, resolver, agent, formatter)

	var rateLimiter services.RateLimiter
	if redisClient != nil {
		rateLimiter = services.NewRedisRateLimiter(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow)
		log.Printf("🛡️  [RATE-LIMIT] Redis backend: %d requests per %v per user", cfg.RateLimitMax, cfg.RateLimitWindow)
	} else {
		rateLimiter = services.NewMemoryRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		log.Printf("🛡️  [RATE-LIMIT] In-memory backend: %d requests per %v per user", cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("🔐 Local JWT auth enabled")
	}

	// Background jobs.
	scheduler, err := jobs.NewScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	archival := jobs.NewConversationArchivalJob(db, mongoDB, cfg.ArchiveRetention)
	if err := scheduler.Register("conversation-archival", 6*time.Hour, archival); err != nil {
		log.Fatalf("❌ Failed to register archival job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP surface.
	app := fiber.New(fiber.Config{
		AppName:      "TaskChat v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    64 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("taskchat")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	healthHandler := handlers.NewHealthHandler(db)
	chatHandler := handlers.NewChatHandler(chatbot)
	conversationHandler := handlers.NewConversationHandler(conversations)

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api", middleware.LocalAuthMiddleware(jwtAuth))
	api.Post("/chat", middleware.ChatRateLimitMiddleware(rateLimiter), chatHandler.Handle)
	api.Get("/conversations", conversationHandler.List)
	api.Get("/conversations/:id/messages", conversationHandler.Messages)
	api.Delete("/conversations/:id", conversationHandler.Delete)

	// Hot-reload inference providers on file change.
	if ic, ok := classifier.(*services.IntentClassifier); ok {
		go watchProvidersFile(cfg.ProvidersFile, ic)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Printf("🛑 Received signal %v, shutting down...", sig)

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Server shutdown error: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}

	log.Println("👋 Server stopped")
}

// buildClassifier picks the inference-backed classifier when a
// provider is configured and falls back to the offline rules
// classifier otherwise.
func buildClassifier(cfg *config.Config) services.Classifier {
	providers, err := config.LoadProviders(cfg.ProvidersFile)
	if err != nil {
		log.Printf("⚠️  No providers file loaded (%v), using rules-based classifier", err)
		return services.NewRulesClassifier()
	}

	provider := providers.DefaultProvider()
	if provider == nil || provider.BaseURL == "" {
		log.Println("⚠️  No usable inference provider configured, using rules-based classifier")
		return services.NewRulesClassifier()
	}

	log.Printf("🧠 Intent classifier using provider '%s' (model: %s)", provider.Name, provider.Model)
	return services.NewIntentClassifier(provider)
}

// watchProvidersFile hot-reloads providers.json into the classifier on
// change, debounced against editors that fire multiple events per save.
func watchProvidersFile(filePath string, classifier *services.IntentClassifier) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		return
	}

	// Watch the directory; watching the file directly breaks on
	// editors that replace it.
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)
	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", filePath)

	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					providers, err := config.LoadProviders(filePath)
					if err != nil {
						log.Printf("❌ Failed to reload providers: %v", err)
						return
					}
					provider := providers.DefaultProvider()
					if provider == nil || provider.BaseURL == "" {
						log.Println("⚠️  Reloaded providers file has no usable provider, keeping current")
						return
					}
					classifier.SetProvider(provider)
					log.Printf("🔄 Reloaded inference provider '%s' (model: %s)", provider.Name, provider.Model)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
