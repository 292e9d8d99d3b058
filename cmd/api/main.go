package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"vantagebuild/proposal-engine/internal/config"
	"vantagebuild/proposal-engine/internal/handlers"
	"vantagebuild/proposal-engine/internal/repositories"
	"vantagebuild/proposal-engine/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	projectRepo := repositories.NewProjectRepository(db)
	proposalRepo := repositories.NewProposalRepository(db)
	requirementRepo := repositories.NewRequirementRepository(db)
	policyRepo := repositories.NewPolicyRepository(db)
	evalRepo := repositories.NewEvaluationRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize attachment storage
	store := services.NewAttachmentStore(cfg.Storage.UploadPath)
	if err := store.EnsureUploadDir(); err != nil {
		log.Fatalf("❌ Failed to create upload directory: %v", err)
	}

	// Initialize the narrative provider
	ctx := context.Background()
	provider, embedder, err := buildProvider(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize narrative provider: %v", err)
	}
	log.Printf("✅ Narrative provider initialized: %s", provider.Name())

	// Initialize the market benchmark index. Benchmark retrieval needs an
	// embedder, so it is only wired when the Gemini provider is active.
	var market services.MarketContextService
	if embedder != nil {
		index, err := services.NewBenchmarkIndex(
			cfg.Qdrant.URL,
			cfg.Qdrant.APIKey,
			cfg.Qdrant.Collection,
		)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
		}
		if err := index.InitCollection(); err != nil {
			log.Fatalf("❌ Failed to initialize Qdrant collection: %v", err)
		}
		market = services.NewMarketContextService(index, embedder)
		log.Println("✅ Market benchmark index initialized")
	} else {
		log.Println("⚠️  No embedder available, market context disabled")
	}

	// Initialize pipeline services
	fetcher := services.NewFetcherService(projectRepo, proposalRepo, requirementRepo)
	precheck := services.NewPrecheckService()
	narrative := services.NewNarrativeService(
		provider,
		cfg.Evaluation.NarrativeTimeout,
		cfg.Evaluation.RetryAfter,
	)
	evaluator := services.NewEvaluationService(
		fetcher,
		precheck,
		narrative,
		policyRepo,
		evalRepo,
		market,
	)
	log.Println("✅ Evaluation service initialized")

	// Initialize the extraction worker
	extractor := services.NewPDFTextExtractor(docRepo)
	worker := services.NewExtractionWorker(
		proposalRepo,
		extractor,
		cfg.Worker.Concurrency,
		cfg.Worker.PollInterval,
	)
	worker.Start(ctx)
	log.Println("✅ Extraction worker started")

	// Initialize handlers
	evaluateHandler := handlers.NewEvaluateHandler(evaluator)
	resultHandler := handlers.NewResultHandler(evalRepo)
	uploadHandler := handlers.NewUploadHandler(
		docRepo,
		proposalRepo,
		store,
		worker,
		cfg.Storage.MaxFileSize,
	)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Proposal Evaluation Engine API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Post("/evaluate", evaluateHandler.HandleEvaluate)
	api.Get("/proposals/:id/result", resultHandler.HandleGetResult)
	api.Post("/proposals/:id/documents", uploadHandler.HandleUpload)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Proposal Evaluation Engine API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/evaluate",
				"GET /api/v1/proposals/:id/result",
				"POST /api/v1/proposals/:id/documents",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// buildProvider wires the configured narrative provider. Only the Gemini
// provider doubles as an embedder for market benchmarks.
func buildProvider(ctx context.Context, cfg *config.Config) (services.NarrativeProvider, services.Embedder, error) {
	switch cfg.Provider.Name {
	case "openrouter":
		provider, err := services.NewOpenRouterProvider(
			cfg.Provider.OpenRouterAPIKey,
			cfg.Provider.OpenRouterModel,
			cfg.Provider.OpenRouterURL,
		)
		if err != nil {
			return nil, nil, err
		}
		return provider, nil, nil
	default:
		provider, err := services.NewGeminiProvider(
			ctx,
			cfg.Provider.GeminiAPIKey,
			cfg.Provider.GeminiModel,
		)
		if err != nil {
			return nil, nil, err
		}
		return provider, provider, nil
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
