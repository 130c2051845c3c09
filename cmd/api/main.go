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
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/resume-polisher/internal/config"
	"alfredoptarigan/resume-polisher/internal/handlers"
	"alfredoptarigan/resume-polisher/internal/repositories"
	"alfredoptarigan/resume-polisher/internal/services"
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

	// Initializes repositories
	recordRepo := repositories.NewRecordRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatalf("❌ Failed to create upload directory: %v", err)
	}

	metrics := services.NewMetrics()
	breakers := services.NewBreakerSet(cfg.Breaker)

	ocrChain := services.NewOCRChain(
		services.NewDefaultOCRProviders(cfg.OCR),
		cfg.OCR.Timeout,
		breakers,
		metrics,
	)
	if available := ocrChain.ListAvailableServices(); len(available) > 0 {
		log.Printf("✅ OCR services available: %v\n", available)
	} else {
		log.Println("⚠️  No OCR service available, image uploads will be rejected")
	}

	extractor := services.NewTextExtractor(services.NewPDFParserService(), ocrChain)
	log.Println("✅ Services initialized successfully")

	// Initialize LLM
	transport := services.NewLLMTransport(cfg.LLM)
	if cfg.LLMCredential() == "" {
		log.Printf("⚠️  No %s API key configured, requests must provide api_key\n", cfg.LLM.Provider)
	}
	log.Printf("✅ LLM transport initialized (%s)\n", transport.Name())

	reconciler := services.NewReconciler(metrics)
	policy := services.CredentialPolicyFor(cfg.LLM.Provider)

	resumeService := services.NewResumeMatchService(
		transport,
		reconciler,
		recordRepo,
		breakers,
		metrics,
		services.AnalysisConfig{
			Model:         cfg.LLM.ResumeModel,
			DefaultAPIKey: cfg.LLMCredential(),
			Policy:        policy,
			Timeout:       cfg.LLM.Timeout,
			Language:      cfg.LLM.OutputLanguage,
		},
	)
	contractService := services.NewContractRiskService(
		transport,
		reconciler,
		breakers,
		metrics,
		services.AnalysisConfig{
			Model:         cfg.LLM.ContractModel,
			DefaultAPIKey: cfg.LLMCredential(),
			Policy:        policy,
			Timeout:       cfg.LLM.Timeout,
			Language:      cfg.LLM.OutputLanguage,
		},
	)
	analyzer := services.NewDocumentAnalyzer(extractor, resumeService, contractService)
	log.Println("✅ Analysis services initialized")

	// Initialize worker
	processor := services.NewJobProcessor(jobRepo, analyzer, metrics)
	worker := services.NewWorker(jobRepo, processor, services.WorkerOptions{
		Concurrency:  cfg.Worker.Concurrency,
		QueueSize:    cfg.Worker.QueueSize,
		PollInterval: cfg.Worker.PollInterval,
	})

	// Start worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	// Initialize Handlers
	analyzeHandler := handlers.NewAnalyzeHandler(analyzer, cfg.Storage.MaxFileSize)
	ocrStatusHandler := handlers.NewOCRStatusHandler(ocrChain)
	jobHandler := handlers.NewJobHandler(jobRepo, storageService, worker, cfg.Storage.MaxFileSize)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Resume Polisher API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 30*time.Second,
		// multipart overhead on top of the file itself
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(helmet.New(helmet.Config{
		XFrameOptions: "DENY",
	}))
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Get("/ocr-status", ocrStatusHandler.HandleOCRStatus)
	api.Post("/analyze", analyzeHandler.HandleAnalyzeResume)
	api.Post("/analyze-contract", analyzeHandler.HandleAnalyzeContract)
	api.Post("/jobs", jobHandler.HandleCreateJob)
	api.Get("/jobs/:id", jobHandler.HandleGetJob)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":        "Resume Polisher API",
			"version":        "1.0.0",
			"contract_types": services.ContractTypes(),
			"endpoints": []string{
				"GET /api/v1/health",
				"GET /api/v1/ocr-status",
				"POST /api/v1/analyze",
				"POST /api/v1/analyze-contract",
				"POST /api/v1/jobs",
				"GET /api/v1/jobs/:id",
				"GET /metrics",
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
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)
	log.Printf("📖 API Documentation: http://localhost%s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := handlers.StatusFor(err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
