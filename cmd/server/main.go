package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kcc-loanhub/internal/adapters/http/middleware"
	"kcc-loanhub/internal/adapters/http/routes"
	"kcc-loanhub/internal/config"
	"kcc-loanhub/internal/core/zkp"
	"kcc-loanhub/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"

	_ "kcc-loanhub/docs" // Swagger docs
)

// @title KCC LoanHub API
// @version 1.0
// @description Credential-gated agricultural loan origination with zero-knowledge eligibility proofs
// @termsOfService http://swagger.io/terms/

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.JSONEnabled)

	// Open ledger store (MySQL or memory)
	store, err := config.OpenStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open ledger store: %v", err)
	}
	defer config.CloseDatabase()

	// Bootstrap role assignment
	if err := config.NewSeeder(store).Run(context.Background(), cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Load verifying key once
	verifier, err := zkp.LoadVerifier(cfg.ZK.VerifyingKeyPath)
	if err != nil {
		log.Fatalf("❌ Failed to load verifying key: %v", err)
	}
	log.Printf("✅ Verifying key loaded [%s] fingerprint %s", cfg.ZK.VerifyingKeyPath, verifier.Fingerprint())
	log.Printf("✅ Eligibility policy: land >= %d acres, income <= %d",
		cfg.Policy.MinLandAcres, cfg.Policy.MaxAnnualIncome)

	deps := routes.NewDependencies(store, verifier, verifier.Fingerprint(), cfg)

	// Start ledger audit job
	if err := deps.Audit.Start(cfg.Audit.Schedule); err != nil {
		log.Fatalf("❌ Failed to start ledger audit: %v", err)
	}
	defer deps.Audit.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "KCC LoanHub API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, deps, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
