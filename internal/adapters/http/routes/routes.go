package routes

import (
	"time"

	"kcc-loanhub/internal/adapters/http/handlers"
	"kcc-loanhub/internal/adapters/http/middleware"
	"kcc-loanhub/internal/adapters/persistence/repositories"
	"kcc-loanhub/internal/config"
	"kcc-loanhub/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Dependencies are the services the routes are served by
type Dependencies struct {
	Store         repositories.Store
	Engine        *services.Engine
	Auth          *services.AuthService
	Dashboard     *services.DashboardService
	Audit         *services.AuditService
	VKFingerprint string
}

// NewDependencies wires the engine and its supporting services over store
func NewDependencies(store repositories.Store, verifier services.ProofVerifier, vkFingerprint string, cfg *config.Config) *Dependencies {
	engine := services.NewEngine(store, verifier, cfg.Policy.EligibilityPolicy())

	return &Dependencies{
		Store:         store,
		Engine:        engine,
		Auth:          services.NewAuthService(cfg.JWT.Secret, cfg.JWT.AccessTokenMins, time.Duration(cfg.JWT.ChallengeMinutes)*time.Minute),
		Dashboard:     services.NewDashboardService(engine),
		Audit:         services.NewAuditService(engine),
		VKFingerprint: vkFingerprint,
	}
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps *Dependencies, cfg *config.Config) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.Store, cfg.AppMode, deps.VKFingerprint)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Engine, cfg.JWT.AccessTokenMins, cfg.IsProd())
	credentialHandler := handlers.NewCredentialHandler(deps.Engine)
	roleHandler := handlers.NewRoleHandler(deps.Engine)
	loanHandler := handlers.NewLoanHandler(deps.Engine)
	dashboardHandler := handlers.NewDashboardHandler(deps.Dashboard, deps.Audit)

	// Health check & root routes
	app.Get("/", middleware.CacheControl(time.Minute), healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group, ledger reads are never cached
	apiV1 := app.Group("/api/v1", middleware.CacheControl(0))
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(deps.Auth)

	// Auth routes
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/challenge", middleware.AuthRateLimiter(), authHandler.Challenge)
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", auth, authHandler.Me)

	// Credential registry routes
	credentialRoutes := apiV1.Group("/credentials", auth)
	credentialRoutes.Post("/", credentialHandler.Issue)
	credentialRoutes.Post("/:address/revoke", credentialHandler.Revoke)
	credentialRoutes.Get("/:address", credentialHandler.Get)

	// Role authority routes
	roleRoutes := apiV1.Group("/roles", auth)
	roleRoutes.Get("/", roleHandler.List)
	roleRoutes.Get("/:role", roleHandler.Get)
	roleRoutes.Put("/:role", roleHandler.Assign)

	// Eligibility routes
	apiV1.Get("/eligibility/statement", auth, loanHandler.Statement)

	// Loan ledger routes; static paths before /:id
	loanRoutes := apiV1.Group("/loans", auth)
	loanRoutes.Post("/", middleware.ProofRateLimiter(), loanHandler.Apply)
	loanRoutes.Get("/", loanHandler.List)
	loanRoutes.Get("/count", loanHandler.Count)
	loanRoutes.Get("/mine", loanHandler.Mine)
	loanRoutes.Get("/:id", loanHandler.Get)
	loanRoutes.Get("/:id/history", loanHandler.History)
	loanRoutes.Post("/:id/review", loanHandler.Review)
	loanRoutes.Post("/:id/sanction", loanHandler.Sanction)
	loanRoutes.Post("/:id/reject", loanHandler.Reject)
	loanRoutes.Post("/:id/disburse", loanHandler.Disburse)

	// Farmer routes
	apiV1.Get("/farmers/:address/loans", auth, loanHandler.FarmerLoans)

	// Dashboard & audit routes
	dashboardRoutes := apiV1.Group("/dashboard", auth)
	dashboardRoutes.Get("/summary", dashboardHandler.GetSummary)

	auditRoutes := apiV1.Group("/audit", auth)
	auditRoutes.Post("/run", dashboardHandler.RunAudit)
	auditRoutes.Get("/last", dashboardHandler.LastAudit)
}
