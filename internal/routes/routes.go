package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/rampwallet/internal/auth"
	"github.com/example/rampwallet/internal/handlers"
	"github.com/example/rampwallet/internal/middleware"
	"github.com/example/rampwallet/internal/store"
)

// Dependencies are the constructed collaborators the routes need.
type Dependencies struct {
	Store         store.Store
	Accounts      *auth.Service
	Resolver      *auth.Resolver
	Status        *auth.StatusUpdater
	Provider      handlers.RampProvider
	WebhookSecret string
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Accounts)
	resetHandler := handlers.NewPasswordResetHandler(deps.Accounts)
	profileHandler := handlers.NewProfileHandler(deps.Store, deps.Accounts)
	walletHandler := handlers.NewWalletHandler(deps.Store)
	bridgeHandler := handlers.NewBridgeHandler(deps.Store, deps.Provider, deps.Status)
	webhookHandler := handlers.NewWebhookHandler(deps.Store, deps.Status)

	authenticate := middleware.Authenticate(deps.Resolver)
	authenticateDevice := middleware.AuthenticateDevice(deps.Resolver)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/verify", authHandler.Verify)
	authGroup.Post("/forgot-password", resetHandler.ForgotPassword)
	authGroup.Post("/reset-password", resetHandler.ResetPassword)
	authGroup.Post("/logout", authenticate, authHandler.Logout)
	authGroup.Post("/change-password", authenticate, authHandler.ChangePassword)
	authGroup.Post("/resend-verification", authenticate, authHandler.ResendVerification)

	// Profile
	profile := api.Group("/profile", authenticateDevice)
	profile.Get("/", profileHandler.GetProfile)
	profile.Delete("/", profileHandler.DeleteProfile)

	// Wallet backup
	wallet := api.Group("/wallet", authenticateDevice, middleware.Require(auth.RequireVerified))
	wallet.Put("/backup", walletHandler.SaveBackup)
	wallet.Get("/backup", walletHandler.GetBackup)

	// Provider onboarding
	bridge := api.Group("/bridge", authenticate, middleware.Require(auth.RequireVerified))
	bridge.Post("/kyc-link", bridgeHandler.CreateKYCLink)
	bridge.Get("/kyc-status", bridgeHandler.KYCStatus)

	// Transfers need the full onboarding chain.
	transfers := api.Group("/transfers", authenticate, middleware.Require(
		auth.RequireVerified,
		auth.RequireKYC,
		auth.RequireTOS,
		auth.RequireProviderLink,
	))
	transfers.Post("/onramp", bridgeHandler.CreateOnramp)
	transfers.Post("/offramp", bridgeHandler.CreateOfframp)
	transfers.Get("/", bridgeHandler.ListTransfers)

	// Webhooks
	webhooks := api.Group("/webhooks")
	webhooks.Post("/bridge", middleware.WebhookSignature(deps.WebhookSecret), webhookHandler.Bridge)
}
