package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/models"
)

func SetupRoutes(app *fiber.App, deps Deps) {
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS, PATCH",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "MedVault API is running",
		})
	})

	requireAuth := auth.RequireAuth(deps.Issuer, deps.DB)

	// ==========================================
	// AUTH ROUTES
	// ==========================================
	authGroup := app.Group("/auth")
	authGroup.Post("/register", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
	}), deps.Auth.Register)
	authGroup.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), deps.Auth.Login)
	authGroup.Post("/refresh", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 5 * time.Minute,
	}), deps.Auth.Refresh)
	authGroup.Post("/forgot-password", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 15 * time.Minute,
	}), deps.Auth.ForgotPassword)
	authGroup.Post("/reset-password", deps.Auth.ResetPassword)
	authGroup.Post("/logout", deps.Auth.Logout)
	authGroup.Get("/me", requireAuth, deps.Auth.Me)

	// ==========================================
	// MEDICAL RECORDS
	// ==========================================
	recordGroup := app.Group("/records")
	recordGroup.Use(requireAuth)
	recordGroup.Post("/", auth.RequireRole(models.RolePatient), deps.Records.Upload)
	recordGroup.Get("/", auth.RequireRole(models.RolePatient), deps.Records.List)
	recordGroup.Get("/search", auth.RequireRole(models.RolePatient), deps.Records.Search)
	recordGroup.Get("/:id/download", deps.Records.Download)
	recordGroup.Delete("/:id", auth.RequireRole(models.RolePatient), deps.Records.Delete)

	// ==========================================
	// ACCESS SHARING
	// ==========================================
	accessGroup := app.Group("/access")
	accessGroup.Use(requireAuth)
	accessGroup.Post("/requests", auth.RequireRole(models.RoleDoctor), deps.Access.CreateRequest)
	accessGroup.Get("/requests", deps.Access.ListRequests)
	accessGroup.Post("/requests/:id/approve", auth.RequireRole(models.RolePatient), deps.Access.ApproveRequest)
	accessGroup.Post("/requests/:id/deny", auth.RequireRole(models.RolePatient), deps.Access.DenyRequest)
	accessGroup.Post("/codes", auth.RequireRole(models.RolePatient), deps.Access.CreateShareCode)
	accessGroup.Post("/codes/redeem", auth.RequireRole(models.RoleDoctor), deps.Access.RedeemShareCode)

	// ==========================================
	// USER MANAGEMENT (Admin only)
	// ==========================================
	userGroup := app.Group("/users")
	userGroup.Use(requireAuth)
	userGroup.Use(auth.RequireRole(models.RoleAdmin))
	userGroup.Get("/", deps.Users.List)
	userGroup.Get("/:id", deps.Users.Get)
	userGroup.Put("/:id/role", deps.Users.UpdateRole)
	userGroup.Delete("/:id", deps.Users.Delete)

	// ==========================================
	// AUDIT (Admin only)
	// ==========================================
	auditGroup := app.Group("/audit")
	auditGroup.Use(requireAuth)
	auditGroup.Use(auth.RequireRole(models.RoleAdmin))
	auditGroup.Get("/", deps.Audit.List)
}
