package server

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/access"
	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/records"
	"github.com/medvault/medvault/internal/users"
)

// Deps is everything the HTTP layer needs, constructed once in main.
type Deps struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Issuer  *auth.TokenIssuer
	Auth    *auth.Handler
	Records *records.Handler
	Access  *access.Handler
	Audit   *audit.Handler
	Users   *users.Handler
}

func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 30 * 1024 * 1024,
	})

	SetupRoutes(app, deps)

	return app
}
