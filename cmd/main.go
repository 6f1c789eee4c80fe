package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/medvault/medvault/internal/access"
	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/database"
	"github.com/medvault/medvault/internal/mailer"
	"github.com/medvault/medvault/internal/records"
	"github.com/medvault/medvault/internal/server"
	"github.com/medvault/medvault/internal/storage"
	"github.com/medvault/medvault/internal/users"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}
	log.Info("config loaded", zap.String("addr", cfg.ServerAddr))

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("database migrated")

	var blobs storage.BlobStore
	if cfg.UseS3 && cfg.S3Bucket != "" && cfg.S3Region != "" {
		blobs, err = storage.NewS3Store(cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			log.Fatal("s3 initialization failed", zap.Error(err))
		}
		log.Info("using S3 storage", zap.String("bucket", cfg.S3Bucket), zap.String("region", cfg.S3Region))
	} else {
		blobs, err = storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			log.Fatal("local storage initialization failed", zap.Error(err))
		}
		log.Info("using local storage", zap.String("dir", cfg.UploadDir))
	}

	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		mail, err = mailer.NewSMTP(cfg, log)
		if err != nil {
			log.Fatal("mailer initialization failed", zap.Error(err))
		}
		log.Info("mailer configured", zap.String("host", cfg.SMTPHost))
	} else {
		mail = mailer.NopMailer{}
		log.Warn("SMTP not configured, reset emails will be dropped")
	}

	recorder := audit.NewRecorder(db, log)
	issuer := auth.NewTokenIssuer(cfg)
	ledger := auth.NewSessionLedger(db)
	guard := auth.NewReplayGuard(db)
	authSvc := auth.NewService(db, issuer, ledger, guard, recorder, mail, cfg, log)
	grants := access.NewGrantChecker(db)

	// Hourly sweep over expired sessions, replay entries and stale reset
	// credentials.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for range ticker.C {
			authSvc.PruneExpired()
		}
	}()

	app := server.New(server.Deps{
		DB:      db,
		Log:     log,
		Issuer:  issuer,
		Auth:    auth.NewHandler(authSvc),
		Records: records.NewHandler(db, blobs, grants, recorder),
		Access:  access.NewHandler(db, recorder, cfg),
		Audit:   audit.NewHandler(db),
		Users:   users.NewHandler(db),
	})

	log.Info("MedVault server starting", zap.String("addr", cfg.ServerAddr))
	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
