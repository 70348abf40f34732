package main

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"bonusdesk/docs"
	"bonusdesk/internal/auth"
	"bonusdesk/internal/cache"
	"bonusdesk/internal/config"
	"bonusdesk/internal/db"
	"bonusdesk/internal/handler"
	"bonusdesk/internal/logger"
	"bonusdesk/internal/mail"
	"bonusdesk/internal/model"
	"bonusdesk/internal/repository"
	"bonusdesk/internal/router"
	"bonusdesk/internal/service"
)

// @title Bonus Approval API
// @version 1.0
// @description Role-based bonus approval workflow: managers propose bonuses, finance staff approve or reject them.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey TokenAuth
// @in header
// @name token
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, dropping all tables")
		tables := []interface{}{
			&model.BonusComment{},
			&model.Bonus{},
			&model.User{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Warn().Err(err).Msg("failed to drop table (may not exist)")
			}
		}
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Bonus{},
		&model.BonusComment{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	bonusRepo := repository.NewBonusRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize notifier
	mailer := mail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, log)
	defer mailer.Close()

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, mailer, cfg.AppBaseURL, log)
	userService := service.NewUserService(userRepo, cacheClient)
	checker := service.NewEligibilityChecker(bonusRepo)
	bonusService := service.NewBonusService(bonusRepo, userRepo, checker, mailer, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	bonusHandler := handler.NewBonusHandler(bonusService)

	// Register routes
	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, log, authHandler, userHandler, bonusHandler)

	addr := ":" + cfg.ServerPort
	log.Info().Str("addr", addr).Msg("starting server")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server start")
	}
}
