package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conferencehub/config"
	_ "conferencehub/docs"
	"conferencehub/internal/adapters/auth"
	"conferencehub/internal/adapters/email"
	httpdelivery "conferencehub/internal/delivery/http"
	"conferencehub/internal/delivery/http/controllers"
	"conferencehub/internal/delivery/http/middleware"
	"conferencehub/internal/repository/postgres"
	"conferencehub/internal/services"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const shutdownTimeout = 10 * time.Second

// @title ConferenceHub API
// @version 1.0
// @description Conference admission and membership service.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}

	// Repositories
	conferenceRepo := postgres.NewConferenceRepository(db)
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	loginCodeRepo := postgres.NewLoginCodeRepository(db)

	// Adapters
	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	tokenIssuer := auth.NewJWTIssuer(cfg.JWTSecret)
	tokenVerifier := auth.NewJWTVerifier(cfg.JWTSecret)
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretAccessKey,
		},
	})
	if err != nil {
		logger.Error("create mailer", "err", err)
		os.Exit(1)
	}

	// Services
	emailSvc := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	conferenceSvc := services.NewConferenceService(conferenceRepo, cfg.ConferenceTTL, cfg.ConferenceMaxMembers)
	userSvc := services.NewUserService(userRepo, roleRepo, loginCodeRepo, tokenIssuer, cfg.TokenExpiry, emailSvc)
	authSvc := services.NewAuthService(userRepo, roleRepo, hasher, tokenIssuer, cfg.TokenExpiry)

	// Controllers and router
	conferenceController := controllers.NewConferenceController(logger, conferenceSvc)
	authController := controllers.NewAuthController(logger, authSvc, userSvc)
	mux := httpdelivery.NewRouter(logger, conferenceSvc, tokenVerifier, userSvc, conferenceController, authController)

	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
