// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mealsnap/internal/auth"
	"mealsnap/internal/config"
	"mealsnap/internal/db"
	"mealsnap/internal/mailer"
	"mealsnap/internal/meal"
	"mealsnap/internal/profile"
	"mealsnap/internal/server"
	"mealsnap/internal/vision"
	"mealsnap/pkg/logger"
)

func main() {
	l := logger.New()
	l.Info("Starting mealsnap API...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", err)
	}

	if cfg.Vision.APIKey == "" {
		l.Fatal("Vision API key is not configured")
	}
	if cfg.Auth.JWTSecret == "" {
		l.Fatal("JWT secret is not configured")
	}

	// Connect to Postgres with retry
	var database *db.Postgres
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = db.NewPostgres(db.Config(cfg.DB))
		if err == nil {
			break
		}
		l.Error("Failed to connect to database, retrying...", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if database == nil {
		l.Fatal("Failed to connect to database after multiple attempts", err)
	}
	defer database.Close()

	if err := database.Migrate(context.Background()); err != nil {
		l.Fatal("Failed to apply database schema", err)
	}

	// Mail: SES when configured, log-only otherwise
	var mail auth.Mailer
	if cfg.Mail.Sender != "" {
		sesMailer, err := mailer.NewSES(context.Background(), cfg.Mail.Region, cfg.Mail.Sender)
		if err != nil {
			l.Fatal("Failed to initialize SES mailer", err)
		}
		mail = sesMailer
	} else {
		l.Info("No mail sender configured, codes will be logged")
		mail = mailer.Log{Logger: l}
	}

	estimator := vision.NewEstimator(cfg.Vision.APIKey, cfg.Vision.BaseURL).WithModel(cfg.Vision.Model)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	events := profile.NewEvents()

	authSvc := auth.NewService(database, mail, tokens, l.Named("auth"))
	profileSvc := profile.NewService(database, events, l.Named("profile"))
	mealSvc := meal.NewService(database, l.Named("meal"))

	handlers := server.NewHandlers(authSvc, profileSvc, mealSvc, estimator, tokens, l.Named("http"))
	httpServer := server.NewServer(cfg.Server.Port, handlers, l)

	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start HTTP server", err)
		}
	}()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		l.Error("Error during HTTP server shutdown", err)
	}

	l.Info("Server stopped successfully")
}
