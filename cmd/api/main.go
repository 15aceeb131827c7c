package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Asaad942/VidFold/pkg/app"
	"github.com/Asaad942/VidFold/pkg/config"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetOutput(gin.DefaultWriter)
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Log.ConfigureLogger()
	log.Info("Starting VidFold API...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start background workers: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: application.Router(),
	}

	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Failed to start server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), application.ShutdownTimeout())
	defer cancel()

	exitCode := 0
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
		exitCode = 1
	}
	if err := application.Close(shutdownCtx); err != nil {
		log.Errorf("Shutdown incomplete: %v", err)
		exitCode = 1
	}

	log.Info("Server exited.")
	os.Exit(exitCode)
}
