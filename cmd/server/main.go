package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/anthill/accountsvc/internal/container"
	httpdelivery "github.com/anthill/accountsvc/internal/delivery/http"
	"github.com/anthill/accountsvc/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	port       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "accountsvc",
		Short: "Identity and credential-merge engine",
		Long:  "Turns a credential proof and requested scopes into a signed, revocable access token bound to an account.",
		Run:   runServer,
	}

	rootCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
	rootCmd.Flags().StringVarP(&port, "port", "P", "", "Server port (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Printf("Warning: failed to load config from %s: %v", configFile, err)
		cfg = config.GetDefaultConfig()
	}

	if port != "" {
		if portInt, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = portInt
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	appContainer, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer func() {
		if err := appContainer.Close(); err != nil {
			logger.Warn("error closing container", zap.Error(err))
		}
	}()

	router := setupRouter(appContainer, cfg, logger)

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("accountsvc listening on %s", cfg.GetServerAddress())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func setupRouter(appContainer *container.Container, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	errorHandler := httpdelivery.NewErrorHandler(logger)
	handler := httpdelivery.NewHandler(appContainer.Service, errorHandler)

	httpdelivery.SetupRoutes(router, handler, errorHandler)

	return router
}
