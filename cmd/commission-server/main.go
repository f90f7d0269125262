package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/commission-calculator/internal/calculator"
	"github.com/iwvelando/commission-calculator/internal/config"
	"github.com/iwvelando/commission-calculator/internal/logging"
	"github.com/iwvelando/commission-calculator/internal/metrics"
	"github.com/iwvelando/commission-calculator/internal/server"
	"github.com/iwvelando/commission-calculator/pkg/constants"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	serverConfigLocation := flag.String("config", constants.DefaultServerConfigFile, "path to server configuration file")
	tiersLocation := flag.String("tiers", constants.DefaultConfigFile, "path to the configuration file holding the tier catalog")
	envFile := flag.String("env", constants.DefaultEnvFile, "optional .env file loaded before the configuration")
	address := flag.String("address", "", "listen address override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load env file at %s\", \"error\": \"%v\"}\n", *envFile, err)
		os.Exit(1)
	}

	serverConf, err := server.LoadConfig(*serverConfigLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *serverConfigLocation, err)
		os.Exit(1)
	}
	if *address != "" {
		serverConf.Address = *address
	}

	logger, err := logging.New(serverConf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	conf, err := config.LoadConfiguration(*tiersLocation)
	if err != nil {
		logger.Fatal(fmt.Sprintf("failed to load tier catalog at %s", *tiersLocation),
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	recorder := metrics.NewRecorder()
	handler, err := server.NewHandler(server.Options{
		Logger:         logger,
		Calculator:     calculator.New(logger, conf.Catalog(), recorder),
		Metrics:        recorder,
		MaxUploadSize:  serverConf.UploadSizeBytes(),
		Version:        version,
		Currency:       serverConf.Currency,
		AllowedOrigins: serverConf.AllowedOrigins,
	})
	if err != nil {
		logger.Fatal("failed to build HTTP handler",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if err := serve(logger, serverConf.Address, handler); err != nil {
		logger.Error("server stopped with error",
			zap.String("op", "main"),
			zap.Error(err),
		)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func serve(logger *zap.Logger, address string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("commission API listening on %s", address),
			zap.String("op", "main.serve"),
		)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down",
			zap.String("op", "main.serve"),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
