package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"notary-service/internal/app"
	"notary-service/internal/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the configuration file written by setup")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on system env vars")
	}

	srv, err := app.NewServer(*configPath, logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.String("path", *configPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}
