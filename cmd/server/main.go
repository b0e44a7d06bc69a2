package main

import (
	"os"

	"crm-messaging-server/internal/config"
	"crm-messaging-server/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.DefaultConfig()
	if len(os.Args) > 1 {
		loaded, err := config.LoadConfig(os.Args[1])
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Path, cfg.Logging.Level); err != nil {
		panic(err)
	}
	defer logger.Info("Server shutting down")

	// Setup and start server
	srv, err := SetupServer(cfg)
	if err != nil {
		logger.Fatal("Failed to setup server", zap.Error(err))
	}

	if err := StartServer(srv); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
