package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/wfunc/snaphunt/config"
	"github.com/wfunc/snaphunt/logger"
	"github.com/wfunc/snaphunt/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, clockwork.NewRealClock())

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
