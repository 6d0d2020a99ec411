package main

import (
	"fmt"
	"log"
	"os"

	"github.com/showline/showline/internal/config"
	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/server"
)

func main() {
	configPath := os.Getenv("SHOWLINE_CONFIG")
	if err := config.Load(configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.Get()

	err := database.Initialize(database.ConnectionSettings{
		Type:         cfg.Database.Type,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		Username:     cfg.Database.Username,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		DatabasePath: cfg.Database.DatabasePath,
		LogQueries:   cfg.Database.LogQueries,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	r := server.SetupRouter()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Starting Showline server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
