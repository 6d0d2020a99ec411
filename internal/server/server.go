package server

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/showline/showline/internal/config"
	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/events"
	"github.com/showline/showline/internal/logger"
	"github.com/showline/showline/internal/modules/modulemanager"
	"github.com/showline/showline/internal/server/handlers"

	// Import all modules to trigger their registration
	_ "github.com/showline/showline/internal/modules/assetmodule"
	_ "github.com/showline/showline/internal/modules/eventsmodule"
	_ "github.com/showline/showline/internal/modules/filemodule"
	_ "github.com/showline/showline/internal/modules/seasonmodule"
	_ "github.com/showline/showline/internal/modules/viewermodule"
)

var systemEventBus events.EventBus
var moduleInitialized bool
var disabledModules = make(map[string]bool)

// SetupRouter configures and returns the main router
func SetupRouter() *gin.Engine {
	r := gin.Default()

	if config.Get().Server.EnableCORS {
		r.Use(corsMiddleware())
	}

	initializeEventBus()

	if err := initializeModules(); err != nil {
		log.Printf("Failed to initialize modules: %v", err)
	}

	setupBaseRoutes(r)
	modulemanager.RegisterRoutes(r)

	return r
}

// DisableModule disables a specific module (for development/testing only)
func DisableModule(moduleID string) {
	if moduleInitialized {
		logger.Warn("Attempting to disable module %s after modules have been initialized", moduleID)
		return
	}

	disabledModules[moduleID] = true
	modulemanager.DisableModule(moduleID)
	logger.Info("Module disabled for development: %s", moduleID)
}

// initializeModules sets up the module system and loads all modules
func initializeModules() error {
	if moduleInitialized {
		return nil
	}

	db := database.GetDB()

	if err := modulemanager.LoadAll(db); err != nil {
		return err
	}

	moduleInitialized = true
	logModuleStatus()

	return nil
}

// logModuleStatus logs the loaded modules
func logModuleStatus() {
	modules := modulemanager.ListModules()

	log.Printf("✅ Module system initialized with %d modules", len(modules))

	log.Printf("┌────────────────────────────────────────────────────────────────┐")
	log.Printf("│ %-20s │ %-25s │ %-8s │", "MODULE NAME", "MODULE ID", "CORE")
	log.Printf("├────────────────────────────────────────────────────────────────┤")

	for _, module := range modules {
		coreStatus := "No"
		if module.Core() {
			coreStatus = "Yes"
		}
		log.Printf("│ %-20s │ %-25s │ %-8s │",
			truncate(module.Name(), 20),
			truncate(module.ID(), 25),
			coreStatus)
	}

	log.Printf("└────────────────────────────────────────────────────────────────┘")
}

// truncate shortens a string to the given length, adding ... if needed
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// initializeEventBus sets up the system-wide event bus
func initializeEventBus() {
	if systemEventBus != nil {
		return
	}

	systemEventBus = events.NewEventBus()
	events.SetGlobalEventBus(systemEventBus)

	log.Printf("✅ Event bus initialized and started")

	startupEvent := events.NewSystemEvent(
		events.EventSystemStarted,
		"System Started",
		"Showline backend has started successfully",
	)
	systemEventBus.PublishAsync(startupEvent)
}

// GetEventBus returns the global event bus instance
func GetEventBus() events.EventBus {
	return systemEventBus
}

// ShutdownEventBus gracefully shuts down the event bus
func ShutdownEventBus() error {
	if systemEventBus == nil {
		return nil
	}

	shutdownEvent := events.NewSystemEvent(
		events.EventSystemStopped,
		"System Stopped",
		"Showline backend is shutting down",
	)
	systemEventBus.PublishAsync(shutdownEvent)

	return systemEventBus.Stop(context.Background())
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// setupBaseRoutes registers the routes that do not belong to any module
func setupBaseRoutes(r *gin.Engine) {
	r.GET("/health", handlers.HandleHealthCheck)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HandleHealthCheck)
		api.GET("/db-status", handlers.HandleDBStatus)
		api.GET("/system/status", handlers.HandleSystemStatus)
	}
}
