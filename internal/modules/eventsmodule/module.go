package eventsmodule

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/showline/showline/internal/events"
	"github.com/showline/showline/internal/modules/modulemanager"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	ModuleID   = "system.events"
	ModuleName = "Event Activity"
)

// Module exposes the event bus's recent activity over HTTP for
// operational inspection.
type Module struct {
	id       string
	name     string
	core     bool
	eventBus events.EventBus
}

// Register registers this module with the module system
func Register() {
	modulemanager.Register(&Module{
		id:   ModuleID,
		name: ModuleName,
		core: true,
	})
}

func (m *Module) ID() string {
	return m.id
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Core() bool {
	return m.core
}

// Migrate is a no-op; events are held in memory only.
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

func (m *Module) Init() error {
	m.eventBus = events.GetGlobalEventBus()
	if m.eventBus == nil {
		return fmt.Errorf("global event bus not initialized")
	}
	return nil
}

// RegisterRoutes registers the event inspection endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/events")
	group.GET("", m.listRecentEvents)
	group.GET("/stats", m.getEventStats)
}

func (m *Module) listRecentEvents(c *gin.Context) {
	if m.eventBus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event bus not available"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	recent := m.eventBus.RecentEvents(limit)
	c.JSON(http.StatusOK, gin.H{
		"events": recent,
		"count":  len(recent),
	})
}

func (m *Module) getEventStats(c *gin.Context) {
	if m.eventBus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event bus not available"})
		return
	}
	c.JSON(http.StatusOK, m.eventBus.GetStats())
}
