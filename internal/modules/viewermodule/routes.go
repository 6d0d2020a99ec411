package viewermodule

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/showline/showline/internal/auth"
	"github.com/showline/showline/internal/logger"
)

// RegisterRoutes registers the consumer-facing watch endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	watch := router.Group("/api/watch", auth.RequireCapability(m.checker, auth.CapabilityConsume))
	{
		watch.GET("/seasons/:seasonID", m.getSeasonOverview)
		watch.GET("/seasons/:seasonID/episodes", m.listEpisodes)
		watch.GET("/seasons/:seasonID/episodes/:episodeID/playback", m.getPlayback)
	}
}

// getSeasonOverview handles GET /api/watch/seasons/:seasonID
func (m *Module) getSeasonOverview(c *gin.Context) {
	overview, err := m.manager.GetSeasonOverview(c.Request.Context(), c.Param("seasonID"))
	if err != nil {
		writeViewerError(c, "Failed to get season", err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// listEpisodes handles GET /api/watch/seasons/:seasonID/episodes
func (m *Module) listEpisodes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	episodes, err := m.manager.ListPublishedEpisodes(c.Request.Context(), c.Param("seasonID"), limit, offset)
	if err != nil {
		writeViewerError(c, "Failed to list episodes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"episodes": episodes, "count": len(episodes)})
}

// getPlayback handles GET /api/watch/seasons/:seasonID/episodes/:episodeID/playback
func (m *Module) getPlayback(c *gin.Context) {
	playback, err := m.manager.GetSeasonPlayback(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), c.Param("episodeID"))
	if err != nil {
		writeViewerError(c, "Failed to resolve playback", err)
		return
	}
	c.JSON(http.StatusOK, playback)
}

func writeViewerError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, ErrSeasonNotFound), errors.Is(err, ErrEpisodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotPremiered):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.Error("%s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": action, "details": err.Error()})
	}
}
