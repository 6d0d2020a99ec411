package filemodule

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultSweepBatchSize = 100

// RegisterRoutes registers the sweeper-facing ledger endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	files := router.Group("/api/files")
	{
		files.GET("/videos/unused", m.listUnusedVideoFiles)
		files.DELETE("/videos/:filename", m.confirmVideoFileDeleted)
		files.GET("/covers/deleting", m.listPendingCoverImageDeletions)
		files.DELETE("/covers/:filename", m.confirmCoverImageDeleted)
	}
}

// listUnusedVideoFiles handles GET /api/files/videos/unused
func (m *Module) listUnusedVideoFiles(c *gin.Context) {
	limit := parseLimit(c)

	files, err := m.manager.ListUnusedVideoFiles(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list unused video files",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"count": len(files),
	})
}

// confirmVideoFileDeleted handles DELETE /api/files/videos/:filename
func (m *Module) confirmVideoFileDeleted(c *gin.Context) {
	filename := c.Param("filename")

	if err := m.manager.ConfirmVideoFileDeleted(filename); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to confirm video file deletion",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": filename})
}

// listPendingCoverImageDeletions handles GET /api/files/covers/deleting
func (m *Module) listPendingCoverImageDeletions(c *gin.Context) {
	limit := parseLimit(c)

	files, err := m.manager.ListPendingCoverImageDeletions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list pending cover image deletions",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"count": len(files),
	})
}

// confirmCoverImageDeleted handles DELETE /api/files/covers/:filename
func (m *Module) confirmCoverImageDeleted(c *gin.Context) {
	filename := c.Param("filename")

	if err := m.manager.ConfirmCoverImageDeleted(filename); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to confirm cover image deletion",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": filename})
}

func parseLimit(c *gin.Context) int {
	limitStr := c.DefaultQuery("limit", strconv.Itoa(defaultSweepBatchSize))
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 1000 {
		return defaultSweepBatchSize
	}
	return limit
}
