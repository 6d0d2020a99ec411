package seasonmodule

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/showline/showline/internal/auth"
	"github.com/showline/showline/internal/logger"
)

// RegisterRoutes registers the publisher-facing studio endpoints. Every
// route passes through the capability middleware, so handlers can assume a
// resolved publisher identity.
func (m *Module) RegisterRoutes(router *gin.Engine) {
	studio := router.Group("/api/studio", auth.RequireCapability(m.checker, auth.CapabilityPublish))
	{
		studio.POST("/seasons", m.createSeason)
		studio.GET("/seasons", m.listSeasons)
		studio.GET("/seasons/:seasonID", m.getSeasonDetails)
		studio.PATCH("/seasons/:seasonID", m.updateSeasonMetadata)
		studio.PUT("/seasons/:seasonID/cover", m.updateCoverImage)
		studio.PUT("/seasons/:seasonID/grade", m.updateGrade)
		studio.POST("/seasons/:seasonID/archive", m.archiveSeason)
		studio.DELETE("/seasons/:seasonID", m.deleteSeason)

		studio.POST("/seasons/:seasonID/drafts", m.createEpisodeDraft)
		studio.GET("/seasons/:seasonID/drafts", m.listEpisodeDrafts)
		studio.GET("/seasons/:seasonID/drafts/:draftID", m.getEpisodeDraft)
		studio.PUT("/seasons/:seasonID/drafts/:draftID/upload-progress", m.recordUploadProgress)
		studio.POST("/seasons/:seasonID/drafts/:draftID/upload-complete", m.completeVideoUpload)
		studio.DELETE("/seasons/:seasonID/drafts/:draftID/video", m.deleteEpisodeVideo)
		studio.DELETE("/seasons/:seasonID/drafts/:draftID", m.deleteEpisodeDraft)
		studio.POST("/seasons/:seasonID/drafts/:draftID/publish", m.publishEpisode)

		studio.GET("/seasons/:seasonID/episodes", m.listEpisodes)
		studio.DELETE("/seasons/:seasonID/episodes/:episodeID", m.deleteEpisode)
		studio.PUT("/seasons/:seasonID/episodes/:episodeID/index", m.reorderEpisode)
	}
}

// createSeason handles POST /api/studio/seasons
func (m *Module) createSeason(c *gin.Context) {
	var req CreateSeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	season, err := m.manager.CreateSeason(c.Request.Context(), auth.AccountID(c), req)
	if err != nil {
		writeError(c, "Failed to create season", err)
		return
	}
	c.JSON(http.StatusCreated, season)
}

// listSeasons handles GET /api/studio/seasons
func (m *Module) listSeasons(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	seasons, err := m.manager.ListSeasons(c.Request.Context(), auth.AccountID(c), limit, offset)
	if err != nil {
		writeError(c, "Failed to list seasons", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seasons": seasons, "count": len(seasons)})
}

// getSeasonDetails handles GET /api/studio/seasons/:seasonID
func (m *Module) getSeasonDetails(c *gin.Context) {
	details, err := m.manager.GetSeasonDetails(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"))
	if err != nil {
		writeError(c, "Failed to get season", err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// updateSeasonMetadata handles PATCH /api/studio/seasons/:seasonID
func (m *Module) updateSeasonMetadata(c *gin.Context) {
	var req UpdateSeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	season, err := m.manager.UpdateSeasonMetadata(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), req)
	if err != nil {
		writeError(c, "Failed to update season", err)
		return
	}
	c.JSON(http.StatusOK, season)
}

// updateCoverImage handles PUT /api/studio/seasons/:seasonID/cover
func (m *Module) updateCoverImage(c *gin.Context) {
	var req UpdateCoverImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	season, err := m.manager.UpdateSeasonCoverImage(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), req.CoverImageFilename)
	if err != nil {
		writeError(c, "Failed to update cover image", err)
		return
	}
	c.JSON(http.StatusOK, season)
}

// updateGrade handles PUT /api/studio/seasons/:seasonID/grade
func (m *Module) updateGrade(c *gin.Context) {
	var req UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := m.manager.UpdateSeasonGrade(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), req); err != nil {
		writeError(c, "Failed to update season grade", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// archiveSeason handles POST /api/studio/seasons/:seasonID/archive
func (m *Module) archiveSeason(c *gin.Context) {
	if err := m.manager.ArchiveSeason(c.Request.Context(), auth.AccountID(c), c.Param("seasonID")); err != nil {
		writeError(c, "Failed to archive season", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}

// deleteSeason handles DELETE /api/studio/seasons/:seasonID
func (m *Module) deleteSeason(c *gin.Context) {
	if err := m.manager.DeleteSeason(c.Request.Context(), auth.AccountID(c), c.Param("seasonID")); err != nil {
		writeError(c, "Failed to delete season", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// createEpisodeDraft handles POST /api/studio/seasons/:seasonID/drafts
func (m *Module) createEpisodeDraft(c *gin.Context) {
	var req CreateEpisodeDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	draft, err := m.manager.CreateEpisodeDraft(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), req)
	if err != nil {
		writeError(c, "Failed to create episode draft", err)
		return
	}
	c.JSON(http.StatusCreated, draft)
}

// listEpisodeDrafts handles GET /api/studio/seasons/:seasonID/drafts
func (m *Module) listEpisodeDrafts(c *gin.Context) {
	drafts, err := m.manager.ListEpisodeDrafts(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"))
	if err != nil {
		writeError(c, "Failed to list episode drafts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts, "count": len(drafts)})
}

// getEpisodeDraft handles GET /api/studio/seasons/:seasonID/drafts/:draftID
func (m *Module) getEpisodeDraft(c *gin.Context) {
	draft, err := m.manager.GetEpisodeDraft(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), c.Param("draftID"))
	if err != nil {
		writeError(c, "Failed to get episode draft", err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// recordUploadProgress handles PUT /api/studio/seasons/:seasonID/drafts/:draftID/upload-progress
func (m *Module) recordUploadProgress(c *gin.Context) {
	var req RecordUploadProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	draft, err := m.manager.RecordUploadProgress(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), c.Param("draftID"), req)
	if err != nil {
		writeError(c, "Failed to record upload progress", err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// completeVideoUpload handles POST /api/studio/seasons/:seasonID/drafts/:draftID/upload-complete
func (m *Module) completeVideoUpload(c *gin.Context) {
	var req CompleteVideoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	draft, err := m.manager.CompleteVideoUpload(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), c.Param("draftID"), req)
	if err != nil {
		writeError(c, "Failed to complete video upload", err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// deleteEpisodeVideo handles DELETE /api/studio/seasons/:seasonID/drafts/:draftID/video
func (m *Module) deleteEpisodeVideo(c *gin.Context) {
	draft, err := m.manager.DeleteEpisodeVideo(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), c.Param("draftID"))
	if err != nil {
		writeError(c, "Failed to delete episode video", err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// deleteEpisodeDraft handles DELETE /api/studio/seasons/:seasonID/drafts/:draftID
func (m *Module) deleteEpisodeDraft(c *gin.Context) {
	if err := m.manager.DeleteEpisodeDraft(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), c.Param("draftID")); err != nil {
		writeError(c, "Failed to delete episode draft", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// publishEpisode handles POST /api/studio/seasons/:seasonID/drafts/:draftID/publish
func (m *Module) publishEpisode(c *gin.Context) {
	// The body is optional; an absent premier time defaults to now.
	var req PublishEpisodeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	result, err := m.manager.PublishEpisode(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), c.Param("draftID"), req)
	if err != nil {
		writeError(c, "Failed to publish episode", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// listEpisodes handles GET /api/studio/seasons/:seasonID/episodes
func (m *Module) listEpisodes(c *gin.Context) {
	episodes, err := m.manager.ListEpisodes(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"))
	if err != nil {
		writeError(c, "Failed to list episodes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"episodes": episodes, "count": len(episodes)})
}

// reorderEpisode handles PUT /api/studio/seasons/:seasonID/episodes/:episodeID/index
func (m *Module) reorderEpisode(c *gin.Context) {
	var req ReorderEpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := m.manager.ReorderEpisode(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), c.Param("episodeID"), req.ToIndex); err != nil {
		writeError(c, "Failed to reorder episode", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reordered"})
}

// deleteEpisode handles DELETE /api/studio/seasons/:seasonID/episodes/:episodeID
func (m *Module) deleteEpisode(c *gin.Context) {
	if err := m.manager.DeleteEpisode(c.Request.Context(), auth.AccountID(c), c.Param("seasonID"), c.Param("episodeID")); err != nil {
		writeError(c, "Failed to delete episode", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// writeError maps manager errors to HTTP responses. Integrity faults are
// server faults and get logged; everything sentinel-matched is client fault.
func writeError(c *gin.Context, action string, err error) {
	if IsIntegrityError(err) {
		logger.Error("⚠️ %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": action, "details": err.Error()})
		return
	}

	switch {
	case errors.Is(err, ErrSeasonNotFound),
		errors.Is(err, ErrDraftNotFound),
		errors.Is(err, ErrEpisodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrSeasonArchived),
		errors.Is(err, ErrSeasonNotPublished),
		errors.Is(err, ErrSeasonNotDraft),
		errors.Is(err, ErrVideoNotUploaded),
		errors.Is(err, ErrIndexAlreadySet):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrGradeOutOfRange),
		errors.Is(err, ErrEffectiveTimeMissing),
		errors.Is(err, ErrEffectiveTimeTooSoon),
		errors.Is(err, ErrIndexOutOfRange),
		errors.Is(err, ErrNameMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("%s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": action, "details": err.Error()})
	}
}
