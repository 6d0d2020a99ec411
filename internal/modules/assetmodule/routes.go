package assetmodule

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/showline/showline/internal/auth"
	"github.com/showline/showline/internal/logger"
)

// RegisterRoutes registers the cover upload endpoint
func (m *Module) RegisterRoutes(router *gin.Engine) {
	assets := router.Group("/api/assets", auth.RequireCapability(m.checker, auth.CapabilityPublish))
	{
		assets.POST("/covers", m.uploadCoverImage)
	}
}

// uploadCoverImage handles POST /api/assets/covers. The image travels as a
// multipart form field named "image".
func (m *Module) uploadCoverImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image field", "details": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image", "details": err.Error()})
		return
	}

	cover, err := m.manager.UploadCoverImage(c.Request.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedImageType):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		case errors.Is(err, ErrImageTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to store cover image: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store cover image", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, cover)
}
