package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/yardline/internal/apperr"
)

type generateImagePayload struct {
	Prompt string `json:"prompt"`
}

type importImagePayload struct {
	URL string `json:"url"`
}

// GenerateImage renders a prompt into a hosted header image.
func (a *API) GenerateImage(c *gin.Context) {
	if a.aiImages == nil {
		a.respondError(c, apperr.Config("image generation is not configured"))
		return
	}
	var payload generateImagePayload
	if !a.bindJSON(c, &payload) {
		return
	}

	result, err := a.aiImages.Generate(c.Request.Context(), payload.Prompt)
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"url": result.URL, "filename": result.Filename})
}

// ImportImage downloads a remote image into the AI photos bucket.
func (a *API) ImportImage(c *gin.Context) {
	if a.aiImages == nil {
		a.respondError(c, apperr.Config("image generation is not configured"))
		return
	}
	var payload importImagePayload
	if !a.bindJSON(c, &payload) {
		return
	}

	result, err := a.aiImages.ImportByURL(c.Request.Context(), payload.URL)
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"url": result.URL, "filename": result.Filename})
}
