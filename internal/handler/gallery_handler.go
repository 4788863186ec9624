package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/service"
	"go.uber.org/zap"
)

type galleryPhotoPayload struct {
	Image    string `json:"image"`
	Alt      string `json:"alt"`
	Category string `json:"category"`
}

func (a *API) galleryReady(c *gin.Context) bool {
	if a.gallery == nil {
		a.respondError(c, apperr.Config("gallery is not configured"))
		return false
	}
	return true
}

// AddGalleryPhoto uploads a photo and catalogs it.
func (a *API) AddGalleryPhoto(c *gin.Context) {
	if !a.galleryReady(c) {
		return
	}
	var payload galleryPhotoPayload
	if !a.bindJSON(c, &payload) {
		return
	}

	photo, err := a.gallery.AddPhoto(c.Request.Context(), service.GalleryPhotoInput{
		Image:    payload.Image,
		Alt:      payload.Alt,
		Category: payload.Category,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}

	respondSuccess(c, gin.H{"photo": gin.H{
		"id":       photo.ID,
		"src":      photo.Src,
		"alt":      photo.Alt,
		"category": photo.Category,
	}})
}

// ListGalleryCatalog returns every catalog row for the admin screen.
func (a *API) ListGalleryCatalog(c *gin.Context) {
	if !a.galleryReady(c) {
		return
	}
	photos, err := a.gallery.ListCatalog(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"photos": photos})
}

// UpdateGalleryPhoto patches a catalog row. Unknown keys land in the row's metadata.
func (a *API) UpdateGalleryPhoto(c *gin.Context) {
	if !a.galleryReady(c) {
		return
	}
	var body map[string]any
	if !a.bindJSON(c, &body) {
		return
	}
	id, err := idFromRequest(c, body)
	if err != nil {
		a.respondError(c, err)
		return
	}
	delete(body, "id")

	if _, err := a.gallery.UpdatePhoto(c.Request.Context(), id, body); err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, nil)
}

// DeleteGalleryPhoto removes the stored object and its catalog row.
func (a *API) DeleteGalleryPhoto(c *gin.Context) {
	if !a.galleryReady(c) {
		return
	}
	body := map[string]any{}
	if !a.bindOptionalJSON(c, &body) {
		return
	}
	id, err := idFromRequest(c, body)
	if err != nil {
		a.respondError(c, err)
		return
	}
	filename := c.Query("filename")
	if filename == "" {
		filename, _ = body["filename"].(string)
	}

	if err := a.gallery.DeletePhoto(c.Request.Context(), id, filename); err != nil {
		a.respondError(c, err)
		return
	}
	a.requestLogger(c).Info("gallery photo deleted", zap.Uint("id", id), zap.String("filename", filename))
	respondSuccess(c, nil)
}

// ListGalleryBucket returns the synthetic listing derived from the gallery bucket.
func (a *API) ListGalleryBucket(c *gin.Context) {
	if !a.galleryReady(c) {
		return
	}
	photos, err := a.gallery.ListFromBucket(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"photos": photos})
}

// MigrateGallery catalogs every image object in the gallery folder.
func (a *API) MigrateGallery(c *gin.Context) {
	if !a.galleryReady(c) {
		return
	}
	count, err := a.gallery.MigrateBucketToCatalog(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.requestLogger(c).Info("gallery migrated", zap.Int("count", count))
	respondSuccess(c, gin.H{"migrated": count})
}
