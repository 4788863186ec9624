package handler

import (
	"github.com/yardline/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services lists the flows the HTTP layer dispatches to. Nil entries are allowed in tests
// that only exercise a subset of routes.
type Services struct {
	DB        *gorm.DB
	Leads     *service.LeadService
	Assistant *service.AssistantService
	Blog      *service.BlogService
	Gallery   *service.GalleryService
	AIImages  *service.AIImageService
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	leads     *service.LeadService
	assistant *service.AssistantService
	blog      *service.BlogService
	gallery   *service.GalleryService
	aiImages  *service.AIImageService
	logger    *zap.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(services Services, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		db:        services.DB,
		leads:     services.Leads,
		assistant: services.Assistant,
		blog:      services.Blog,
		gallery:   services.Gallery,
		aiImages:  services.AIImages,
		logger:    logger,
	}
}
