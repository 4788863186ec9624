// Package app wires configuration into the catalog, object store and flows shared by the
// HTTP server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/yardline/internal/catalog"
	"github.com/yardline/internal/config"
	"github.com/yardline/internal/db"
	"github.com/yardline/internal/handler"
	"github.com/yardline/internal/imaging"
	"github.com/yardline/internal/router"
	"github.com/yardline/internal/service"
	"github.com/yardline/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// openCatalog is replaced in tests to observe the connection New opens.
var openCatalog = db.Open

// App holds the constructed dependencies.
type App struct {
	Config config.AppConfig
	DB     *gorm.DB
	Store  storage.ObjectStore

	Leads     *service.LeadService
	Assistant *service.AssistantService
	Blog      *service.BlogService
	Gallery   *service.GalleryService
	AIImages  *service.AIImageService

	mounts []router.StaticMount
	logger *zap.Logger
}

// New opens the catalog, selects the object store backend and builds every flow.
func New(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	gdb, err := openCatalog(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, DB: gdb, logger: logger}
	if err := a.build(ctx); err != nil {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("close catalog after failed start", zap.Error(closeErr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger, gdb := a.Config, a.logger, a.DB

	tables := db.Tables{BlogPosts: cfg.Catalog.BlogPostsTable, GalleryPhotos: cfg.Catalog.GalleryPhotosTable}
	if err := db.Migrate(gdb, tables); err != nil {
		return err
	}
	if err := a.buildStore(ctx); err != nil {
		return err
	}

	staticStore, err := storage.NewDiskStore(cfg.Storage.StaticUploadDir, cfg.Storage.StaticUploadURL)
	if err != nil {
		return err
	}
	a.mounts = append(a.mounts, router.StaticMount{URLPath: cfg.Storage.StaticUploadURL, Dir: cfg.Storage.StaticUploadDir})

	transformer := imaging.JPEGTransformer{}
	pipeline := service.NewIngestionPipeline(a.Store, transformer, logger.Named("ingest"))
	localPipeline := service.NewIngestionPipeline(staticStore, transformer, logger.Named("ingest-local"))

	var (
		chatModel  service.ChatModel
		imageModel service.ImageModel
	)
	if cfg.Model.APIKey != "" {
		gemini, err := service.NewGeminiModel(ctx, service.GeminiOptions{
			APIKey:     cfg.Model.APIKey,
			ChatModel:  cfg.Model.ChatModel,
			ImageModel: cfg.Model.ImageModel,
			BaseURL:    cfg.Model.BaseURL,
		}, logger.Named("gemini"))
		if err != nil {
			return err
		}
		chatModel, imageModel = gemini, gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat and image generation will return CONFIG_ERROR")
	}

	a.Leads = service.NewLeadService(cfg.CRM, logger.Named("leads"))
	a.Assistant = service.NewAssistantService(chatModel, logger.Named("assistant"))
	a.Blog = service.NewBlogService(
		catalog.NewGormTable[db.BlogPost](gdb, cfg.Catalog.BlogPostsTable),
		pipeline, localPipeline, cfg.Storage.BlogImagesBucket, logger.Named("blog"),
	)
	a.Gallery = service.NewGalleryService(
		catalog.NewGormTable[db.GalleryPhoto](gdb, cfg.Catalog.GalleryPhotosTable),
		pipeline, cfg.Storage.GalleryBucket, cfg.Storage.GalleryFolder, logger.Named("gallery"),
	)
	a.AIImages = service.NewAIImageService(imageModel, pipeline, cfg.Storage.AIPhotosBucket, logger.Named("ai-images"))
	return nil
}

func (a *App) buildStore(ctx context.Context) error {
	s := a.Config.Storage
	if s.AzureConnectionString != "" {
		azure, err := storage.NewAzureStore(s.AzureConnectionString, a.logger.Named("azure"))
		if err != nil {
			return err
		}
		if err := azure.EnsureBuckets(ctx, s.BlogImagesBucket, s.AIPhotosBucket, s.GalleryBucket); err != nil {
			return fmt.Errorf("ensure buckets: %w", err)
		}
		a.Store = azure
		return nil
	}

	disk, err := storage.NewDiskStore(s.LocalDir, s.LocalBaseURL)
	if err != nil {
		return err
	}
	a.logger.Info("using local object store", zap.String("dir", disk.Root()))
	a.Store = disk
	a.mounts = append(a.mounts, router.StaticMount{URLPath: s.LocalBaseURL, Dir: s.LocalDir})
	return nil
}

// Handler builds the gin engine serving every route.
func (a *App) Handler() http.Handler {
	api := handler.NewAPI(handler.Services{
		DB:        a.DB,
		Leads:     a.Leads,
		Assistant: a.Assistant,
		Blog:      a.Blog,
		Gallery:   a.Gallery,
		AIImages:  a.AIImages,
	}, a.logger.Named("http"))
	return router.SetupRouter(api, a.logger.Named("http"), a.mounts...)
}

// Close releases the catalog connection.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
