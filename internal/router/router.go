package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/yardline/internal/handler"
	"go.uber.org/zap"
)

// StaticMount serves a local directory under a URL prefix.
type StaticMount struct {
	URLPath string
	Dir     string
}

// SetupRouter 配置 Gin 引擎、全局中间件与 API 路由。
func SetupRouter(api *handler.API, logger *zap.Logger, mounts ...StaticMount) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(handler.RequestID())
	r.Use(ginzap.GinzapWithConfig(logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/healthz"},
		Context: func(c *gin.Context) []zap.Field {
			return []zap.Field{zap.String("request_id", c.Writer.Header().Get(handler.RequestIDHeader))}
		},
	}))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(cors.New(corsConfig()))

	// 静态文件服务
	for _, mount := range mounts {
		prefix := "/" + strings.Trim(mount.URLPath, "/")
		if prefix == "/" || strings.TrimSpace(mount.Dir) == "" {
			continue
		}
		r.Static(prefix, mount.Dir)
	}

	r.GET("/healthz", api.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/leads", api.SubmitLead)
		apiGroup.GET("/crm/columns", api.CRMColumns)
		apiGroup.POST("/chat", api.Chat)

		apiGroup.POST("/blog", api.CreateBlogPost)
		apiGroup.PUT("/blog", api.UpdateBlogPost)
		apiGroup.DELETE("/blog", api.DeleteBlogPost)
		apiGroup.POST("/blog/images", api.UploadBlogImage)
		apiGroup.POST("/blog/images/copy", api.CopyBlogImage)

		apiGroup.GET("/gallery", api.ListGalleryBucket)
		apiGroup.POST("/gallery/photos", api.AddGalleryPhoto)
		apiGroup.GET("/gallery/admin", api.ListGalleryCatalog)
		apiGroup.PATCH("/gallery/admin", api.UpdateGalleryPhoto)
		apiGroup.DELETE("/gallery/admin", api.DeleteGalleryPhoto)

		apiGroup.POST("/ai/images", api.GenerateImage)
		apiGroup.POST("/ai/images/import", api.ImportImage)

		apiGroup.POST("/migrations/gallery", api.MigrateGallery)
	}

	return r
}

// corsConfig 允许任意来源访问。
func corsConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins: true,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", handler.RequestIDHeader},
		ExposeHeaders: []string{handler.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
}
