package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的全部配置，由 main 构造后注入各个服务。
type AppConfig struct {
	ListenAddr  string `toml:"listen_addr"`
	Port        string `toml:"port"`
	GinMode     string `toml:"gin_mode"`
	LogLevel    string `toml:"log_level"`
	DatabaseDSN string `toml:"database_dsn"`

	Storage StorageConfig `toml:"storage"`
	Catalog CatalogConfig `toml:"catalog"`
	CRM     CRMConfig     `toml:"crm"`
	Model   ModelConfig   `toml:"model"`
}

// StorageConfig names the buckets and the backend that holds them.
type StorageConfig struct {
	AzureConnectionString string `toml:"azure_connection_string"`
	LocalDir              string `toml:"local_dir"`
	LocalBaseURL          string `toml:"local_base_url"`
	BlogImagesBucket      string `toml:"blog_images_bucket"`
	AIPhotosBucket        string `toml:"ai_photos_bucket"`
	GalleryBucket         string `toml:"gallery_bucket"`
	GalleryFolder         string `toml:"gallery_folder"`
	StaticUploadDir       string `toml:"static_upload_dir"`
	StaticUploadURL       string `toml:"static_upload_url"`
}

// CatalogConfig holds the table names; they must stay stable across deploys.
type CatalogConfig struct {
	BlogPostsTable     string `toml:"blog_posts_table"`
	GalleryPhotosTable string `toml:"gallery_photos_table"`
}

// CRMConfig configures the monday.com board that receives leads.
type CRMConfig struct {
	APIURL  string `toml:"api_url"`
	Token   string `toml:"token"`
	BoardID string `toml:"board_id"`
}

// ModelConfig configures the Gemini models behind chat and image generation.
type ModelConfig struct {
	APIKey     string `toml:"api_key"`
	ChatModel  string `toml:"chat_model"`
	ImageModel string `toml:"image_model"`
	// BaseURL overrides the Gemini endpoint, for proxies and tests.
	BaseURL string `toml:"base_url"`
}

// Defaults returns the configuration used when nothing else is provided.
func Defaults() AppConfig {
	return AppConfig{
		Port:        "8080",
		GinMode:     "release",
		LogLevel:    "info",
		DatabaseDSN: "data/yardline.db",
		Storage: StorageConfig{
			LocalDir:         "data/objects",
			LocalBaseURL:     "/objects",
			BlogImagesBucket: "blog-images",
			AIPhotosBucket:   "ai-generated-photos",
			GalleryBucket:    "blog-images",
			GalleryFolder:    "gallery",
			StaticUploadDir:  "web/static/images",
			StaticUploadURL:  "/images",
		},
		Catalog: CatalogConfig{
			BlogPostsTable:     "blog_posts",
			GalleryPhotosTable: "gallery_photos",
		},
		CRM: CRMConfig{
			APIURL: "https://api.monday.com",
		},
		Model: ModelConfig{
			ChatModel:  "gemini-2.5-flash",
			ImageModel: "imagen-4.0-generate-001",
		},
	}
}

// Load 依次合并默认值、CONFIG_FILE 指向的 TOML 文件与环境变量（含 .env）。
func Load() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.normalize()
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.ListenAddr = envOr("LISTEN_ADDR", cfg.ListenAddr)
	cfg.GinMode = envOr("GIN_MODE", cfg.GinMode)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseDSN = envOr("DATABASE_DSN", cfg.DatabaseDSN)

	cfg.Storage.AzureConnectionString = envOr("AZURE_STORAGE_CONNECTION_STRING", cfg.Storage.AzureConnectionString)
	cfg.Storage.LocalDir = envOr("OBJECT_STORE_DIR", cfg.Storage.LocalDir)
	cfg.Storage.LocalBaseURL = envOr("OBJECT_STORE_BASE_URL", cfg.Storage.LocalBaseURL)
	cfg.Storage.BlogImagesBucket = envOr("BLOG_IMAGES_BUCKET", cfg.Storage.BlogImagesBucket)
	cfg.Storage.AIPhotosBucket = envOr("AI_PHOTOS_BUCKET", cfg.Storage.AIPhotosBucket)
	cfg.Storage.GalleryBucket = envOr("GALLERY_BUCKET", cfg.Storage.GalleryBucket)
	cfg.Storage.GalleryFolder = envOr("GALLERY_FOLDER", cfg.Storage.GalleryFolder)
	cfg.Storage.StaticUploadDir = envOr("UPLOAD_DIR", cfg.Storage.StaticUploadDir)
	cfg.Storage.StaticUploadURL = envOr("UPLOAD_URL_PATH", cfg.Storage.StaticUploadURL)

	cfg.Catalog.BlogPostsTable = envOr("BLOG_POSTS_TABLE", cfg.Catalog.BlogPostsTable)
	cfg.Catalog.GalleryPhotosTable = envOr("GALLERY_PHOTOS_TABLE", cfg.Catalog.GalleryPhotosTable)

	cfg.CRM.APIURL = envOr("MONDAY_API_URL", cfg.CRM.APIURL)
	cfg.CRM.Token = envOr("MONDAY_API_TOKEN", cfg.CRM.Token)
	cfg.CRM.BoardID = envOr("MONDAY_BOARD_ID", cfg.CRM.BoardID)

	cfg.Model.APIKey = envOr("GEMINI_API_KEY", cfg.Model.APIKey)
	cfg.Model.ChatModel = envOr("GEMINI_CHAT_MODEL", cfg.Model.ChatModel)
	cfg.Model.ImageModel = envOr("GEMINI_IMAGE_MODEL", cfg.Model.ImageModel)
	cfg.Model.BaseURL = envOr("GEMINI_BASE_URL", cfg.Model.BaseURL)
}

// normalize 去除首尾空白，并为被清空的项回填默认值。
func (c *AppConfig) normalize() {
	defaults := Defaults()

	c.Port = orDefault(c.Port, defaults.Port)
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%s", c.Port)
	}
	c.GinMode = orDefault(c.GinMode, defaults.GinMode)
	c.LogLevel = strings.ToLower(orDefault(c.LogLevel, defaults.LogLevel))
	c.DatabaseDSN = orDefault(c.DatabaseDSN, defaults.DatabaseDSN)

	s := &c.Storage
	s.AzureConnectionString = strings.TrimSpace(s.AzureConnectionString)
	s.LocalDir = orDefault(s.LocalDir, defaults.Storage.LocalDir)
	s.LocalBaseURL = strings.TrimRight(orDefault(s.LocalBaseURL, defaults.Storage.LocalBaseURL), "/")
	s.BlogImagesBucket = orDefault(s.BlogImagesBucket, defaults.Storage.BlogImagesBucket)
	s.AIPhotosBucket = orDefault(s.AIPhotosBucket, defaults.Storage.AIPhotosBucket)
	s.GalleryBucket = orDefault(s.GalleryBucket, defaults.Storage.GalleryBucket)
	s.GalleryFolder = strings.Trim(orDefault(s.GalleryFolder, defaults.Storage.GalleryFolder), "/")
	s.StaticUploadDir = orDefault(s.StaticUploadDir, defaults.Storage.StaticUploadDir)
	s.StaticUploadURL = strings.TrimRight(orDefault(s.StaticUploadURL, defaults.Storage.StaticUploadURL), "/")

	c.Catalog.BlogPostsTable = orDefault(c.Catalog.BlogPostsTable, defaults.Catalog.BlogPostsTable)
	c.Catalog.GalleryPhotosTable = orDefault(c.Catalog.GalleryPhotosTable, defaults.Catalog.GalleryPhotosTable)

	c.CRM.APIURL = strings.TrimRight(orDefault(c.CRM.APIURL, defaults.CRM.APIURL), "/")
	c.CRM.Token = strings.TrimSpace(c.CRM.Token)
	c.CRM.BoardID = strings.TrimSpace(c.CRM.BoardID)

	c.Model.APIKey = strings.TrimSpace(c.Model.APIKey)
	c.Model.ChatModel = orDefault(c.Model.ChatModel, defaults.Model.ChatModel)
	c.Model.ImageModel = orDefault(c.Model.ImageModel, defaults.Model.ImageModel)
	c.Model.BaseURL = strings.TrimSpace(c.Model.BaseURL)
}

func envOr(key, current string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return current
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
