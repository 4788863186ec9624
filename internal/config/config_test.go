package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CONFIG_FILE", "PORT", "LISTEN_ADDR", "GIN_MODE", "LOG_LEVEL", "DATABASE_DSN",
		"AZURE_STORAGE_CONNECTION_STRING", "OBJECT_STORE_DIR", "OBJECT_STORE_BASE_URL",
		"BLOG_IMAGES_BUCKET", "AI_PHOTOS_BUCKET", "GALLERY_BUCKET", "GALLERY_FOLDER",
		"UPLOAD_DIR", "UPLOAD_URL_PATH", "BLOG_POSTS_TABLE", "GALLERY_PHOTOS_TABLE",
		"MONDAY_API_URL", "MONDAY_API_TOKEN", "MONDAY_BOARD_ID",
		"GEMINI_API_KEY", "GEMINI_CHAT_MODEL", "GEMINI_IMAGE_MODEL", "GEMINI_BASE_URL",
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
	// Run from an empty directory so a developer .env does not leak in.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected listen addr :8080, got %q", cfg.ListenAddr)
	}
	if cfg.Storage.BlogImagesBucket != "blog-images" || cfg.Storage.AIPhotosBucket != "ai-generated-photos" {
		t.Fatalf("unexpected bucket defaults: %+v", cfg.Storage)
	}
	if cfg.Catalog.BlogPostsTable != "blog_posts" || cfg.Catalog.GalleryPhotosTable != "gallery_photos" {
		t.Fatalf("unexpected table defaults: %+v", cfg.Catalog)
	}
	if cfg.CRM.Token != "" || cfg.Model.APIKey != "" {
		t.Fatal("credentials must default to empty")
	}
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "yardline.toml")
	content := `
port = "9000"
log_level = "DEBUG"

[storage]
gallery_folder = "/photos/"
static_upload_url = "/uploads/"

[crm]
board_id = "111"
token = "from-file"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MONDAY_API_TOKEN", "  from-env  ")
	t.Setenv("GALLERY_BUCKET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != ":9000" {
		t.Fatalf("expected :9000, got %q", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lower-cased log level, got %q", cfg.LogLevel)
	}
	if cfg.Storage.GalleryFolder != "photos" {
		t.Fatalf("expected trimmed folder, got %q", cfg.Storage.GalleryFolder)
	}
	if cfg.Storage.StaticUploadURL != "/uploads" {
		t.Fatalf("expected trailing slash removed, got %q", cfg.Storage.StaticUploadURL)
	}
	if cfg.CRM.BoardID != "111" {
		t.Fatalf("expected board id from file, got %q", cfg.CRM.BoardID)
	}
	if cfg.CRM.Token != "from-env" {
		t.Fatalf("expected env to override file, got %q", cfg.CRM.Token)
	}
	if cfg.Storage.GalleryBucket != "blog-images" {
		t.Fatalf("expected empty env value to fall back to default, got %q", cfg.Storage.GalleryBucket)
	}
}

func TestLoadRejectsBrokenConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("port = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected decode error")
	}
}
