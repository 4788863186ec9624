package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultPath = "data/yardline.db"

// Tables names the two catalog tables. Empty names fall back to the model defaults.
type Tables struct {
	BlogPosts     string
	GalleryPhotos string
}

// Open 根据 DSN 选择驱动：postgres:// 与 postgresql:// 走 Postgres，其余视为 SQLite 文件路径。
func Open(dsn string) (*gorm.DB, error) {
	return OpenWithConfig(dsn, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}

// OpenWithConfig is Open with a caller-provided gorm config.
func OpenWithConfig(dsn string, config *gorm.Config) (*gorm.DB, error) {
	target := strings.TrimSpace(dsn)
	if target == "" {
		target = defaultPath
	}

	if isPostgresDSN(target) {
		gdb, err := gorm.Open(postgres.Open(target), config)
		if err != nil {
			return nil, fmt.Errorf("open postgres catalog: %w", err)
		}
		return gdb, nil
	}

	if err := prepareCatalogDir(target); err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(sqlite.Open(target), config)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	return gdb, nil
}

// Migrate 自动迁移博客与图库两张表，表名取自配置。
func Migrate(gdb *gorm.DB, tables Tables) error {
	blogTable := strings.TrimSpace(tables.BlogPosts)
	if blogTable == "" {
		blogTable = BlogPost{}.TableName()
	}
	galleryTable := strings.TrimSpace(tables.GalleryPhotos)
	if galleryTable == "" {
		galleryTable = GalleryPhoto{}.TableName()
	}

	if err := gdb.Table(blogTable).AutoMigrate(&BlogPost{}); err != nil {
		return fmt.Errorf("migrate %s: %w", blogTable, err)
	}
	if err := gdb.Table(galleryTable).AutoMigrate(&GalleryPhoto{}); err != nil {
		return fmt.Errorf("migrate %s: %w", galleryTable, err)
	}
	return nil
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// prepareCatalogDir creates the directory holding a SQLite catalog file, e.g. data/ for the
// default data/yardline.db. URI and in-memory DSNs are left to the driver.
func prepareCatalogDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, ":memory:") {
		return nil
	}
	file, _, _ := strings.Cut(dsn, "?")
	dir := filepath.Dir(file)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog directory %s: %w", dir, err)
	}
	return nil
}
