package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yardline/internal/catalog"
	"github.com/yardline/internal/db"
	"github.com/yardline/internal/imaging"
	"github.com/yardline/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeHTTPClient struct {
	handler func(*http.Request) (*http.Response, error)
	calls   *int32
}

func (f fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if f.calls != nil {
		atomic.AddInt32(f.calls, 1)
	}
	if f.handler == nil {
		return nil, errors.New("no handler configured")
	}
	return f.handler(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func bytesResponse(status int, body []byte) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

// passthroughTransformer returns its input so tests can use payloads that are not real images.
type passthroughTransformer struct{}

func (passthroughTransformer) Transform(data []byte, _ imaging.Profile) ([]byte, error) {
	return data, nil
}

// failingStore wraps a MemoryStore and fails selected operations.
type failingStore struct {
	*storage.MemoryStore
	uploadErr error
	removeErr error
}

func (f *failingStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string, upsert bool) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	return f.MemoryStore.Upload(ctx, bucket, key, data, contentType, upsert)
}

func (f *failingStore) Remove(ctx context.Context, bucket string, keys ...string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.MemoryStore.Remove(ctx, bucket, keys...)
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func setupCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb, db.Tables{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func newPhotoTable(gdb *gorm.DB) *catalog.GormTable[db.GalleryPhoto] {
	return catalog.NewGormTable[db.GalleryPhoto](gdb, "gallery_photos")
}

func newPostTable(gdb *gorm.DB) *catalog.GormTable[db.BlogPost] {
	return catalog.NewGormTable[db.BlogPost](gdb, "blog_posts")
}

func samplePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 240, G: 180, B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
