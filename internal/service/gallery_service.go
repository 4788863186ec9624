package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/catalog"
	"github.com/yardline/internal/db"
	"github.com/yardline/internal/imaging"
	"github.com/yardline/internal/storage"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	galleryKeyPrefix   = "gallery"
	bucketPhotoIDStart = 1000
	defaultCategory    = "Equipment"
)

var trailingTimestamp = regexp.MustCompile(`-\d+$`)

var galleryImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// categoryRules is evaluated in order; the first rule with a matching keyword wins.
var categoryRules = []struct {
	keywords []string
	category string
}{
	{[]string{"excavator"}, "Excavators"},
	{[]string{"articulated"}, "Articulated Trucks"},
	{[]string{"water", "truck"}, "Water Trucks"},
	{[]string{"loader"}, "Wheel Loaders"},
	{[]string{"skid", "steer"}, "Skid Steers"},
	{[]string{"roller"}, "Rollers"},
	{[]string{"dozer"}, "Dozers"},
}

// GalleryPhotoInput is the payload for adding a photo.
type GalleryPhotoInput struct {
	Image    string
	Alt      string
	Category string
}

// BucketPhoto is a synthetic gallery entry derived from bucket contents.
type BucketPhoto struct {
	ID       int    `json:"id"`
	Src      string `json:"src"`
	Alt      string `json:"alt"`
	Category string `json:"category"`
	Filename string `json:"filename"`
}

// GalleryService handles gallery uploads, catalog maintenance and bucket listings.
type GalleryService struct {
	photos   catalog.Table[db.GalleryPhoto]
	pipeline *IngestionPipeline
	bucket   string
	folder   string
	logger   *zap.Logger
}

// NewGalleryService creates a GalleryService over the gallery bucket and folder.
func NewGalleryService(photos catalog.Table[db.GalleryPhoto], pipeline *IngestionPipeline, bucket, folder string, logger *zap.Logger) *GalleryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GalleryService{
		photos:   photos,
		pipeline: pipeline,
		bucket:   bucket,
		folder:   strings.Trim(folder, "/"),
		logger:   logger,
	}
}

// AddPhoto stores an inline image with the gallery profile and catalogs it.
// The catalog insert is not transactional with the upload.
func (s *GalleryService) AddPhoto(ctx context.Context, input GalleryPhotoInput) (*db.GalleryPhoto, error) {
	alt := strings.TrimSpace(input.Alt)
	if alt == "" {
		return nil, apperr.Validation("alt text is required")
	}
	if strings.TrimSpace(input.Image) == "" {
		return nil, apperr.Validation("image is required")
	}
	if !strings.HasPrefix(strings.TrimSpace(input.Image), "data:") {
		return nil, apperr.Invalid("image must be a base64 data URL", nil)
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = InferCategory(alt)
	}

	stored, err := s.pipeline.Ingest(ctx, IngestRequest{
		Source:  input.Image,
		Profile: imaging.ProfileGallery,
		Bucket:  s.bucket,
		Folder:  s.folder,
		Prefix:  galleryKeyPrefix,
		Hint:    alt,
		Upsert:  true,
	})
	if err != nil {
		return nil, err
	}

	photo := &db.GalleryPhoto{
		Filename: stored.Key,
		Src:      stored.URL,
		Alt:      alt,
		Category: category,
		Visible:  true,
		Metadata: datatypes.JSONMap{"size": stored.Size, "source": "upload"},
	}
	if _, err := s.photos.Insert(ctx, photo); err != nil {
		s.logger.Error("catalog insert failed after upload", zap.String("key", stored.Key), zap.Error(err))
		return nil, err
	}
	return photo, nil
}

// ListCatalog returns every cataloged photo, lowest sort order first and newest first within a tie.
func (s *GalleryService) ListCatalog(ctx context.Context) ([]db.GalleryPhoto, error) {
	return s.photos.Select(ctx, catalog.Query{Order: []string{"sort_order asc", "id desc"}})
}

// UpdatePhoto applies known columns directly and merges every other key into metadata.
func (s *GalleryService) UpdatePhoto(ctx context.Context, id uint, fields map[string]any) (*db.GalleryPhoto, error) {
	if id == 0 {
		return nil, apperr.Validation("id is required")
	}

	updates := make(map[string]any)
	extra := make(map[string]any)
	for key, value := range fields {
		switch key {
		case "id":
			continue
		case "alt", "category":
			text, ok := value.(string)
			if !ok {
				return nil, apperr.Validation(fmt.Sprintf("%s must be a string", key))
			}
			updates[key] = strings.TrimSpace(text)
		case "visible":
			flag, ok := value.(bool)
			if !ok {
				return nil, apperr.Validation("visible must be a boolean")
			}
			updates["visible"] = flag
		case "sort_order", "sortOrder":
			order, ok := asInt(value)
			if !ok {
				return nil, apperr.Validation("sort_order must be an integer")
			}
			updates["sort_order"] = order
		default:
			extra[key] = value
		}
	}
	if len(updates) == 0 && len(extra) == 0 {
		return nil, apperr.Validation("no fields to update")
	}

	if len(extra) > 0 {
		current, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		merged := datatypes.JSONMap{}
		for key, value := range current.Metadata {
			merged[key] = value
		}
		for key, value := range extra {
			merged[key] = value
		}
		updates["metadata"] = merged
	}

	return s.photos.Update(ctx, id, updates)
}

// DeletePhoto removes the stored object (best effort) and then the catalog row.
func (s *GalleryService) DeletePhoto(ctx context.Context, id uint, filename string) error {
	if id == 0 {
		return apperr.Validation("id is required")
	}

	filename = strings.TrimSpace(filename)
	if filename == "" {
		current, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		filename = current.Filename
	}

	if err := s.pipeline.Store().Remove(ctx, s.bucket, filename); err != nil {
		s.logger.Warn("gallery object removal failed", zap.String("key", filename), zap.Error(err))
	}
	return s.photos.Delete(ctx, id)
}

// ListFromBucket derives a photo list from the gallery folder without touching the catalog.
func (s *GalleryService) ListFromBucket(ctx context.Context) ([]BucketPhoto, error) {
	objects, err := s.galleryObjects(ctx)
	if err != nil {
		return nil, err
	}

	photos := make([]BucketPhoto, 0, len(objects))
	for i, obj := range objects {
		name := path.Base(obj.Key)
		photos = append(photos, BucketPhoto{
			ID:       bucketPhotoIDStart + i,
			Src:      s.pipeline.Store().PublicURL(s.bucket, obj.Key),
			Alt:      DeriveAlt(name),
			Category: InferCategory(name),
			Filename: obj.Key,
		})
	}
	return photos, nil
}

// MigrateBucketToCatalog adds a catalog row for every gallery image that has none yet.
// Rows already in the catalog keep their edits. Returns how many rows were added.
func (s *GalleryService) MigrateBucketToCatalog(ctx context.Context) (int, error) {
	objects, err := s.galleryObjects(ctx)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, nil
	}

	rows := make([]*db.GalleryPhoto, 0, len(objects))
	for i, obj := range objects {
		name := path.Base(obj.Key)
		rows = append(rows, &db.GalleryPhoto{
			Filename:  obj.Key,
			Src:       s.pipeline.Store().PublicURL(s.bucket, obj.Key),
			Alt:       DeriveAlt(name),
			Category:  InferCategory(name),
			Visible:   true,
			SortOrder: i,
			Metadata:  datatypes.JSONMap{"size": obj.Size, "source": "migration"},
		})
	}
	inserted, err := s.photos.InsertMissing(ctx, rows, "filename")
	if err != nil {
		return 0, err
	}

	s.logger.Info("gallery migrated",
		zap.String("bucket", s.bucket),
		zap.Int("objects", len(rows)),
		zap.Int64("inserted", inserted),
	)
	return int(inserted), nil
}

func (s *GalleryService) galleryObjects(ctx context.Context) ([]storage.Object, error) {
	prefix := ""
	if s.folder != "" {
		prefix = s.folder + "/"
	}
	objects, err := s.pipeline.Store().List(ctx, s.bucket, storage.ListOptions{Prefix: prefix})
	if err != nil {
		return nil, apperr.Store("list gallery bucket failed", err)
	}

	images := objects[:0]
	for _, obj := range objects {
		if galleryImageExts[strings.ToLower(path.Ext(obj.Key))] {
			images = append(images, obj)
		}
	}
	return images, nil
}

func (s *GalleryService) get(ctx context.Context, id uint) (*db.GalleryPhoto, error) {
	rows, err := s.photos.Select(ctx, catalog.Query{Where: map[string]any{"id": id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("gallery photo %d not found", id))
	}
	return &rows[0], nil
}

// InferCategory maps a filename or caption onto the fixed category table.
func InferCategory(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category
			}
		}
	}
	return defaultCategory
}

// DeriveAlt turns gallery-cat-336-excavator-1712345678901.jpg into "Cat 336 Excavator".
func DeriveAlt(filename string) string {
	name := path.Base(filename)
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.TrimPrefix(name, galleryKeyPrefix+"-")
	name = trailingTimestamp.ReplaceAllString(name, "")

	words := strings.Fields(strings.ReplaceAll(name, "-", " "))
	for i, word := range words {
		first, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(first)) + word[size:]
	}
	return strings.Join(words, " ")
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}
