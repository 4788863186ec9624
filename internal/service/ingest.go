package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/imaging"
	"github.com/yardline/internal/storage"
	"go.uber.org/zap"
)

const maxFetchBytes = 20 << 20

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SourceKind classifies where an inbound image comes from.
type SourceKind int

const (
	SourceInline SourceKind = iota + 1
	SourceCanonical
	SourceLocalAsset
	SourceRemote
)

func (k SourceKind) String() string {
	switch k {
	case SourceInline:
		return "inline"
	case SourceCanonical:
		return "canonical"
	case SourceLocalAsset:
		return "local_asset"
	case SourceRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// IngestRequest describes one call site's use of the pipeline.
type IngestRequest struct {
	Source  string
	Profile imaging.Profile
	Bucket  string
	Folder  string
	Prefix  string
	Hint    string
	Upsert  bool
}

// IngestResult is the hosted asset. Copied is false when the source was returned unchanged.
type IngestResult struct {
	Kind       SourceKind
	URL        string
	Key        string
	Size       int
	Copied     bool
	LocalAsset bool
}

// IngestionPipeline 负责把内联或远程图片转换、上传并返回公开地址。
type IngestionPipeline struct {
	store       storage.ObjectStore
	transformer imaging.Transformer
	http        httpDoer
	now         func() time.Time
	logger      *zap.Logger
}

// NewIngestionPipeline wires a pipeline to a store and transformer.
func NewIngestionPipeline(store storage.ObjectStore, transformer imaging.Transformer, logger *zap.Logger) *IngestionPipeline {
	if transformer == nil {
		transformer = imaging.JPEGTransformer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionPipeline{
		store:       store,
		transformer: transformer,
		http:        &http.Client{Timeout: 30 * time.Second},
		now:         time.Now,
		logger:      logger,
	}
}

func (p *IngestionPipeline) SetHTTPClient(client httpDoer) {
	if client == nil {
		p.http = &http.Client{Timeout: 30 * time.Second}
		return
	}
	p.http = client
}

func (p *IngestionPipeline) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	p.now = now
}

// Store exposes the backing object store.
func (p *IngestionPipeline) Store() storage.ObjectStore {
	return p.store
}

// CanonicalPrefix is the public URL prefix of objects already hosted in bucket.
func (p *IngestionPipeline) CanonicalPrefix(bucket string) string {
	return strings.TrimRight(p.store.PublicURL(bucket, ""), "/") + "/"
}

// Classify decides how a source string is handled for the given target bucket.
func (p *IngestionPipeline) Classify(source, bucket string) (SourceKind, error) {
	trimmed := strings.TrimSpace(source)
	switch {
	case trimmed == "":
		return 0, apperr.Validation("image source is required")
	case strings.HasPrefix(trimmed, "data:"):
		return SourceInline, nil
	case strings.HasPrefix(trimmed, p.CanonicalPrefix(bucket)):
		return SourceCanonical, nil
	case strings.HasPrefix(trimmed, "/") && !strings.HasPrefix(trimmed, "//"):
		return SourceLocalAsset, nil
	}

	parsed, err := url.Parse(trimmed)
	if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != "" {
		return SourceRemote, nil
	}
	return 0, apperr.Invalid("image source must be a data URL or an http(s) URL", err)
}

// Ingest classifies req.Source and hosts it unless it is already canonical or a local asset.
func (p *IngestionPipeline) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	kind, err := p.Classify(req.Source, req.Bucket)
	if err != nil {
		return IngestResult{}, err
	}
	source := strings.TrimSpace(req.Source)

	var data []byte
	switch kind {
	case SourceCanonical:
		return IngestResult{Kind: kind, URL: source, Key: strings.TrimPrefix(source, p.CanonicalPrefix(req.Bucket))}, nil
	case SourceLocalAsset:
		return IngestResult{Kind: kind, URL: source, LocalAsset: true}, nil
	case SourceInline:
		data, _, err = imaging.DecodeDataURL(source)
	case SourceRemote:
		data, err = p.fetch(ctx, source)
	}
	if err != nil {
		return IngestResult{}, err
	}

	result, err := p.Put(ctx, data, req)
	if err != nil {
		return IngestResult{}, err
	}
	result.Kind = kind
	return result, nil
}

// Put transforms raw bytes and uploads them under a freshly generated key.
func (p *IngestionPipeline) Put(ctx context.Context, data []byte, req IngestRequest) (IngestResult, error) {
	transformed, err := p.transformer.Transform(data, req.Profile)
	if err != nil {
		return IngestResult{}, err
	}

	key := p.Key(req.Folder, req.Prefix, req.Hint)
	if err := p.store.Upload(ctx, req.Bucket, key, transformed, imaging.ContentType, req.Upsert); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return IngestResult{}, apperr.Conflict(fmt.Sprintf("object %s already exists", key), err)
		}
		return IngestResult{}, apperr.Upload(fmt.Sprintf("upload %s failed", key), err)
	}

	p.logger.Info("asset stored",
		zap.String("bucket", req.Bucket),
		zap.String("key", key),
		zap.String("profile", req.Profile.Name),
		zap.Int("bytes", len(transformed)),
	)
	return IngestResult{
		URL:    p.store.PublicURL(req.Bucket, key),
		Key:    key,
		Size:   len(transformed),
		Copied: true,
	}, nil
}

// Key builds <prefix>-<hint>-<unix ms>.jpg, optionally under folder.
func (p *IngestionPipeline) Key(folder, prefix, hint string) string {
	name := fmt.Sprintf("%s-%s-%d.jpg", prefix, SanitizeHint(hint), p.now().UnixMilli())
	if folder = strings.Trim(folder, "/"); folder != "" {
		return folder + "/" + name
	}
	return name
}

func (p *IngestionPipeline) fetch(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, apperr.Fetch("build download request failed", err)
	}
	req.Header.Set("User-Agent", "yardline-ingest/1.0")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, apperr.Fetch("download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Fetch(fmt.Sprintf("download returned %s", resp.Status), nil).
			WithDetails(fmt.Sprintf("GET %s: %d", source, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, apperr.Fetch("read download failed", err)
	}
	return data, nil
}

// SanitizeHint lowercases hint and replaces every non-alphanumeric rune with a hyphen.
func SanitizeHint(hint string) string {
	trimmed := strings.TrimSpace(hint)
	if trimmed == "" {
		return "image"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(trimmed) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('-')
	}
	return b.String()
}

// hintFromURL derives a hint from the last path segment of a URL, without extension.
func hintFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
