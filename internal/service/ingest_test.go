package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/imaging"
	"github.com/yardline/internal/storage"
)

const testStoreURL = "https://cdn.yardline.test/storage"

func newTestPipeline(store storage.ObjectStore) *IngestionPipeline {
	pipeline := NewIngestionPipeline(store, passthroughTransformer{}, nil)
	pipeline.SetClock(fixedClock(1712345678901))
	return pipeline
}

func TestClassifySources(t *testing.T) {
	pipeline := newTestPipeline(storage.NewMemoryStore(testStoreURL))

	tests := []struct {
		source string
		want   SourceKind
		code   apperr.Code
	}{
		{source: "data:image/png;base64,AAAA", want: SourceInline},
		{source: testStoreURL + "/blog-images/blog-a-1.jpg", want: SourceCanonical},
		{source: "/images/blog/default-header.jpg", want: SourceLocalAsset},
		{source: "https://example.com/photos/dozer.png", want: SourceRemote},
		{source: "http://example.com/x.jpg", want: SourceRemote},
		{source: "//example.com/x.jpg", code: apperr.CodeInvalid},
		{source: "ftp://example.com/x.jpg", code: apperr.CodeInvalid},
		{source: "   ", code: apperr.CodeValidation},
	}

	for _, tt := range tests {
		got, err := pipeline.Classify(tt.source, "blog-images")
		if tt.code != "" {
			if apperr.CodeOf(err) != tt.code {
				t.Fatalf("%q: expected %s, got %v", tt.source, tt.code, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tt.source, err)
		}
		if got != tt.want {
			t.Fatalf("%q: expected %s, got %s", tt.source, tt.want, got)
		}
	}
}

func TestIngestCanonicalSourceIsReturnedUnchanged(t *testing.T) {
	store := storage.NewMemoryStore(testStoreURL)
	pipeline := newTestPipeline(store)
	source := testStoreURL + "/blog-images/blog-wheel-loader-1700000000000.jpg"

	result, err := pipeline.Ingest(context.Background(), IngestRequest{
		Source: source, Profile: imaging.ProfileHeader, Bucket: "blog-images", Prefix: "blog", Upsert: true,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.URL != source || result.Copied || result.Kind != SourceCanonical {
		t.Fatalf("expected canonical passthrough, got %+v", result)
	}
	if result.Key != "blog-wheel-loader-1700000000000.jpg" {
		t.Fatalf("unexpected key %q", result.Key)
	}
	objects, _ := store.List(context.Background(), "blog-images", storage.ListOptions{})
	if len(objects) != 0 {
		t.Fatalf("expected no upload, found %d objects", len(objects))
	}
}

func TestIngestLocalAssetIsNotCopied(t *testing.T) {
	pipeline := newTestPipeline(storage.NewMemoryStore(testStoreURL))

	result, err := pipeline.Ingest(context.Background(), IngestRequest{
		Source: "/images/blog/skid-steer.jpg", Bucket: "blog-images", Prefix: "blog",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !result.LocalAsset || result.Copied || result.URL != "/images/blog/skid-steer.jpg" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestIngestInlineBuildsKeyAndURL(t *testing.T) {
	store := storage.NewMemoryStore(testStoreURL)
	pipeline := newTestPipeline(store)

	result, err := pipeline.Ingest(context.Background(), IngestRequest{
		Source: "data:image/png;base64,AAAA", Bucket: "blog-images", Folder: "gallery",
		Prefix: "gallery", Hint: "Cat 336 Excavator!", Upsert: true,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	wantKey := "gallery/gallery-cat-336-excavator--1712345678901.jpg"
	if result.Key != wantKey {
		t.Fatalf("expected key %q, got %q", wantKey, result.Key)
	}
	if result.URL != testStoreURL+"/blog-images/"+wantKey {
		t.Fatalf("unexpected url %q", result.URL)
	}
	if data, ok := store.Get("blog-images", wantKey); !ok || len(data) != 3 {
		t.Fatalf("expected stored payload, got %v %v", data, ok)
	}
}

func TestIngestRemoteFetchFailureIsFetchError(t *testing.T) {
	pipeline := newTestPipeline(storage.NewMemoryStore(testStoreURL))
	var calls int32
	pipeline.SetHTTPClient(fakeHTTPClient{calls: &calls, handler: func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected GET, got %s", r.Method)
		}
		return jsonResponse(http.StatusNotFound, `{}`), nil
	}})

	_, err := pipeline.Ingest(context.Background(), IngestRequest{
		Source: "https://example.com/missing.jpg", Bucket: "blog-images", Prefix: "blog",
	})
	if apperr.CodeOf(err) != apperr.CodeFetch {
		t.Fatalf("expected FETCH_ERROR, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}

	pipeline.SetHTTPClient(fakeHTTPClient{handler: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}})
	_, err = pipeline.Ingest(context.Background(), IngestRequest{
		Source: "https://example.com/down.jpg", Bucket: "blog-images", Prefix: "blog",
	})
	if apperr.CodeOf(err) != apperr.CodeFetch {
		t.Fatalf("expected FETCH_ERROR for transport failure, got %v", err)
	}
}

func TestPutConflictAndUploadFailures(t *testing.T) {
	store := storage.NewMemoryStore(testStoreURL)
	pipeline := newTestPipeline(store)
	req := IngestRequest{Bucket: "ai-generated-photos", Prefix: "ai", Hint: "dozer", Upsert: false}

	if _, err := pipeline.Put(context.Background(), []byte("one"), req); err != nil {
		t.Fatalf("first put: %v", err)
	}
	_, err := pipeline.Put(context.Background(), []byte("two"), req)
	if apperr.CodeOf(err) != apperr.CodeConflict || apperr.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}

	req.Upsert = true
	if _, err := pipeline.Put(context.Background(), []byte("three"), req); err != nil {
		t.Fatalf("upsert put: %v", err)
	}
	if data, _ := store.Get("ai-generated-photos", "ai-dozer-1712345678901.jpg"); string(data) != "three" {
		t.Fatalf("expected overwrite, got %q", data)
	}

	broken := newTestPipeline(&failingStore{MemoryStore: store, uploadErr: errors.New("quota exceeded")})
	_, err = broken.Put(context.Background(), []byte("x"), req)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Code != apperr.CodeUpload || !strings.Contains(appErr.Details, "quota exceeded") {
		t.Fatalf("expected UPLOAD_ERROR with details, got %v", err)
	}
}

func TestSanitizeHint(t *testing.T) {
	tests := map[string]string{
		"Cat 336 Excavator": "cat-336-excavator",
		"":                  "image",
		"Mini_Ex (2t)":      "mini-ex--2t-",
		"Grúa":              "gr-a",
	}
	for in, want := range tests {
		if got := SanitizeHint(in); got != want {
			t.Fatalf("SanitizeHint(%q) = %q, want %q", in, got, want)
		}
	}
}
