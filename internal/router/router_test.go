package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yardline/internal/handler"
)

func TestSetupRouterServesStaticUploads(t *testing.T) {
	gin.SetMode(gin.TestMode)

	uploadDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(uploadDir, "blog"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	fileContent := []byte("jpeg bytes")
	if err := os.WriteFile(filepath.Join(uploadDir, "blog", "blog-dozer-1.jpg"), fileContent, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	r := SetupRouter(handler.NewAPI(handler.Services{}, nil), nil, StaticMount{URLPath: "/images", Dir: uploadDir})

	req := httptest.NewRequest(http.MethodGet, "/images/blog/blog-dozer-1.jpg", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != string(fileContent) {
		t.Fatalf("unexpected body, got %q", rr.Body.String())
	}
}

func TestPreflightIsAnsweredForAnyOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(handler.NewAPI(handler.Services{}, nil), nil)

	for _, path := range []string{"/api/leads", "/api/gallery/admin", "/api/blog"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://www.yardline-rentals.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Fatalf("%s: expected status 204, got %d", path, rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("%s: expected wildcard origin, got %q", path, got)
		}
		if got := rr.Header().Get("Access-Control-Allow-Methods"); got == "" {
			t.Fatalf("%s: expected allowed methods header", path)
		}
	}
}

func TestRoutesReturnEnvelopeWhenUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(handler.NewAPI(handler.Services{}, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/crm/columns", nil)
	req.Header.Set("Origin", "https://www.yardline-rentals.example")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header on regular responses")
	}
	if rr.Header().Get(handler.RequestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(handler.NewAPI(handler.Services{}, nil), nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
