package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/TopicRadar/internal/engine"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	extractSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"text":"正文"}`)
	}))
	t.Cleanup(extractSrv.Close)

	eng := engine.New(engine.Config{
		Platforms:    []string{"offline"},
		ExtractorURL: extractSrv.URL,
	})

	r := gin.New()
	NewServer(eng, nil).RegisterRoutes(r)
	return r
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing topic", `{"source":"rss"}`},
		{"blank topic", `{"topic":"   "}`},
		{"unknown source", `{"topic":"小鹏汽车","source":"bing"}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, w.Code)
		}
	}
}

func TestAnalyzeJinaModeWithoutStorage(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"topic":"量子计算","source":"jina","fast":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"topic":"量子计算"`) {
		t.Fatalf("report topic missing: %s", body)
	}
	if !strings.Contains(body, "wikipedia.org") {
		t.Fatalf("jina mode should produce wiki page items: %s", body)
	}
}

func TestStorageEndpointsWithoutStorage(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/v1/reports", "/api/v1/watch"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: status = %d, want 503", path, w.Code)
		}
	}
}
