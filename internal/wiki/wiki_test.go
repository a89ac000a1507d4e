package wiki

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/TopicRadar/internal/cache"
)

func TestSearchParsesAndStripsMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("srsearch"); got != "小鹏汽车" {
			t.Errorf("srsearch = %q", got)
		}
		fmt.Fprint(w, `{"query":{"search":[
			{"title":"小鹏汽车","snippet":"<span class=\"searchmatch\">小鹏汽车</span>是一家电动车企"},
			{"title":"何小鹏","snippet":"创始人"}
		]}}`)
	}))
	defer srv.Close()

	c := NewClient(cache.New[int](time.Minute))
	c.SearchEndpoint = srv.URL

	items := c.Search(context.Background(), "小鹏汽车", 5)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Summary != "小鹏汽车是一家电动车企" {
		t.Fatalf("snippet markup not stripped: %q", items[0].Summary)
	}
	if items[0].Source != "Wikipedia" || items[0].URL == "" {
		t.Fatalf("candidate fields wrong: %+v", items[0])
	}
}

func TestSearchSoftFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(cache.New[int](time.Minute))
	c.SearchEndpoint = srv.URL

	if items := c.Search(context.Background(), "任意", 5); items != nil {
		t.Fatalf("failure should yield empty result, got %v", items)
	}
}

func TestPageviewsSumsAndCaches(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, `{"items":[{"views":100},{"views":250},{"views":50}]}`)
	}))
	defer srv.Close()

	c := NewClient(cache.New[int](time.Minute))
	c.PageviewsEndpoint = srv.URL

	total, ok := c.Pageviews(context.Background(), "小鹏汽车", 30, "zh")
	if !ok || total != 400 {
		t.Fatalf("Pageviews = (%d, %v), want (400, true)", total, ok)
	}

	// 第二次命中缓存
	c.Pageviews(context.Background(), "小鹏汽车", 30, "zh")
	if atomic.LoadInt64(&hits) != 1 {
		t.Fatalf("server hits = %d, want 1", hits)
	}
}
