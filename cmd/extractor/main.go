package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/LJTian/TopicRadar/internal/reader"
)

const (
	navigateTimeout = 20 * time.Second
	maxCharsCap     = 8000
	defaultMaxChars = 4000
)

// 正文抽取边车：用 headless 浏览器渲染页面后提取正文，
// 供主进程在公共 Jina Reader 不可用或被源站屏蔽时使用。
func main() {
	// 整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: warmup chromedp failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/extract", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req reader.ExtractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, reader.ExtractResponse{OK: false, Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, reader.ExtractResponse{OK: false, Error: "url is required"})
			return
		}
		if req.MaxChars <= 0 || req.MaxChars > maxCharsCap {
			req.MaxChars = defaultMaxChars
		}

		// 每个请求用独立的超时上下文，复用同一个 browserCtx
		ctx, cancel := context.WithTimeout(browserCtx, navigateTimeout)
		defer cancel()

		var text string
		err := chromedp.Run(ctx,
			chromedp.Navigate(req.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(extractJS(), &text),
		)
		if err != nil {
			log.Printf("extract error: %v (url=%s)", err, req.URL)
			writeJSON(w, http.StatusOK, reader.ExtractResponse{OK: false, Error: err.Error()})
			return
		}

		text = trimWhitespace(text)
		if text == "" {
			writeJSON(w, http.StatusOK, reader.ExtractResponse{OK: false, Error: "empty content"})
			return
		}

		// rune 级截断，避免中文被截成半个字符
		rs := []rune(text)
		if len(rs) > req.MaxChars {
			text = string(rs[:req.MaxChars])
		}

		writeJSON(w, http.StatusOK, reader.ExtractResponse{OK: true, Text: text})
	})

	addr := ":" + getEnv("EXTRACTOR_PORT", "4000")
	log.Printf("extractor listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// extractJS 返回一段 JS，用于在页面中提取正文文本。
// 优先在常见正文容器中找段落，找不到时再全页兜底。
func extractJS() string {
	return `(function () {
  function getTextFromSelector(selector) {
    var el = document.querySelector(selector);
    if (!el) return "";
    return el.innerText || "";
  }

  var selectors = [
    "article",
    "div.article-content",
    "div#article-content",
    "div#content",
    "div.main-content",
    "div.content",
    "div.article",
    ".rich_media_content"
  ];

  var text = "";
  for (var i = 0; i < selectors.length; i++) {
    text = getTextFromSelector(selectors[i]).trim();
    if (text && text.length > 200) {
      break;
    }
  }

  if (!text || text.length < 200) {
    // 兜底：遍历全页较长段落
    var nodes = Array.prototype.slice.call(document.querySelectorAll("p, div"));
    var pieces = [];
    for (var j = 0; j < nodes.length; j++) {
      var t = (nodes[j].innerText || "").trim();
      if (t.length >= 40) {
        pieces.push(t);
      }
      if (pieces.join("\\n\\n").length > 4000) break;
    }
    text = pieces.join("\\n\\n");
  }

  return (text || "").replace(/\\s+\\n/g, "\\n").trim();
})();`
}

func trimWhitespace(s string) string {
	// 简单的空白清理，避免过多连续空行
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
