package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/LJTian/TopicRadar/internal/cache"
)

const (
	// 公共 Jina Reader 端点：对任意 URL 返回抽取后的纯文本，无需密钥
	jinaPrefix = "https://r.jina.ai/"

	maxResponseBytes = 1 << 20 // 1MB
)

// Client 负责素材正文抽取：优先走本地 extractor 边车，未配置时走公共 Jina Reader。
// 所有抓取先查缓存；只有真正成功的结果才会写入缓存。
type Client struct {
	cache        *cache.Cache[string]
	extractorURL string
}

func New(c *cache.Cache[string], extractorURL string) *Client {
	return &Client{cache: c, extractorURL: strings.TrimRight(extractorURL, "/")}
}

// FetchOne 抓取单个 URL 的正文，按 rune 截断到 maxChars。
// 任何失败（超时、非 2xx、网络错误）返回 ("", false)，单次尝试不重试。
func (r *Client) FetchOne(ctx context.Context, target string, timeout time.Duration, maxChars int) (string, bool) {
	if target == "" {
		return "", false
	}
	if cached, ok := r.cache.Get(target); ok {
		return cached, true
	}

	text, ok := r.fetch(ctx, target, timeout, maxChars)
	if !ok {
		return "", false
	}
	r.cache.Set(target, text)
	return text, true
}

// FetchBulk 并发抓取一批 URL，返回的 map 覆盖全部入参：
// 抓取失败的 URL 映射为空字符串，批次永不因单条失败而中断。
func (r *Client) FetchBulk(ctx context.Context, urls []string, timeout time.Duration, maxChars, maxWorkers int) map[string]string {
	results := make(map[string]string, len(urls))
	if maxWorkers <= 0 {
		maxWorkers = 6
	}

	// 先吃掉缓存命中，剩余的才进工作池
	var pending []string
	for _, u := range urls {
		if u == "" {
			results[u] = ""
			continue
		}
		if cached, ok := r.cache.Get(u); ok {
			results[u] = cached
			continue
		}
		results[u] = ""
		pending = append(pending, u)
	}
	if len(pending) == 0 {
		return results
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, maxWorkers)
	)
	for _, u := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }()

			text, ok := r.fetch(ctx, u, timeout, maxChars)
			if !ok {
				return
			}
			r.cache.Set(u, text)

			mu.Lock()
			results[u] = text
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	return results
}

func (r *Client) fetch(ctx context.Context, target string, timeout time.Duration, maxChars int) (string, bool) {
	if r.extractorURL != "" {
		return r.fetchViaExtractor(ctx, target, timeout, maxChars)
	}
	return r.fetchViaJina(ctx, target, timeout, maxChars)
}

func (r *Client) fetchViaJina(ctx context.Context, target string, timeout time.Duration, maxChars int) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jinaPrefix+quoteURL(target), nil)
	if err != nil {
		return "", false
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("reader: fetch %s: %v", target, err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("reader: fetch %s: status %d", target, resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", false
	}
	return truncateRunes(text, maxChars), true
}

// ExtractRequest / ExtractResponse 是 extractor 边车的 JSON 协议。
type ExtractRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type ExtractResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (r *Client) fetchViaExtractor(ctx context.Context, target string, timeout time.Duration, maxChars int) (string, bool) {
	payload, err := json.Marshal(ExtractRequest{URL: target, MaxChars: maxChars})
	if err != nil {
		return "", false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.extractorURL+"/extract", bytes.NewReader(payload))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("reader: extract %s: %v", target, err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("reader: extract %s: status %d", target, resp.StatusCode)
		return "", false
	}

	var out ExtractResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", false
	}
	if !out.OK || out.Text == "" {
		return "", false
	}
	return truncateRunes(out.Text, maxChars), true
}

// quoteURL 按字节做百分号编码，保留 URL 结构字符（/:?&=%#），
// 与 Jina Reader 期望的目标地址格式一致。
func quoteURL(s string) string {
	const safe = "/:?&=%#"
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		case strings.IndexByte(safe, c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xf])
		}
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
