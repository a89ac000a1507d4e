package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LJTian/TopicRadar/internal/cache"
	"github.com/LJTian/TopicRadar/internal/models"
)

const (
	defaultSearchEndpoint    = "https://zh.wikipedia.org/w/api.php"
	defaultPageviewsEndpoint = "https://wikimedia.org/api/rest_v1/metrics/pageviews/per-article"

	requestTimeout   = 6 * time.Second
	maxResponseBytes = 1 << 20
)

// Client 访问维基百科搜索 API 与 Wikimedia 浏览量 API。
// 端点可覆盖，便于测试。
type Client struct {
	SearchEndpoint    string
	PageviewsEndpoint string

	pvCache *cache.Cache[int]
}

func NewClient(pvCache *cache.Cache[int]) *Client {
	return &Client{
		SearchEndpoint:    defaultSearchEndpoint,
		PageviewsEndpoint: defaultPageviewsEndpoint,
		pvCache:           pvCache,
	}
}

// Search 用中文维基搜索 API 查询页面，返回统一的素材结构。
// 失败时返回空列表。
func (c *Client) Search(ctx context.Context, query string, num int) []models.Candidate {
	if query == "" {
		return nil
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("srlimit", fmt.Sprintf("%d", num))
	params.Set("utf8", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SearchEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil
	}

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("wiki: search %q: %v", query, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("wiki: search %q: status %d", query, resp.StatusCode)
		return nil
	}

	var data struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&data); err != nil {
		log.Printf("wiki: search %q: decode: %v", query, err)
		return nil
	}

	items := make([]models.Candidate, 0, len(data.Query.Search))
	for _, r := range data.Query.Search {
		if len(items) >= num {
			break
		}
		items = append(items, models.Candidate{
			Title:   r.Title,
			Summary: stripSnippetMarkup(r.Snippet),
			Source:  "Wikipedia",
			URL:     "https://zh.wikipedia.org/wiki/" + url.PathEscape(r.Title),
		})
	}
	return items
}

// stripSnippetMarkup 去掉搜索摘要中的高亮标签。
func stripSnippetMarkup(s string) string {
	s = strings.ReplaceAll(s, `<span class="searchmatch">`, "")
	return strings.ReplaceAll(s, "</span>", "")
}

// Pageviews 返回某词条近 days 天的浏览量总和（Wikimedia Pageviews API）。
// 失败返回 (0, false)；成功结果缓存，避免重复统计请求。
func (c *Client) Pageviews(ctx context.Context, title string, days int, lang string) (int, bool) {
	if title == "" {
		return 0, false
	}

	end := time.Now().UTC().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -days)
	project := lang + ".wikipedia"
	article := url.PathEscape(title)

	cacheKey := fmt.Sprintf("pageviews:%s:%s:%s:%s",
		project, article, start.Format("20060102"), end.Format("20060102"))
	if total, ok := c.pvCache.Get(cacheKey); ok {
		return total, true
	}

	endpoint := fmt.Sprintf("%s/%s/all-access/user/%s/daily/%s/%s",
		c.PageviewsEndpoint, project, article,
		start.Format("20060102"), end.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, false
	}

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("wiki: pageviews %q: %v", title, err)
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false
	}

	var data struct {
		Items []struct {
			Views int `json:"views"`
		} `json:"items"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&data); err != nil {
		return 0, false
	}

	total := 0
	for _, it := range data.Items {
		total += it.Views
	}
	c.pvCache.Set(cacheKey, total)
	return total, true
}
