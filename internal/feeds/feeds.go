package feeds

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/LJTian/TopicRadar/internal/cache"
	"github.com/LJTian/TopicRadar/internal/models"
	"github.com/LJTian/TopicRadar/internal/relevance"
	"github.com/mmcdole/gofeed"
)

// DefaultFeeds 是默认的资讯源列表（RSSHub 公共实例，免费但可能限流）。
// 控制源数量以保证整体响应速度。
var DefaultFeeds = []string{
	"https://rsshub.app/36kr/newsflashes",
	"https://rsshub.app/bbc/chinese",
	"https://rsshub.app/ithome/latest",
	"https://rsshub.app/cnbeta",
	"https://rsshub.app/solidot",
	"https://rsshub.app/zhihu/hotlist",
	"https://rsshub.app/thepaper/featured",
	"https://rsshub.app/ifeng/news",
}

const feedMaxResponseBytes = 4 << 20 // 4MB

// Aggregator 并发抓取一组 feed，按主题词集过滤条目并按 URL 去重。
// 同一实例可被多个 goroutine 同时调用，共享状态只有缓存。
type Aggregator struct {
	cache *cache.Cache[[]byte]
}

func NewAggregator(c *cache.Cache[[]byte]) *Aggregator {
	return &Aggregator{cache: c}
}

// Aggregate 拉取全部 feed 源（并发、缓存优先），按配置顺序逐源处理条目：
// 相关性过滤 → URL 去重 → 收满 maxItems 即停。
// 单个源失败只损失该源的贡献，不影响其它源。
// termSet 为空时不做相关性过滤，返回各源的最新条目。
func (a *Aggregator) Aggregate(ctx context.Context, termSet, feedURLs []string, timeout time.Duration, maxWorkers, maxItems int) []models.Candidate {
	if len(feedURLs) == 0 {
		feedURLs = DefaultFeeds
	}
	if maxWorkers <= 0 {
		maxWorkers = 6
	}
	if maxItems <= 0 {
		maxItems = 10
	}

	contents := a.fetchAll(ctx, feedURLs, timeout, maxWorkers)

	items := make([]models.Candidate, 0, maxItems)
	seen := make(map[string]struct{})

	for _, feedURL := range feedURLs {
		body := contents[feedURL]
		if len(body) == 0 {
			continue
		}
		// 每次解析用新 parser：gofeed.Parser 首次解析会惰性写入内部字段，
		// 跨 goroutine 共享同一实例会产生数据竞争
		feed, err := gofeed.NewParser().ParseString(string(body))
		if err != nil {
			log.Printf("feeds: parse %s: %v", feedURL, err)
			continue
		}
		sourceTitle := feed.Title
		if sourceTitle == "" {
			sourceTitle = "RSS"
		}

		for _, entry := range feed.Items {
			if entry == nil {
				continue
			}
			summary := entry.Description
			if summary == "" {
				summary = entry.Content
			}
			published := entry.Published
			if published == "" {
				published = entry.Updated
			}

			cand := models.Candidate{
				Title:       entry.Title,
				Summary:     summary,
				Source:      sourceTitle,
				URL:         entry.Link,
				PublishedAt: published,
			}
			if len(termSet) > 0 {
				rel := relevance.Score(entry.Title, summary, termSet)
				if !rel.Related {
					continue
				}
				cand.Relevance = &rel
			}
			if cand.URL != "" {
				if _, dup := seen[cand.URL]; dup {
					continue
				}
				seen[cand.URL] = struct{}{}
			}

			items = append(items, cand)
			if len(items) >= maxItems {
				return items
			}
		}
	}

	return items
}

// fetchAll 并发抓取全部 feed，结果按源 URL 回填到 map；
// 所有任务都会跑完，不因单个失败提前退出。
func (a *Aggregator) fetchAll(ctx context.Context, feedURLs []string, timeout time.Duration, maxWorkers int) map[string][]byte {
	results := make(map[string][]byte, len(feedURLs))

	var pending []string
	for _, u := range feedURLs {
		if body, ok := a.cache.Get(u); ok {
			results[u] = body
			continue
		}
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

			body, err := fetchBytes(ctx, u, timeout)
			if err != nil {
				log.Printf("feeds: fetch %s: %v", u, err)
				return
			}
			a.cache.Set(u, body)

			mu.Lock()
			results[u] = body
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	return results
}

func fetchBytes(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "TopicRadarBot/1.0")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, feedMaxResponseBytes))
}
