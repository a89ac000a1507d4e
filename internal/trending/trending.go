package trending

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LJTian/TopicRadar/internal/cache"
	"github.com/LJTian/TopicRadar/internal/relevance"
	"github.com/LJTian/TopicRadar/internal/terms"
	"github.com/mmcdole/gofeed"
)

// BoardFeeds 各平台热榜的 RSSHub 源。微博的搜索热榜与综合热榜都保留，提高命中率。
var BoardFeeds = map[string]string{
	"weibo":       "https://rsshub.app/weibo/search/hot",
	"weibo_hot":   "https://rsshub.app/weibo/hot",
	"zhihu":       "https://rsshub.app/zhihu/hotlist",
	"bilibili":    "https://rsshub.app/bilibili/hot",
	"sina":        "https://rsshub.app/sina/news",
	"toutiao":     "https://rsshub.app/toutiao/today",
	"douyin":      "https://rsshub.app/douyin/hot",
	"xiaohongshu": "https://rsshub.app/xiaohongshu/explore",
}

// DefaultPlatforms 是默认的平台白名单顺序，决定结果遍历顺序。
var DefaultPlatforms = []string{
	"weibo", "weibo_hot", "zhihu", "bilibili",
	"sina", "toutiao", "douyin", "xiaohongshu", "baidu",
}

const (
	boardFetchTimeout = 5 * time.Second
	boardMaxWorkers   = 6
	maxOverlaps       = 8
)

// Match 是某平台热榜上与主题匹配的一条内容。
type Match struct {
	Platform string `json:"platform"`
	Title    string `json:"title"`
	Link     string `json:"link"`
}

// Presence 描述主题在单个平台热榜上的出现情况。
type Presence struct {
	Present      bool    `json:"present"`
	MatchedItems []Match `json:"matchedItems"`
}

// Overlap 是规范化后在 ≥2 个平台上同时出现的热点标题。
type Overlap struct {
	Title     string   `json:"title"`
	Platforms []string `json:"platforms"`
}

// BoardEntry 是热榜上的一条原始条目。
type BoardEntry struct {
	Title string
	Link  string
}

// boardScraper 用于不提供 RSS 的平台（如百度热搜），直接抓板块页面。
type boardScraper interface {
	Fetch(ctx context.Context) ([]BoardEntry, error)
}

// Matcher 抓取各平台热榜并与主题词集做匹配。
type Matcher struct {
	feedCache  *cache.Cache[[]byte]
	boardCache *cache.Cache[[]BoardEntry]
	platforms  []string
	boards     map[string]string
	scrapers   map[string]boardScraper

	// 可注入的抓取函数，测试用
	fetchFeed func(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

func NewMatcher(feedCache *cache.Cache[[]byte], boardCache *cache.Cache[[]BoardEntry], platforms []string) *Matcher {
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}
	return &Matcher{
		feedCache:  feedCache,
		boardCache: boardCache,
		platforms:  platforms,
		boards:     BoardFeeds,
		scrapers:   map[string]boardScraper{"baidu": &BaiduBoard{}},
		fetchFeed:  fetchBoardFeed,
	}
}

// Platforms 返回生效的平台白名单（配置顺序）。
func (m *Matcher) Platforms() []string { return m.platforms }

// Presence 对每个白名单平台抓取热榜并匹配主题，平台间并发、互不影响；
// 单个平台抓取失败视为该平台无匹配。
func (m *Matcher) Presence(ctx context.Context, topic string) map[string]Presence {
	termSet := terms.Expand(topic)
	result := make(map[string]Presence, len(m.platforms))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, boardMaxWorkers)
	)
	for _, platform := range m.platforms {
		wg.Add(1)
		sem <- struct{}{}
		go func(platform string) {
			defer wg.Done()
			defer func() { <-sem }()

			entries := m.boardEntries(ctx, platform)

			var matched []Match
			if len(termSet) > 0 {
				for _, e := range entries {
					if TitleMatches(e.Title, termSet) {
						matched = append(matched, Match{Platform: platform, Title: e.Title, Link: e.Link})
					}
				}
			}

			mu.Lock()
			result[platform] = Presence{Present: len(matched) > 0, MatchedItems: matched}
			mu.Unlock()
		}(platform)
	}
	wg.Wait()

	return result
}

// boardEntries 返回某平台热榜的全部条目，缓存优先。
func (m *Matcher) boardEntries(ctx context.Context, platform string) []BoardEntry {
	if entries, ok := m.boardCache.Get(platform); ok {
		return entries
	}

	var entries []BoardEntry
	if scraper, ok := m.scrapers[platform]; ok {
		got, err := scraper.Fetch(ctx)
		if err != nil {
			log.Printf("trending: scrape %s: %v", platform, err)
			return nil
		}
		entries = got
	} else {
		feedURL, ok := m.boards[platform]
		if !ok {
			return nil
		}
		body, err := m.fetchBoardBytes(ctx, feedURL)
		if err != nil {
			log.Printf("trending: fetch %s: %v", platform, err)
			return nil
		}
		// 每次解析用新 parser：gofeed.Parser 首次解析会惰性写入内部字段，
		// 平台间并发共享同一实例会产生数据竞争
		feed, err := gofeed.NewParser().ParseString(string(body))
		if err != nil {
			log.Printf("trending: parse %s: %v", platform, err)
			return nil
		}
		for _, it := range feed.Items {
			if it == nil {
				continue
			}
			entries = append(entries, BoardEntry{Title: it.Title, Link: it.Link})
		}
	}

	if len(entries) > 0 {
		m.boardCache.Set(platform, entries)
	}
	return entries
}

func (m *Matcher) fetchBoardBytes(ctx context.Context, feedURL string) ([]byte, error) {
	if body, ok := m.feedCache.Get(feedURL); ok {
		return body, nil
	}
	body, err := m.fetchFeed(ctx, feedURL, boardFetchTimeout)
	if err != nil {
		return nil, err
	}
	m.feedCache.Set(feedURL, body)
	return body, nil
}

// TitleMatches 判断热榜标题是否命中主题词集：
// 原文子串 → 规范化后子串 → 规范化模糊相似度 ≥0.8，三者任一命中即可。
func TitleMatches(title string, termSet []string) bool {
	titleLower := strings.ToLower(title)
	if titleLower == "" {
		return false
	}
	for _, term := range termSet {
		if term == "" {
			continue
		}
		if strings.Contains(titleLower, strings.ToLower(term)) {
			return true
		}
	}

	normTitle := terms.Normalize(title)
	for _, term := range termSet {
		nt := terms.Normalize(term)
		if nt == "" {
			continue
		}
		if strings.Contains(normTitle, nt) {
			return true
		}
		if relevance.Ratio(nt, normTitle) >= 0.8 {
			return true
		}
	}
	return false
}

// Overlaps 统计跨平台重合：规范化标题分组，保留出现在 ≥2 个平台的组，
// 按平台数降序取前 8 个；每组保留首个见到的原始标题，平台名按字典序排列。
func (m *Matcher) Overlaps(results map[string]Presence) []Overlap {
	type group struct {
		sample    string
		platforms map[string]struct{}
	}
	groups := make(map[string]*group)
	var order []string

	for _, platform := range m.platforms {
		pr, ok := results[platform]
		if !ok {
			continue
		}
		for _, it := range pr.MatchedItems {
			nt := terms.Normalize(it.Title)
			if nt == "" {
				continue
			}
			g, ok := groups[nt]
			if !ok {
				g = &group{sample: it.Title, platforms: make(map[string]struct{})}
				groups[nt] = g
				order = append(order, nt)
			}
			g.platforms[platform] = struct{}{}
		}
	}

	var overlaps []Overlap
	for _, nt := range order {
		g := groups[nt]
		if len(g.platforms) < 2 {
			continue
		}
		platforms := make([]string, 0, len(g.platforms))
		for p := range g.platforms {
			platforms = append(platforms, p)
		}
		sort.Strings(platforms)
		overlaps = append(overlaps, Overlap{Title: g.sample, Platforms: platforms})
	}

	sort.SliceStable(overlaps, func(i, j int) bool {
		return len(overlaps[i].Platforms) > len(overlaps[j].Platforms)
	})
	if len(overlaps) > maxOverlaps {
		overlaps = overlaps[:maxOverlaps]
	}
	return overlaps
}
