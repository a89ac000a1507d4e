package engine

import (
	"context"
	"log"
	"net/url"
	"time"

	"github.com/LJTian/TopicRadar/internal/cache"
	"github.com/LJTian/TopicRadar/internal/feeds"
	"github.com/LJTian/TopicRadar/internal/metrics"
	"github.com/LJTian/TopicRadar/internal/models"
	"github.com/LJTian/TopicRadar/internal/reader"
	"github.com/LJTian/TopicRadar/internal/search"
	"github.com/LJTian/TopicRadar/internal/terms"
	"github.com/LJTian/TopicRadar/internal/trending"
	"github.com/LJTian/TopicRadar/internal/websearch"
	"github.com/LJTian/TopicRadar/internal/wiki"
)

const (
	defaultMaxItems = 12

	// 各类缓存的 TTL：feed/热榜 5 分钟，正文与浏览量 10 分钟
	feedCacheTTL    = 5 * time.Minute
	contentCacheTTL = 10 * time.Minute

	feedFetchTimeout = 3 * time.Second
	feedMaxWorkers   = 6

	// 正文增强预算：normal / fast 两档
	enrichTopN        = 10
	enrichTimeout     = 4 * time.Second
	enrichMaxChars    = 4000
	enrichFastTopN    = 6
	enrichFastTimeout = 3 * time.Second
	enrichFastChars   = 2500
	enrichMaxWorkers  = 6

	pageviewDays = 30
)

// Source 是素材获取模式。
type Source string

const (
	SourceRSS    Source = "rss"    // 默认：feed 聚合，维基联想扩展
	SourceWiki   Source = "wiki"   // 仅维基搜索
	SourceJina   Source = "jina"   // 仅构造维基页面 URL，正文交给抽取端
	SourceSerper Source = "serper" // 外部搜索 API
)

// Options 控制单次分析。
type Options struct {
	MaxItems int
	Source   Source
	Fast     bool
}

// Config 注入引擎的外部依赖配置。
type Config struct {
	FeedURLs     []string // 为空使用默认 feed 表
	Platforms    []string // 热榜平台白名单，为空使用默认
	ExtractorURL string   // 本地抽取边车，为空走公共 Jina Reader
	SerperAPIKey string
	MeiliURL     string
	MeiliAPIKey  string
}

// Engine 是主题分析的编排核心：
// 主题词扩展 → 素材聚合 → 正文增强 → 热榜匹配 → 指标汇总。
// 进程内只建一份，缓存实例随引擎创建并注入各组件。
type Engine struct {
	feedURLs []string

	aggregator *feeds.Aggregator
	trends     *trending.Matcher
	reader     *reader.Client
	wiki       *wiki.Client
	serper     *websearch.Client
	index      *search.Index // 未配置时为 nil
}

func New(cfg Config) *Engine {
	feedCache := cache.New[[]byte](feedCacheTTL)
	boardCache := cache.New[[]trending.BoardEntry](feedCacheTTL)
	contentCache := cache.New[string](contentCacheTTL)
	pvCache := cache.New[int](contentCacheTTL)

	return &Engine{
		feedURLs:   cfg.FeedURLs,
		aggregator: feeds.NewAggregator(feedCache),
		trends:     trending.NewMatcher(feedCache, boardCache, cfg.Platforms),
		reader:     reader.New(contentCache, cfg.ExtractorURL),
		wiki:       wiki.NewClient(pvCache),
		serper:     websearch.NewClient(cfg.SerperAPIKey),
		index:      search.NewIndex(cfg.MeiliURL, cfg.MeiliAPIKey),
	}
}

// Wiki 暴露内部的维基客户端，便于调整端点（测试用）。
func (e *Engine) Wiki() *wiki.Client { return e.wiki }

// Analyze 对主题做一轮完整分析，永不返回错误：
// 任何数据源失败都只会让结果变少，不会让调用方看到异常。
func (e *Engine) Analyze(ctx context.Context, topic string, opts Options) *Report {
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaultMaxItems
	}
	if opts.Source == "" {
		opts.Source = SourceRSS
	}

	items := e.gather(ctx, topic, opts)
	now := time.Now().Format("2006-01-02T15:04:05")
	e.enrich(ctx, items, now, opts.Fast)

	report := e.buildReport(ctx, topic, items, now)

	// 索引回写：便于后续同主题的高频检索，失败不影响本次结果
	if e.index != nil {
		if err := e.index.Upsert(items, topic); err != nil {
			log.Printf("engine: index upsert: %v", err)
		}
	}
	return report
}

// gather 按模式获取候选素材；已建索引时优先从索引短路。
func (e *Engine) gather(ctx context.Context, topic string, opts Options) []models.Candidate {
	if e.index != nil {
		if indexed := e.index.Search(topic, opts.MaxItems, topic); len(indexed) > 0 {
			return capItems(indexed, opts.MaxItems)
		}
	}

	switch opts.Source {
	case SourceWiki:
		return capItems(e.wiki.Search(ctx, topic, opts.MaxItems), opts.MaxItems)
	case SourceJina:
		return capItems(wikiPageCandidates(topic), opts.MaxItems)
	case SourceSerper:
		return capItems(e.serper.Search(ctx, topic, opts.MaxItems), opts.MaxItems)
	default:
		return e.gatherFromFeeds(ctx, topic, opts.MaxItems)
	}
}

// gatherFromFeeds 是默认模式：用维基联想词扩大覆盖，逐词聚合并按 URL 去重，
// 全部落空时退到维基搜索，再退到各 feed 的最新条目。
func (e *Engine) gatherFromFeeds(ctx context.Context, topic string, maxItems int) []models.Candidate {
	related := []string{topic}
	for _, w := range e.wiki.Search(ctx, topic, 5) {
		if len(related) >= 4 {
			break
		}
		if w.Title != "" && !containsString(related, w.Title) {
			related = append(related, w.Title)
		}
	}

	perTerm := maxItems / len(related)
	if perTerm < 2 {
		perTerm = 2
	}

	var aggregated []models.Candidate
	seen := make(map[string]struct{})
	for _, term := range related {
		termSet := terms.Expand(term)
		for _, it := range e.aggregator.Aggregate(ctx, termSet, e.feedURLs, feedFetchTimeout, feedMaxWorkers, perTerm) {
			if it.URL != "" {
				if _, dup := seen[it.URL]; dup {
					continue
				}
				seen[it.URL] = struct{}{}
			}
			aggregated = append(aggregated, it)
			if len(aggregated) >= maxItems {
				return aggregated
			}
		}
	}

	if len(aggregated) > 0 {
		return aggregated
	}
	if wikiItems := e.wiki.Search(ctx, topic, maxItems); len(wikiItems) > 0 {
		return capItems(wikiItems, maxItems)
	}
	// 最后兜底：不筛选，直接给各 feed 的最新条目
	return e.aggregator.Aggregate(ctx, nil, e.feedURLs, feedFetchTimeout, feedMaxWorkers, maxItems)
}

// enrich 补齐审计字段，并为前 N 条素材并发拉取正文。
func (e *Engine) enrich(ctx context.Context, items []models.Candidate, now string, fast bool) {
	for i := range items {
		items[i].FetchTime = now
		if items[i].URL != "" {
			if u, err := url.Parse(items[i].URL); err == nil {
				items[i].SourceDomain = u.Host
			}
		}
	}

	topN, timeout, maxChars := enrichTopN, enrichTimeout, enrichMaxChars
	if fast {
		topN, timeout, maxChars = enrichFastTopN, enrichFastTimeout, enrichFastChars
	}
	if topN > len(items) {
		topN = len(items)
	}

	var toFetch []string
	for _, it := range items[:topN] {
		if it.URL != "" && it.Content == "" {
			toFetch = append(toFetch, it.URL)
		}
	}
	if len(toFetch) == 0 {
		return
	}

	bulk := e.reader.FetchBulk(ctx, toFetch, timeout, maxChars, enrichMaxWorkers)
	for i := range items[:topN] {
		if items[i].Content == "" && items[i].URL != "" {
			if content := bulk[items[i].URL]; content != "" {
				items[i].Content = content
			}
		}
	}
}

func wikiPageCandidates(topic string) []models.Candidate {
	enc := url.PathEscape(topic)
	return []models.Candidate{
		{
			Title:  "维基百科：" + topic,
			Source: "Jina Reader",
			URL:    "https://zh.wikipedia.org/wiki/" + enc,
		},
		{
			Title:  "Wikipedia: " + topic,
			Source: "Jina Reader",
			URL:    "https://en.wikipedia.org/wiki/" + enc,
		},
	}
}

func capItems(items []models.Candidate, max int) []models.Candidate {
	if len(items) > max {
		return items[:max]
	}
	return items
}

func containsString(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

// buildReport 汇总趋势与统计指标。
func (e *Engine) buildReport(ctx context.Context, topic string, items []models.Candidate, now string) *Report {
	trend := e.trends.Presence(ctx, topic)
	overlaps := e.trends.Overlaps(trend)
	bundle := metrics.Aggregate(items)

	trendingCounts := make(map[string]int, len(trend))
	for platform, pr := range trend {
		trendingCounts[platform] = len(pr.MatchedItems)
	}
	// 微博两个热榜来源合并计数，避免只在综合榜出现时被误判缺席
	if _, ok := trendingCounts["weibo_hot"]; ok {
		trendingCounts["weibo"] += trendingCounts["weibo_hot"]
		delete(trendingCounts, "weibo_hot")
	}
	presentCount := 0
	for _, n := range trendingCounts {
		if n > 0 {
			presentCount++
		}
	}

	totalTextLen := 0
	for _, it := range items {
		switch {
		case it.Content != "":
			totalTextLen += len([]rune(it.Content))
		case it.Summary != "":
			totalTextLen += len([]rune(it.Summary))
		default:
			totalTextLen += len([]rune(it.Title))
		}
	}
	domains := make(map[string]struct{})
	for _, it := range items {
		if it.SourceDomain != "" {
			domains[it.SourceDomain] = struct{}{}
		}
	}

	m := Metrics{
		Bundle:            bundle,
		RSSMentions:       len(items),
		Trending:          trend,
		TrendingCounts:    trendingCounts,
		PlatformWhitelist: e.trends.Platforms(),
		PlatformCoverage: Coverage{
			PresentCount:     presentCount,
			TotalWhitelisted: len(e.trends.Platforms()),
		},
		Overlaps: overlaps,
	}
	if pv, ok := e.wiki.Pageviews(ctx, topic, pageviewDays, "zh"); ok {
		m.WikiPageviewsZH = &pv
	}
	if pv, ok := e.wiki.Pageviews(ctx, topic, pageviewDays, "en"); ok {
		m.WikiPageviewsEN = &pv
	}

	return &Report{
		Topic:       topic,
		GeneratedAt: now,
		Items:       items,
		Stats: Stats{
			ItemCount:    len(items),
			DomainCount:  len(domains),
			TotalTextLen: totalTextLen,
		},
		Metrics: m,
	}
}
