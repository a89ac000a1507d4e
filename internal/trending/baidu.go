package trending

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	baiduBoardURL      = "https://top.baidu.com/board?tab=realtime"
	baiduMaxBodyBytes  = 2 << 20 // 2MB
	boardFeedMaxBytes  = 4 << 20
	baiduScrapeTimeout = 5 * time.Second
)

// BaiduBoard 抓取百度实时热搜榜。百度不提供 RSS，只能解析板块页面；
// 页面结构可能调整，colly 选择器失败时回退到整页 goquery 解析。
type BaiduBoard struct{}

func (b *BaiduBoard) Fetch(ctx context.Context) ([]BoardEntry, error) {
	entries, err := b.fetchWithColly()
	if err == nil && len(entries) > 0 {
		return entries, nil
	}
	return b.fetchWithGoquery(ctx)
}

func (b *BaiduBoard) fetchWithColly() ([]BoardEntry, error) {
	c := colly.NewCollector(
		colly.AllowedDomains("top.baidu.com"),
		colly.UserAgent("TopicRadarBot/1.0"),
	)
	c.SetRequestTimeout(baiduScrapeTimeout)

	entries := make([]BoardEntry, 0, 50)

	c.OnHTML("div.category-wrap_iQLoo", func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText("div.c-single-text-ellipsis"))
		if title == "" {
			return
		}

		link := baiduBoardURL
		if href := e.ChildAttr("a", "href"); href != "" {
			if strings.HasPrefix(href, "http") {
				link = href
			} else {
				link = "https://top.baidu.com" + href
			}
		}
		entries = append(entries, BoardEntry{Title: title, Link: link})
	})

	if err := c.Visit(baiduBoardURL); err != nil {
		return nil, err
	}
	return entries, nil
}

// fetchWithGoquery 兜底：直接 GET 页面后用 goquery 提取标题块。
func (b *BaiduBoard) fetchWithGoquery(ctx context.Context) ([]BoardEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baiduBoardURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := &http.Client{Timeout: baiduScrapeTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, baiduMaxBodyBytes))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var entries []BoardEntry
	doc.Find("div.c-single-text-ellipsis").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Text())
		if title == "" || seen[title] {
			return
		}
		seen[title] = true

		link := baiduBoardURL
		if href, ok := s.Closest("a").Attr("href"); ok && href != "" {
			if strings.HasPrefix(href, "http") {
				link = href
			} else {
				link = "https://top.baidu.com" + href
			}
		}
		entries = append(entries, BoardEntry{Title: title, Link: link})
	})
	return entries, nil
}

// fetchBoardFeed 抓取 RSS 热榜源的原始字节。
func fetchBoardFeed(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
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
	return io.ReadAll(io.LimitReader(resp.Body, boardFeedMaxBytes))
}
