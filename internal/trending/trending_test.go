package trending

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/TopicRadar/internal/cache"
)

func TestTitleMatchesVariants(t *testing.T) {
	termSet := []string{"小鹏汽车", "xpeng"}

	// 原文子串
	if !TitleMatches("小鹏汽车新车发布", termSet) {
		t.Fatalf("raw substring should match")
	}
	// 规范化后子串（话题符与空格差异）
	if !TitleMatches("#小鹏 汽车# 登上热搜", termSet) {
		t.Fatalf("normalized substring should match")
	}
	// 大小写不敏感
	if !TitleMatches("XPeng hits record deliveries", termSet) {
		t.Fatalf("case-insensitive substring should match")
	}
	if TitleMatches("完全无关的热搜标题", termSet) {
		t.Fatalf("unrelated title should not match")
	}
	if TitleMatches("", termSet) {
		t.Fatalf("empty title should not match")
	}
}

func newTestMatcher(platforms []string, bodies map[string]string) *Matcher {
	m := NewMatcher(cache.New[[]byte](time.Minute), cache.New[[]BoardEntry](time.Minute), platforms)
	m.scrapers = map[string]boardScraper{}
	m.boards = map[string]string{}
	for p := range bodies {
		m.boards[p] = "https://boards.test/" + p
	}
	m.fetchFeed = func(_ context.Context, url string, _ time.Duration) ([]byte, error) {
		for p, body := range bodies {
			if url == "https://boards.test/"+p {
				return []byte(body), nil
			}
		}
		return nil, fmt.Errorf("status 503")
	}
	return m
}

func boardXML(titles ...string) string {
	body := `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>board</title>`
	for i, title := range titles {
		body += fmt.Sprintf(`<item><title>%s</title><link>https://board.test/%d</link></item>`, title, i)
	}
	return body + `</channel></rss>`
}

func TestPresenceMatchesPerPlatform(t *testing.T) {
	m := newTestMatcher([]string{"weibo", "zhihu", "douyin"}, map[string]string{
		"weibo": boardXML("小鹏汽车发布新车", "其它热搜"),
		"zhihu":  boardXML("如何看待小鹏汽车新车型"),
		"douyin": "<<< not a feed", // 源返回脏数据
	})

	got := m.Presence(context.Background(), "小鹏汽车")

	if len(got) != 3 {
		t.Fatalf("presence should cover every whitelisted platform, got %d", len(got))
	}
	if !got["weibo"].Present || len(got["weibo"].MatchedItems) != 1 {
		t.Fatalf("weibo presence wrong: %+v", got["weibo"])
	}
	if !got["zhihu"].Present {
		t.Fatalf("zhihu presence wrong: %+v", got["zhihu"])
	}
	if got["douyin"].Present {
		t.Fatalf("failed source must degrade to absent: %+v", got["douyin"])
	}
}

func TestPresenceConcurrentCalls(t *testing.T) {
	platforms := []string{"weibo", "zhihu", "bilibili", "sina", "toutiao", "douyin"}
	bodies := make(map[string]string, len(platforms))
	for _, p := range platforms {
		bodies[p] = boardXML("小鹏汽车相关热点", "其它热搜")
	}

	// 负 TTL 让缓存永不命中，每次调用都走完整的抓取+解析路径
	m := NewMatcher(cache.New[[]byte](-time.Second), cache.New[[]BoardEntry](-time.Second), platforms)
	m.scrapers = map[string]boardScraper{}
	m.boards = map[string]string{}
	for p := range bodies {
		m.boards[p] = "https://boards.test/" + p
	}
	m.fetchFeed = func(_ context.Context, url string, _ time.Duration) ([]byte, error) {
		for p, body := range bodies {
			if url == "https://boards.test/"+p {
				return []byte(body), nil
			}
		}
		return nil, fmt.Errorf("status 503")
	}

	// 调度器会让多轮 Presence 同时进行，平台解析再各自并发；-race 下验证无竞争
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				got := m.Presence(context.Background(), "小鹏汽车")
				if len(got) != len(platforms) {
					t.Errorf("presence covered %d platforms, want %d", len(got), len(platforms))
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestOverlapsRequireTwoPlatforms(t *testing.T) {
	m := newTestMatcher([]string{"weibo", "zhihu", "bilibili"}, nil)

	results := map[string]Presence{
		"weibo": {Present: true, MatchedItems: []Match{
			{Platform: "weibo", Title: "#小鹏汽车发布新车#", Link: "w1"},
			{Platform: "weibo", Title: "仅微博出现的热点", Link: "w2"},
		}},
		"zhihu": {Present: true, MatchedItems: []Match{
			{Platform: "zhihu", Title: "小鹏汽车发布新车", Link: "z1"},
			{Platform: "zhihu", Title: "两平台热点", Link: "z2"},
		}},
		"bilibili": {Present: true, MatchedItems: []Match{
			{Platform: "bilibili", Title: "小鹏汽车 发布新车", Link: "b1"},
			{Platform: "bilibili", Title: "两平台热点", Link: "b2"},
		}},
	}

	overlaps := m.Overlaps(results)

	if len(overlaps) != 2 {
		t.Fatalf("overlaps = %d, want 2", len(overlaps))
	}
	// 三平台的排在两平台之前
	if !reflect.DeepEqual(overlaps[0].Platforms, []string{"bilibili", "weibo", "zhihu"}) {
		t.Fatalf("first overlap platforms = %v", overlaps[0].Platforms)
	}
	if overlaps[0].Title != "#小鹏汽车发布新车#" {
		t.Fatalf("representative title should be first-seen original: %q", overlaps[0].Title)
	}
	if !reflect.DeepEqual(overlaps[1].Platforms, []string{"bilibili", "zhihu"}) {
		t.Fatalf("second overlap platforms = %v", overlaps[1].Platforms)
	}

	// 单平台热点绝不出现
	for _, o := range overlaps {
		if o.Title == "仅微博出现的热点" {
			t.Fatalf("single-platform title leaked into overlaps")
		}
	}
}

func TestOverlapsCap(t *testing.T) {
	m := newTestMatcher([]string{"weibo", "zhihu"}, nil)

	results := map[string]Presence{"weibo": {}, "zhihu": {}}
	wm := results["weibo"]
	zm := results["zhihu"]
	for i := 0; i < 12; i++ {
		title := fmt.Sprintf("重合热点%d", i)
		wm.MatchedItems = append(wm.MatchedItems, Match{Platform: "weibo", Title: title})
		zm.MatchedItems = append(zm.MatchedItems, Match{Platform: "zhihu", Title: title})
	}
	results["weibo"] = wm
	results["zhihu"] = zm

	overlaps := m.Overlaps(results)
	if len(overlaps) != 8 {
		t.Fatalf("overlaps capped at 8, got %d", len(overlaps))
	}
}
