package engine

import (
	"github.com/LJTian/TopicRadar/internal/metrics"
	"github.com/LJTian/TopicRadar/internal/models"
	"github.com/LJTian/TopicRadar/internal/trending"
)

// Report 是一次主题分析的完整产出。
type Report struct {
	Topic       string             `json:"topic"`
	GeneratedAt string             `json:"generatedAt"`
	Items       []models.Candidate `json:"items"`
	Stats       Stats              `json:"stats"`
	Metrics     Metrics            `json:"metrics"`
}

// Stats 是素材集合的基本规模统计。
type Stats struct {
	ItemCount    int `json:"itemCount"`
	DomainCount  int `json:"domainCount"`
	TotalTextLen int `json:"totalTextLen"`
}

// Coverage 描述主题在热榜平台白名单中的覆盖情况。
type Coverage struct {
	PresentCount     int `json:"presentCount"`
	TotalWhitelisted int `json:"totalWhitelisted"`
}

// Metrics 在基础统计之上叠加热度相关指标。
type Metrics struct {
	metrics.Bundle

	RSSMentions       int                          `json:"rssMentions"`
	WikiPageviewsZH   *int                         `json:"wikiPageviewsZh,omitempty"`
	WikiPageviewsEN   *int                         `json:"wikiPageviewsEn,omitempty"`
	Trending          map[string]trending.Presence `json:"trending"`
	TrendingCounts    map[string]int               `json:"trendingCounts"`
	PlatformWhitelist []string                     `json:"platformWhitelist"`
	PlatformCoverage  Coverage                     `json:"platformCoverage"`
	Overlaps          []trending.Overlap           `json:"overlaps"`
}
