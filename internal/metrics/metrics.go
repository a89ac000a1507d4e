package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LJTian/TopicRadar/internal/models"
)

const (
	maxDomains        = 10
	maxTimeseriesDays = 14
	maxReasonSamples  = 5
	// 相关性分数归一化的常见上限（2 次标题命中或等价组合）
	scoreNormalizeCap = 4.0
)

// DomainCount 是单个来源域名的素材计数。
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// HistBin 是相关性直方图的一个分箱。
type HistBin struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// DayCount 是按日时间序列的一个点。
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Bundle 汇总最终素材集合的统计指标。
type Bundle struct {
	DomainCounts   []DomainCount `json:"domainCounts"`
	DomainMaxCount int           `json:"domainMaxCount"`

	RelevanceAvg     *float64  `json:"relevanceAvg,omitempty"`
	RelevanceSamples []string  `json:"relevanceSamples,omitempty"`
	HistBins         []HistBin `json:"histBins"`
	HistMaxCount     int       `json:"histMaxCount"`

	TimeseriesDaily    []DayCount `json:"timeseriesDaily"`
	TimeseriesMaxCount int        `json:"timeseriesMaxCount"`
}

// Aggregate 从素材集合推导域名分布、相关性直方图与近 14 天的按日分布。
func Aggregate(items []models.Candidate) Bundle {
	domains := domainCounts(items)
	bins := histogramOf(items)
	daily := timeseries(items)

	return Bundle{
		DomainCounts:   domains,
		DomainMaxCount: maxCount(domains),

		RelevanceAvg:     relevanceAvg(items),
		RelevanceSamples: relevanceSamples(items),
		HistBins:         bins,
		HistMaxCount:     histMax(bins),

		TimeseriesDaily:    daily,
		TimeseriesMaxCount: timeseriesMax(daily),
	}
}

// domainCounts 按小写域名计数，数量降序（同数按域名字典序保证稳定），取前 10。
func domainCounts(items []models.Candidate) []DomainCount {
	counts := make(map[string]int)
	for _, it := range items {
		dom := strings.ToLower(it.SourceDomain)
		if dom == "" {
			continue
		}
		counts[dom]++
	}

	out := make([]DomainCount, 0, len(counts))
	for dom, n := range counts {
		out = append(out, DomainCount{Domain: dom, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	if len(out) > maxDomains {
		out = out[:maxDomains]
	}
	return out
}

// Histogram 把原始分数按 min(max(score/4,0),1) 归一化到 [0,1]，
// 分 5 个等宽箱；归一化值 1.0 落入最后一箱。
func Histogram(scores []float64) []HistBin {
	binEdges := []struct{ lo, hi float64 }{
		{0.0, 0.2}, {0.2, 0.4}, {0.4, 0.6}, {0.6, 0.8}, {0.8, 1.01},
	}

	bins := make([]HistBin, len(binEdges))
	for i, e := range binEdges {
		hi := e.hi
		if hi > 1.0 {
			hi = 1.0
		}
		bins[i] = HistBin{Range: fmt.Sprintf("%.1f-%.1f", e.lo, hi)}
	}

	for _, s := range scores {
		norm := s / scoreNormalizeCap
		if norm < 0 {
			norm = 0
		}
		if norm > 1 {
			norm = 1
		}
		for i, e := range binEdges {
			if norm >= e.lo && norm < e.hi {
				bins[i].Count++
				break
			}
		}
	}
	return bins
}

func histogramOf(items []models.Candidate) []HistBin {
	var scores []float64
	for _, it := range items {
		if it.Relevance != nil {
			scores = append(scores, it.Relevance.Score)
		}
	}
	return Histogram(scores)
}

func relevanceAvg(items []models.Candidate) *float64 {
	var sum float64
	var n int
	for _, it := range items {
		if it.Relevance != nil {
			sum += it.Relevance.Score
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func relevanceSamples(items []models.Candidate) []string {
	var samples []string
	for _, it := range items {
		if it.Relevance == nil {
			continue
		}
		samples = append(samples, it.Relevance.Reason)
		if len(samples) >= maxReasonSamples {
			break
		}
	}
	return samples
}

// timeseries 按日期分桶，仅保留最近 14 个有数据的日期，升序返回。
// 日期优先取 publishedAt，缺失时回退 fetchTime；无法解析的条目不计入。
func timeseries(items []models.Candidate) []DayCount {
	daily := make(map[string]int)
	for _, it := range items {
		raw := it.PublishedAt
		if raw == "" {
			raw = it.FetchTime
		}
		if d := ToDate(raw); d != "" {
			daily[d]++
		}
	}

	dates := make([]string, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > maxTimeseriesDays {
		dates = dates[len(dates)-maxTimeseriesDays:]
	}

	out := make([]DayCount, 0, len(dates))
	for _, d := range dates {
		out = append(out, DayCount{Date: d, Count: daily[d]})
	}
	return out
}

// ToDate 从时间字符串中提取日历日期（YYYY-MM-DD），支持三种编码：
// 前缀式 YYYY-MM-DD...、带 T 分隔的 ISO 格式、8 位数字 YYYYMMDD。
// 无法识别返回空串。
func ToDate(s string) string {
	if s == "" {
		return ""
	}
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	if strings.Contains(s, "T") && strings.Contains(s, "-") {
		return strings.SplitN(s, "T", 2)[0]
	}
	if len(s) == 8 && isDigits(s) {
		return s[:4] + "-" + s[4:6] + "-" + s[6:8]
	}
	return ""
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func maxCount(counts []DomainCount) int {
	max := 1
	for _, c := range counts {
		if c.Count > max {
			max = c.Count
		}
	}
	return max
}

func histMax(bins []HistBin) int {
	max := 1
	for _, b := range bins {
		if b.Count > max {
			max = b.Count
		}
	}
	return max
}

func timeseriesMax(points []DayCount) int {
	max := 1
	for _, p := range points {
		if p.Count > max {
			max = p.Count
		}
	}
	return max
}
