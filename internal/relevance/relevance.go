package relevance

import (
	"fmt"
	"strings"

	"github.com/LJTian/TopicRadar/internal/models"
	"github.com/LJTian/TopicRadar/internal/terms"
	"github.com/pmezard/go-difflib/difflib"
)

const (
	// 模糊相似度低于该值不计入得分
	fuzzyScoreFloor = 0.6
	// 仅凭模糊相似度判定相关的阈值
	fuzzyRelatedThreshold = 0.8
	// 兜底摘要的最大长度（按 rune 计）
	summaryMaxRunes = 180
)

// Score 对候选素材的标题与摘要做相关性打分：
// score = 2*标题命中数 + 摘要命中数 + 模糊相似度加成（≥0.6 才计入）；
// 标题或摘要命中任一词、或模糊相似度 ≥0.8 视为相关。
func Score(title, summary string, termSet []string) models.Relevance {
	titleLower := strings.ToLower(title)
	summaryLower := strings.ToLower(summary)

	var titleHits, summaryHits int
	for _, term := range termSet {
		tl := strings.ToLower(term)
		if tl == "" {
			continue
		}
		if strings.Contains(titleLower, tl) {
			titleHits++
		}
		if strings.Contains(summaryLower, tl) {
			summaryHits++
		}
	}

	normTitle := terms.Normalize(title)
	normSummary := terms.Normalize(summary)
	fuzzy := 0.0
	for _, term := range termSet {
		nt := terms.Normalize(term)
		if nt == "" {
			continue
		}
		if r := Ratio(nt, normTitle); r > fuzzy {
			fuzzy = r
		}
		if r := Ratio(nt, normSummary); r > fuzzy {
			fuzzy = r
		}
	}

	score := float64(titleHits)*2 + float64(summaryHits)
	if fuzzy >= fuzzyScoreFloor {
		score += fuzzy
	}
	related := titleHits > 0 || summaryHits > 0 || fuzzy >= fuzzyRelatedThreshold

	return models.Relevance{
		Score:   score,
		Reason:  fmt.Sprintf("title_hits=%d, summary_hits=%d, fuzzy=%.2f", titleHits, summaryHits, fuzzy),
		Related: related,
		Summary: pickSummary(title, summary, termSet),
	}
}

// Ratio 计算两个字符串按 rune 的相似度（difflib SequenceMatcher ratio，取值 [0,1]）。
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// pickSummary 优先取摘要中第一个命中主题词的句子；
// 没有命中句时回退到摘要前 180 字，再退到标题前 180 字。
func pickSummary(title, summary string, termSet []string) string {
	if summary != "" {
		for _, seg := range strings.Split(strings.ReplaceAll(summary, "。", "."), ".") {
			segLower := strings.ToLower(seg)
			for _, term := range termSet {
				if term == "" {
					continue
				}
				if strings.Contains(segLower, strings.ToLower(term)) {
					return strings.TrimSpace(seg)
				}
			}
		}
		return truncateRunes(summary, summaryMaxRunes) + "..."
	}
	return truncateRunes(title, summaryMaxRunes) + "..."
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
