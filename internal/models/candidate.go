package models

// Relevance 记录一条素材相对主题词集的打分结果。
// Reason 是便于排查的信号摘要，不参与任何机器判断。
type Relevance struct {
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
	Related bool    `json:"related"`
	Summary string  `json:"summary"`
}

// Candidate 是各数据源采集后的统一素材结构。
// URL 是唯一标识：同一聚合结果中相同非空 URL 只保留首次出现的一条。
type Candidate struct {
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	Content      string     `json:"content,omitempty"`
	Source       string     `json:"source"`
	URL          string     `json:"url"`
	PublishedAt  string     `json:"publishedAt,omitempty"`
	FetchTime    string     `json:"fetchTime,omitempty"`
	SourceDomain string     `json:"sourceDomain,omitempty"`
	Relevance    *Relevance `json:"relevance,omitempty"`
}
