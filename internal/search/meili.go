package search

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"

	"github.com/LJTian/TopicRadar/internal/models"
	"github.com/meilisearch/meilisearch-go"
)

const indexName = "documents"

// document 是写入索引的文档结构，主键为 URL 的 SHA-1。
type document struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Content      string `json:"content"`
	SourceDomain string `json:"sourceDomain"`
	PublishedAt  string `json:"publishedAt"`
	FetchTime    string `json:"fetchTime"`
	URL          string `json:"url"`
	Topic        string `json:"topic"`
}

// Index 包装 Meilisearch 的素材索引：分析前用于检索已入库素材，
// 分析后把新素材回写，供后续高频查询短路。
type Index struct {
	client *meilisearch.Client
}

// NewIndex 创建索引客户端；url 为空表示未配置，返回 nil（调用方按未启用处理）。
func NewIndex(url, apiKey string) *Index {
	if url == "" {
		return nil
	}
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   url,
		APIKey: apiKey,
	})
	return &Index{client: client}
}

// EnsureIndex 确保索引存在并配置可检索/可过滤字段。失败仅记录日志。
func (ix *Index) EnsureIndex() {
	if _, err := ix.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        indexName,
		PrimaryKey: "id",
	}); err != nil {
		// 索引已存在时同样会报错，无需区分
		log.Printf("search: create index: %v", err)
	}

	if _, err := ix.client.Index(indexName).UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"title", "summary", "content", "sourceDomain", "topic"},
		FilterableAttributes: []string{"topic", "sourceDomain", "publishedAt"},
		SortableAttributes:   []string{"publishedAt", "fetchTime"},
	}); err != nil {
		log.Printf("search: update settings: %v", err)
	}
}

// Upsert 把素材写入索引（best-effort，URL 为空的素材跳过）。
func (ix *Index) Upsert(items []models.Candidate, topic string) error {
	docs := make([]document, 0, len(items))
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		docs = append(docs, document{
			ID:           hashURL(it.URL),
			Title:        it.Title,
			Summary:      it.Summary,
			Content:      it.Content,
			SourceDomain: it.SourceDomain,
			PublishedAt:  it.PublishedAt,
			FetchTime:    it.FetchTime,
			URL:          it.URL,
			Topic:        topic,
		})
	}
	if len(docs) == 0 {
		return nil
	}

	ix.EnsureIndex()
	if _, err := ix.client.Index(indexName).AddDocuments(docs); err != nil {
		return fmt.Errorf("search: add documents: %w", err)
	}
	return nil
}

// Search 从索引检索已入库素材，按主题过滤，映射回统一素材结构。
// 失败返回空列表。
func (ix *Index) Search(query string, limit int, filterTopic string) []models.Candidate {
	if query == "" {
		return nil
	}

	req := &meilisearch.SearchRequest{Limit: int64(limit)}
	if filterTopic != "" {
		req.Filter = fmt.Sprintf("topic = %q", filterTopic)
	}

	res, err := ix.client.Index(indexName).Search(query, req)
	if err != nil {
		log.Printf("search: query %q: %v", query, err)
		return nil
	}

	items := make([]models.Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var doc document
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		source := doc.SourceDomain
		if source == "" {
			source = "Meilisearch"
		}
		items = append(items, models.Candidate{
			Title:        doc.Title,
			Summary:      doc.Summary,
			Content:      doc.Content,
			Source:       source,
			URL:          doc.URL,
			PublishedAt:  doc.PublishedAt,
			FetchTime:    doc.FetchTime,
			SourceDomain: doc.SourceDomain,
		})
	}
	return items
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
