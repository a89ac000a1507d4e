package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/LJTian/TopicRadar/internal/models"
)

const (
	defaultEndpoint  = "https://google.serper.dev/search"
	requestTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20
)

// Client 调用 Serper.dev 的 Google 搜索 API（需要 API Key）。
type Client struct {
	Endpoint string
	apiKey   string
}

func NewClient(apiKey string) *Client {
	return &Client{Endpoint: defaultEndpoint, apiKey: apiKey}
}

// Configured 返回是否已配置 API Key。
func (c *Client) Configured() bool { return c.apiKey != "" }

// Search 联网搜索并映射为统一素材结构；未配置或失败时返回空列表。
func (c *Client) Search(ctx context.Context, query string, num int) []models.Candidate {
	if !c.Configured() || query == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"q":  query,
		"gl": "cn",
		"hl": "zh-cn",
	})
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("websearch: %q: %v", query, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("websearch: %q: status %d", query, resp.StatusCode)
		return nil
	}

	var data struct {
		Organic []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Domain  string `json:"domain"`
			Source  string `json:"source"`
			Date    string `json:"date"`
			Link    string `json:"link"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&data); err != nil {
		return nil
	}

	items := make([]models.Candidate, 0, num)
	for _, r := range data.Organic {
		if len(items) >= num {
			break
		}
		source := r.Domain
		if source == "" {
			source = r.Source
		}
		if source == "" {
			source = "Serper"
		}
		items = append(items, models.Candidate{
			Title:       r.Title,
			Summary:     r.Snippet,
			Source:      source,
			PublishedAt: r.Date,
			URL:         r.Link,
		})
	}
	return items
}
