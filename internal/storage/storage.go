package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LJTian/TopicRadar/internal/engine"
)

// Report 是一次主题分析的落库形态：素材与指标整体存为 jsonb。
type Report struct {
	ID          string         `gorm:"primaryKey;size:40" json:"id"`
	Topic       string         `gorm:"size:256;index" json:"topic"`
	Source      string         `gorm:"size:32;index" json:"source"`
	Items       datatypes.JSON `gorm:"type:jsonb" json:"items"`
	Metrics     datatypes.JSON `gorm:"type:jsonb" json:"metrics"`
	GeneratedAt time.Time      `gorm:"index" json:"generatedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WatchTopic 是被定时重新分析的关注主题。
type WatchTopic struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Topic  string `gorm:"size:256;uniqueIndex" json:"topic"`
	Status string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Report{}, &WatchTopic{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
// （部分源站正文可能含 GBK/混编）
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// reportID 用 主题+生成时间 生成稳定主键，同一主题的多次分析互不覆盖。
func reportID(topic, generatedAt string) string {
	h := sha1.New()
	h.Write([]byte(topic))
	h.Write([]byte{0})
	h.Write([]byte(generatedAt))
	return hex.EncodeToString(h.Sum(nil))
}

// SaveReport 保存一次分析结果。
func (s *Store) SaveReport(report *engine.Report, source string) error {
	itemsJSON, err := json.Marshal(report.Items)
	if err != nil {
		return err
	}
	metricsJSON, err := json.Marshal(report.Metrics)
	if err != nil {
		return err
	}

	generatedAt, err := time.Parse("2006-01-02T15:04:05", report.GeneratedAt)
	if err != nil {
		generatedAt = time.Now()
	}

	r := &Report{
		ID:          reportID(report.Topic, report.GeneratedAt),
		Topic:       toValidUTF8(report.Topic),
		Source:      source,
		Items:       datatypes.JSON(toValidUTF8(string(itemsJSON))),
		Metrics:     datatypes.JSON(toValidUTF8(string(metricsJSON))),
		GeneratedAt: generatedAt,
	}

	// 主键幂等：同一主题同一时刻的重复写入直接忽略
	return s.DB.Where("id = ?", r.ID).FirstOrCreate(r).Error
}

// ListReports 返回最近的分析报告，可按主题筛选，Redis 做 5 分钟缓存。
func (s *Store) ListReports(topic string, limit int) ([]Report, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("reports:list:%s:%d", topic, limit)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Report
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Report
	db := s.DB.Model(&Report{})
	if topic != "" {
		db = db.Where("topic = ?", topic)
	}
	if err := db.Order("generated_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// AddWatchTopic 登记关注主题，重复登记幂等并重新激活。
func (s *Store) AddWatchTopic(topic string) (*WatchTopic, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("storage: empty topic")
	}

	w := &WatchTopic{Topic: toValidUTF8(topic), Status: "active"}
	if err := s.DB.Where("topic = ?", w.Topic).FirstOrCreate(w).Error; err != nil {
		return nil, err
	}
	if w.Status != "active" {
		if err := s.DB.Model(w).Update("status", "active").Error; err != nil {
			return nil, err
		}
		w.Status = "active"
	}
	return w, nil
}

// ListWatchTopics 返回所有处于 active 状态的关注主题。
func (s *Store) ListWatchTopics() ([]WatchTopic, error) {
	var list []WatchTopic
	if err := s.DB.Where("status = ?", "active").Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
