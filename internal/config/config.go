package config

import (
	"log"
	"os"
	"strings"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	CronSpec string

	// 热榜平台白名单，逗号分隔；为空使用内置默认
	TrendPlatforms []string

	MeiliURL    string
	MeiliAPIKey string

	SerperAPIKey string

	// 本地正文抽取边车地址，为空走公共 Jina Reader
	ExtractorURL string

	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "9000"),
		PostgresDSN:    getEnv("POSTGRES_DSN", "host=localhost user=topicradar password=topicradar dbname=topicradar port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		CronSpec:       getEnv("CRON_SPEC", "*/30 * * * *"),
		TrendPlatforms: splitCSV(getEnv("TREND_PLATFORMS", "")),
		MeiliURL:       getEnv("MEILISEARCH_URL", ""),
		MeiliAPIKey:    getEnv("MEILISEARCH_API_KEY", ""),
		SerperAPIKey:   getEnv("SERPER_API_KEY", ""),
		ExtractorURL:   getEnv("EXTRACTOR_URL", ""),
		BasicAuthUser:  getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:  getEnv("APP_BASIC_PASS", ""),
	}

	log.Printf("config loaded: port=%s cron=%s platforms=%d", cfg.AppPort, cfg.CronSpec, len(cfg.TrendPlatforms))
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
