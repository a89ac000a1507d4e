package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/LJTian/TopicRadar/internal/config"
	"github.com/LJTian/TopicRadar/internal/engine"
)

// 一个仅执行一次分析的命令行入口：不连数据库，结果以 JSON 打到标准输出
func main() {
	var (
		topic  = flag.String("topic", "", "要分析的主题（必填）")
		source = flag.String("source", "rss", "素材来源: rss / wiki / jina / serper")
		n      = flag.Int("n", 0, "素材条数上限，0 用默认值")
		fast   = flag.Bool("fast", false, "快速模式：减少正文抓取数量与超时")
	)
	flag.Parse()

	if *topic == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()

	eng := engine.New(engine.Config{
		Platforms:    cfg.TrendPlatforms,
		ExtractorURL: cfg.ExtractorURL,
		SerperAPIKey: cfg.SerperAPIKey,
		MeiliURL:     cfg.MeiliURL,
		MeiliAPIKey:  cfg.MeiliAPIKey,
	})

	report := eng.Analyze(context.Background(), *topic, engine.Options{
		MaxItems: *n,
		Source:   engine.Source(*source),
		Fast:     *fast,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}
