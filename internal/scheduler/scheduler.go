package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/TopicRadar/internal/engine"
	"github.com/LJTian/TopicRadar/internal/storage"
)

const maxConcurrentTopics = 3

// analyzer 是调度器需要的分析入口（*engine.Engine 实现）。
type analyzer interface {
	Analyze(ctx context.Context, topic string, opts engine.Options) *engine.Report
}

// watchStore 是调度器需要的存储面（*storage.Store 实现）。
type watchStore interface {
	ListWatchTopics() ([]storage.WatchTopic, error)
	SaveReport(report *engine.Report, source string) error
}

type Scheduler struct {
	cron   *cron.Cron
	engine analyzer
	store  watchStore
}

func New(spec string, eng analyzer, store watchStore) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:   c,
		engine: eng,
		store:  store,
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮分析，避免与启动期的首批 API 请求争抢资源
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.runOnce()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发全量重分析
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

// runOnce 对全部 active 关注主题各跑一轮快速分析并落库。
// 主题间并发但限流，单主题失败不影响其它主题。
func (s *Scheduler) runOnce() {
	log.Println("start watch job...")

	topics, err := s.store.ListWatchTopics()
	if err != nil {
		log.Printf("watch job: list topics: %v", err)
		return
	}
	if len(topics) == 0 {
		log.Println("watch job done (no topics)")
		return
	}

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, maxConcurrentTopics)
	)
	for _, w := range topics {
		wg.Add(1)
		sem <- struct{}{}
		go func(topic string) {
			defer wg.Done()
			defer func() { <-sem }()

			log.Printf("analyze %s...", topic)
			report := s.engine.Analyze(context.Background(), topic, engine.Options{Fast: true})
			if err := s.store.SaveReport(report, string(engine.SourceRSS)); err != nil {
				log.Printf("save report %s error: %v", topic, err)
				return
			}
			log.Printf("%s done, items=%d", topic, len(report.Items))
		}(w.Topic)
	}
	wg.Wait()

	log.Println("watch job done (all topics)")
}
