package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/TopicRadar/internal/engine"
	"github.com/LJTian/TopicRadar/internal/storage"
)

type Server struct {
	engine *engine.Engine
	store  *storage.Store // 可为 nil（无库模式只做在线分析）
}

func NewServer(eng *engine.Engine, store *storage.Store) *Server {
	return &Server{engine: eng, store: store}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyze", s.analyze)
		v1.GET("/reports", s.listReports)
		v1.GET("/watch", s.listWatchTopics)
		v1.POST("/watch", s.addWatchTopic)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type analyzeRequest struct {
	Topic    string `json:"topic"`
	Source   string `json:"source"`
	MaxItems int    `json:"maxItems"`
	Fast     bool   `json:"fast"`
}

var validSources = map[string]engine.Source{
	"":       engine.SourceRSS,
	"rss":    engine.SourceRSS,
	"wiki":   engine.SourceWiki,
	"jina":   engine.SourceJina,
	"serper": engine.SourceSerper,
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "invalid json body",
		})
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "topic is required",
		})
		return
	}
	source, ok := validSources[req.Source]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "unknown source: " + req.Source,
		})
		return
	}

	report := s.engine.Analyze(c.Request.Context(), req.Topic, engine.Options{
		MaxItems: req.MaxItems,
		Source:   source,
		Fast:     req.Fast,
	})

	// 落库失败不影响本次响应
	if s.store != nil {
		if err := s.store.SaveReport(report, string(source)); err != nil {
			c.JSON(http.StatusOK, gin.H{
				"code":    "ok",
				"message": "analyzed (save failed)",
				"data":    report,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    report,
	})
}

func (s *Server) listReports(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "no_storage",
			"message": "storage not configured",
		})
		return
	}

	topic := c.Query("topic")
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20
	}

	items, err := s.store.ListReports(topic, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) listWatchTopics(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "no_storage",
			"message": "storage not configured",
		})
		return
	}

	items, err := s.store.ListWatchTopics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

type watchRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) addWatchTopic(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "no_storage",
			"message": "storage not configured",
		})
		return
	}

	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "topic is required",
		})
		return
	}

	w, err := s.store.AddWatchTopic(req.Topic)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    w,
	})
}
