package indexserver

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Trimbex/distributed-web-crawler/internal/index"
	"github.com/Trimbex/distributed-web-crawler/internal/logging"
	"github.com/Trimbex/distributed-web-crawler/internal/query"
)

// RegisterRoutes wires the three query-engine endpoints onto router.
// Intended to be passed as the setupRoutes callback to
// internal/httpserver.NewServer.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.POST("/index", s.handleIndex)
	router.GET("/search", s.handleSearch)
	router.GET("/status", s.handleStatus)
}

type indexRequest struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type indexResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleIndex(ctx *gin.Context) {
	var req indexRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.URL == "" {
		ctx.JSON(http.StatusBadRequest, indexResponse{Success: false})
		return
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		ctx.JSON(http.StatusBadRequest, indexResponse{Success: false})
		return
	}

	doc := index.Document{
		URL:            req.URL,
		Title:          req.Title,
		Body:           req.Content,
		Host:           u.Host,
		CrawlTimestamp: time.Now(),
	}
	if err := s.idx.Upsert(doc); err != nil {
		s.log.Error("failed to index document", logging.String("url", req.URL), logging.Err(err))
		ctx.JSON(http.StatusOK, indexResponse{Success: false})
		return
	}

	if s.metrics != nil {
		s.metrics.DocumentsIndexed.Inc()
	}
	ctx.JSON(http.StatusOK, indexResponse{Success: true})
}

type searchResult struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
	Host      string  `json:"host"`
	CrawlDate string  `json:"crawl_date"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (s *Server) handleSearch(ctx *gin.Context) {
	q := ctx.Query("q")
	if q == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}

	max := s.cfg.DefaultMaxResults()
	if raw := ctx.Query("max"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			max = n
		}
	}

	results, err := query.Search(q, s.idx.Snapshot(), max, s.scoringParams())
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.idx.RecordSearch()
	if s.metrics != nil {
		s.metrics.SearchesTotal.Inc()
	}

	out := make([]searchResult, 0, len(results))
	for _, r := range results {
		out = append(out, searchResult{
			URL:       r.URL,
			Title:     r.Title,
			Snippet:   r.Snippet,
			Score:     r.Score,
			Host:      r.Host,
			CrawlDate: r.CrawlDate,
		})
	}
	ctx.JSON(http.StatusOK, searchResponse{Results: out})
}

type statusResponse struct {
	PagesIndexed      int64 `json:"pages_indexed"`
	IndexSizeBytes    int64 `json:"index_size_bytes"`
	SearchesPerformed int64 `json:"searches_performed"`
	DocumentCount     int   `json:"document_count"`
}

func (s *Server) handleStatus(ctx *gin.Context) {
	stats := s.idx.Stats()

	sizeBytes, err := index.DirSize(s.cfg.DataDir())
	if err != nil {
		s.log.Warn("failed to compute index size", logging.Err(err))
	}
	if s.metrics != nil {
		s.metrics.IndexSizeBytes.Set(float64(sizeBytes))
	}

	ctx.JSON(http.StatusOK, statusResponse{
		PagesIndexed:      stats.DocumentsIndexed,
		IndexSizeBytes:    sizeBytes,
		SearchesPerformed: stats.SearchesPerformed,
		DocumentCount:     stats.DocumentCount,
	})
}
