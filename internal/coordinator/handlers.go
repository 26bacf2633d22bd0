package coordinator

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Trimbex/distributed-web-crawler/internal/frontier"
	"github.com/Trimbex/distributed-web-crawler/internal/logging"
)

// RegisterRoutes wires the six control-plane endpoints onto router. Intended
// to be passed as the setupRoutes callback to internal/httpserver.NewServer.
func (c *Coordinator) RegisterRoutes(router *gin.Engine) {
	router.POST("/submit", c.handleSubmit)
	router.POST("/assign_task", c.handleAssignTask)
	router.POST("/submit_result", c.handleSubmitResult)
	router.POST("/heartbeat", c.handleHeartbeat)
	router.GET("/status", c.handleStatus)
	router.POST("/add_urls", c.handleAddURLs)
}

type submitRequest struct {
	URL string `json:"url"`
}

type submitResponse struct {
	Accepted bool `json:"accepted"`
}

func (c *Coordinator) handleSubmit(ctx *gin.Context) {
	var req submitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, submitResponse{Accepted: false})
		return
	}
	ctx.JSON(http.StatusOK, submitResponse{Accepted: c.submitSeedOrBuffer(req.URL)})
}

type assignTaskRequest struct {
	WorkerID string `json:"worker_id"`
}

func (c *Coordinator) handleAssignTask(ctx *gin.Context) {
	var req assignTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.WorkerID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "no-task"})
		return
	}

	lease, ok := c.frontier.Dispatch(req.WorkerID, c.cfg.LeaseTimeout())
	if !ok {
		ctx.JSON(http.StatusOK, gin.H{"status": "no-task"})
		return
	}

	if c.metrics != nil {
		c.metrics.LeasesDispatched.WithLabelValues(lease.Token.URL().Host).Inc()
		c.metrics.QueueDepth.Set(float64(c.frontier.Status(time.Now(), c.cfg.HeartbeatTimeout()).Queued))
	}

	leaseURL := lease.Token.URL()
	ctx.JSON(http.StatusOK, gin.H{
		"lease_id": string(lease.ID),
		"url":      leaseURL.String(),
	})
}

type submitResultRequest struct {
	LeaseID       string   `json:"lease_id"`
	Success       bool     `json:"success"`
	ExtractedURLs []string `json:"extracted_urls"`
	Error         string   `json:"error"`
}

type submitResultResponse struct {
	OK bool `json:"ok"`
}

func (c *Coordinator) handleSubmitResult(ctx *gin.Context) {
	var req submitResultRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.LeaseID == "" {
		ctx.JSON(http.StatusBadRequest, submitResultResponse{OK: false})
		return
	}

	completedURL, ok := c.frontier.Complete(frontier.LeaseID(req.LeaseID), req.Success)
	if !ok {
		// Unknown lease (already resolved, or expired and swept): ignored,
		// not an error — the caller still gets an ok response.
		ctx.JSON(http.StatusOK, submitResultResponse{OK: true})
		return
	}

	if c.metrics != nil {
		host := completedURL.Host
		if req.Success {
			c.metrics.LeasesCompleted.WithLabelValues(host).Inc()
			for _, raw := range req.ExtractedURLs {
				c.admitSeed(raw)
			}
		} else {
			c.metrics.LeasesFailed.WithLabelValues(host).Inc()
		}
	} else if req.Success {
		for _, raw := range req.ExtractedURLs {
			c.admitSeed(raw)
		}
	}

	ctx.JSON(http.StatusOK, submitResultResponse{OK: true})
}

type heartbeatRequest struct {
	WorkerID string `json:"worker_id"`
}

type heartbeatResponse struct {
	OK bool `json:"ok"`
}

func (c *Coordinator) handleHeartbeat(ctx *gin.Context) {
	var req heartbeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.WorkerID == "" {
		ctx.JSON(http.StatusBadRequest, heartbeatResponse{OK: false})
		return
	}
	c.frontier.Heartbeat(req.WorkerID, time.Now())
	ctx.JSON(http.StatusOK, heartbeatResponse{OK: true})
}

type statusResponse struct {
	Queued       int     `json:"queued"`
	InFlight     int     `json:"in_flight"`
	Visited      int     `json:"visited"`
	Failed       int     `json:"failed"`
	WorkersAlive int     `json:"workers_alive"`
	Uptime       float64 `json:"uptime"`
}

func (c *Coordinator) handleStatus(ctx *gin.Context) {
	counters, uptime := c.Status()
	if c.metrics != nil {
		c.metrics.QueueDepth.Set(float64(counters.Queued))
		c.metrics.WorkersAlive.Set(float64(counters.WorkersAlive))
	}
	ctx.JSON(http.StatusOK, statusResponse{
		Queued:       counters.Queued,
		InFlight:     counters.InFlight,
		Visited:      counters.Visited,
		Failed:       counters.Failed,
		WorkersAlive: counters.WorkersAlive,
		Uptime:       uptime.Seconds(),
	})
}

type addURLsRequest struct {
	URLs []string `json:"urls"`
}

type addURLsResponse struct {
	Added int `json:"added"`
}

func (c *Coordinator) handleAddURLs(ctx *gin.Context) {
	var req addURLsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, addURLsResponse{Added: 0})
		return
	}

	added := 0
	for _, raw := range req.URLs {
		if c.submitSeedOrBuffer(raw) {
			added++
		}
	}

	c.log.Info("bulk urls submitted", logging.Int("requested", len(req.URLs)), logging.Int("added", added))
	ctx.JSON(http.StatusOK, addURLsResponse{Added: added})
}
