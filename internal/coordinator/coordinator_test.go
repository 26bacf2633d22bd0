package coordinator_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Trimbex/distributed-web-crawler/internal/config"
	"github.com/Trimbex/distributed-web-crawler/internal/coordinator"
	"github.com/Trimbex/distributed-web-crawler/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestCoordinator(t *testing.T, seeds []string) (*coordinator.Coordinator, *gin.Engine) {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.WithDefaultCoordinatorConfig(seeds).
		WithSnapshotPath(filepath.Join(dir, "snapshot.json")).
		WithPendingSeedLogPath(filepath.Join(dir, "pending.log")).
		Build()
	require.NoError(t, err)

	c := coordinator.New(cfg, logging.Nop(), nil)

	router := gin.New()
	c.RegisterRoutes(router)
	return c, router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleSubmit_AcceptsValidURL(t *testing.T) {
	_, router := newTestCoordinator(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/submit", map[string]string{"url": "https://example.com/"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Accepted bool `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Accepted)
}

func TestHandleSubmit_RejectsMalformedURL(t *testing.T) {
	_, router := newTestCoordinator(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/submit", map[string]string{"url": "not a url"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Accepted bool `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Accepted)
}

func TestHandleAssignTask_NoTaskWhenEmpty(t *testing.T) {
	_, router := newTestCoordinator(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/assign_task", map[string]string{"worker_id": "w1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "no-task", resp["status"])
}

func TestHandleAssignTask_DispatchesQueuedSeed(t *testing.T) {
	_, router := newTestCoordinator(t, []string{"https://example.com/"})

	rec := doJSON(t, router, http.MethodPost, "/assign_task", map[string]string{"worker_id": "w1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		LeaseID string `json:"lease_id"`
		URL     string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.LeaseID)
	require.Equal(t, "https://example.com/", resp.URL)
}

func TestHandleSubmitResult_AdmitsExtractedLinks(t *testing.T) {
	_, router := newTestCoordinator(t, []string{"https://example.com/"})

	assignRec := doJSON(t, router, http.MethodPost, "/assign_task", map[string]string{"worker_id": "w1"})
	var assigned struct {
		LeaseID string `json:"lease_id"`
	}
	require.NoError(t, json.Unmarshal(assignRec.Body.Bytes(), &assigned))

	resultRec := doJSON(t, router, http.MethodPost, "/submit_result", map[string]any{
		"lease_id":       assigned.LeaseID,
		"success":        true,
		"extracted_urls": []string{"https://example.com/child"},
	})
	require.Equal(t, http.StatusOK, resultRec.Code)

	statusRec := doJSON(t, router, http.MethodGet, "/status", nil)
	var status struct {
		Queued  int `json:"queued"`
		Visited int `json:"visited"`
	}
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
	require.Equal(t, 1, status.Queued)
	require.Equal(t, 1, status.Visited)
}

func TestHandleSubmitResult_UnknownLeaseIsOK(t *testing.T) {
	_, router := newTestCoordinator(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/submit_result", map[string]any{
		"lease_id": "lease-does-not-exist",
		"success":  true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.OK)
}

func TestHandleHeartbeat_UpdatesWorkersAlive(t *testing.T) {
	_, router := newTestCoordinator(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/heartbeat", map[string]string{"worker_id": "w1"})
	require.Equal(t, http.StatusOK, rec.Code)

	statusRec := doJSON(t, router, http.MethodGet, "/status", nil)
	var status struct {
		WorkersAlive int `json:"workers_alive"`
	}
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
	require.Equal(t, 1, status.WorkersAlive)
}

func TestHandleAddURLs_CountsAdmitted(t *testing.T) {
	_, router := newTestCoordinator(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/add_urls", map[string]any{
		"urls": []string{"https://a.test/", "https://b.test/", "not a url"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Added int `json:"added"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Added)
}

func TestHandleStatus_ReportsUptime(t *testing.T) {
	_, router := newTestCoordinator(t, nil)

	time.Sleep(time.Millisecond)
	rec := doJSON(t, router, http.MethodGet, "/status", nil)

	var status struct {
		Uptime float64 `json:"uptime"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.GreaterOrEqual(t, status.Uptime, 0.0)
}

func TestCoordinator_RestoresSnapshotOnStartup(t *testing.T) {
	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "snapshot.json")

	cfg1, err := config.WithDefaultCoordinatorConfig([]string{"https://example.com/"}).
		WithSnapshotPath(snapshotPath).
		WithPendingSeedLogPath(filepath.Join(dir, "pending.log")).
		Build()
	require.NoError(t, err)

	c1 := coordinator.New(cfg1, logging.Nop(), nil)
	status1, _ := c1.Status()
	require.Equal(t, 1, status1.Queued)

	require.NoError(t, c1.WriteSnapshotNow())

	cfg2, err := config.WithDefaultCoordinatorConfig(nil).
		WithSnapshotPath(snapshotPath).
		WithPendingSeedLogPath(filepath.Join(dir, "pending.log")).
		Build()
	require.NoError(t, err)

	c2 := coordinator.New(cfg2, logging.Nop(), nil)
	status2, _ := c2.Status()
	require.Equal(t, 1, status2.Queued)
}

func TestCoordinator_DrainsPendingSeedLogWhenIndexerBecomesReachable(t *testing.T) {
	dir := t.TempDir()
	pendingPath := filepath.Join(dir, "pending.log")

	cfg, err := config.WithDefaultCoordinatorConfig(nil).
		WithSnapshotPath(filepath.Join(dir, "snapshot.json")).
		WithPendingSeedLogPath(pendingPath).
		Build()
	require.NoError(t, err)

	c := coordinator.New(cfg, logging.Nop(), nil)
	reachable := false
	c.IndexerReachable = func() bool { return reachable }

	router := gin.New()
	c.RegisterRoutes(router)

	rec := doJSON(t, router, http.MethodPost, "/submit", map[string]string{"url": "https://y.test/"})
	var resp struct {
		Accepted bool `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Accepted)

	statusBefore, _ := c.Status()
	require.Equal(t, 0, statusBefore.Queued)

	data, err := os.ReadFile(pendingPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "https://y.test/")

	reachable = true
	c.DrainPendingNow()

	statusAfter, _ := c.Status()
	require.Equal(t, 1, statusAfter.Queued)

	_, err = os.Stat(pendingPath)
	require.True(t, os.IsNotExist(err))
}

func TestCoordinator_DrainsPendingSeedTransportWhenRedisConfigured(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skip("Redis not available")
	}
	defer client.Del(context.Background(), "crawler:pending-seeds", "crawler:pending-seeds:processing")

	dir := t.TempDir()
	cfg, err := config.WithDefaultCoordinatorConfig(nil).
		WithSnapshotPath(filepath.Join(dir, "snapshot.json")).
		WithPendingSeedLogPath(filepath.Join(dir, "pending.log")).
		WithTransportKind("redis").
		WithRedisAddr("localhost:6379").
		Build()
	require.NoError(t, err)

	c := coordinator.New(cfg, logging.Nop(), nil)
	reachable := false
	c.IndexerReachable = func() bool { return reachable }

	router := gin.New()
	c.RegisterRoutes(router)

	rec := doJSON(t, router, http.MethodPost, "/submit", map[string]string{"url": "https://z.test/"})
	var resp struct {
		Accepted bool `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Accepted)

	statusBefore, _ := c.Status()
	require.Equal(t, 0, statusBefore.Queued)

	reachable = true
	c.DrainPendingNow()

	statusAfter, _ := c.Status()
	require.Equal(t, 1, statusAfter.Queued)
}
