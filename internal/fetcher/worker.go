package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Trimbex/distributed-web-crawler/internal/config"
	"github.com/Trimbex/distributed-web-crawler/internal/logging"
	"github.com/Trimbex/distributed-web-crawler/internal/metrics"
	"github.com/Trimbex/distributed-web-crawler/internal/robots"
	"github.com/Trimbex/distributed-web-crawler/pkg/failure"
	"github.com/Trimbex/distributed-web-crawler/pkg/limiter"
	"github.com/Trimbex/distributed-web-crawler/pkg/retry"
	"github.com/Trimbex/distributed-web-crawler/pkg/timeutil"
)

/*
Worker loop

A Worker repeatedly polls the Coordinator for a lease, fetches the page,
checks robots.txt before the request leaves the process, extracts title,
body, and links on success, pushes the page to the Indexer, then reports
completion back to the Coordinator. Concurrency is a fixed pool of goroutines
sharing one worker id; a separate goroutine sends heartbeats regardless of
fetch activity so the Coordinator does not reclaim leases out from under a
worker that is simply between polls.
*/

// Worker drives the fetch pipeline against a Coordinator and an Indexer
// reachable over HTTP.
type Worker struct {
	cfg        config.FetcherConfig
	httpClient *http.Client
	fetcher    Fetcher
	robot      robots.CachedRobot
	limiter    *limiter.ConcurrentRateLimiter
	log        logging.Logger
	metrics    *metrics.Fetcher
}

// NewWorker builds a Worker ready to Run. The caller supplies a logger and,
// optionally, a metric set (nil disables instrumentation).
func NewWorker(cfg config.FetcherConfig, log logging.Logger, m *metrics.Fetcher) *Worker {
	httpClient := &http.Client{Timeout: cfg.Timeout()}

	htmlFetcher := NewHtmlFetcher(log)
	htmlFetcher.Init(httpClient)

	robot := robots.NewCachedRobot(log)
	robot.Init(cfg.UserAgent())

	rl := limiter.NewConcurrentRateLimiter()
	rl.SetBaseDelay(cfg.BaseDelay())
	rl.SetJitter(cfg.Jitter())
	rl.SetRandomSeed(cfg.RandomSeed())

	return &Worker{
		cfg:        cfg,
		httpClient: httpClient,
		fetcher:    &htmlFetcher,
		robot:      robot,
		limiter:    rl,
		log:        log,
		metrics:    m,
	}
}

// Run starts the heartbeat loop and a fixed pool of poll-fetch-report
// workers, and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return w.runHeartbeatLoop(ctx) })

	concurrency := w.cfg.Concurrency()
	if concurrency < 1 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		g.Go(func() error { return w.runPollLoop(ctx) })
	}

	return g.Wait()
}

func (w *Worker) runHeartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.sendHeartbeat(ctx); err != nil {
				w.log.Warn("heartbeat failed", logging.Err(err))
			}
		}
	}
}

func (w *Worker) runPollLoop(ctx context.Context) error {
	backoff := w.cfg.PollEmptyDelay()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		leaseID, rawURL, ok, err := w.assignTask(ctx)
		if err != nil {
			w.log.Warn("assign_task failed", logging.Err(err))
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, w.cfg.PollMaxBackoff())
			continue
		}
		if !ok {
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, w.cfg.PollMaxBackoff())
			continue
		}

		backoff = w.cfg.PollEmptyDelay()
		w.processLease(ctx, leaseID, rawURL)
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (w *Worker) processLease(ctx context.Context, leaseID, rawURL string) {
	start := time.Now()
	if w.metrics != nil {
		w.metrics.TasksFetched.Inc()
	}

	success, extracted, failErr := w.fetchOne(ctx, rawURL)

	if w.metrics != nil {
		w.metrics.FetchLatency.Observe(time.Since(start).Seconds())
		if success {
			w.metrics.TasksSucceeded.Inc()
		} else {
			w.metrics.TasksFailed.Inc()
		}
	}

	if err := w.submitResult(ctx, leaseID, success, extracted, failErr); err != nil {
		w.log.Warn("submit_result failed", logging.String("url", rawURL), logging.Err(err))
	}
}

// fetchOne runs the robots-check-then-fetch-then-extract pipeline for a
// single URL, honoring per-host pacing via the rate limiter.
func (w *Worker) fetchOne(ctx context.Context, rawURL string) (success bool, extractedURLs []string, failErr string) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return false, nil, fmt.Sprintf("invalid url: %v", err)
	}

	decision, robotsErr := w.robot.Decide(*target)
	if robotsErr != nil {
		w.log.Warn("robots check failed, proceeding without a ruling",
			logging.String("url", rawURL), logging.Err(robotsErr))
	} else if !decision.Allowed {
		if w.metrics != nil {
			w.metrics.RobotsDisallowed.Inc()
		}
		return false, nil, "disallowed by robots.txt"
	} else if decision.CrawlDelay > 0 {
		w.limiter.SetCrawlDelay(target.Host, decision.CrawlDelay)
	}

	if wait := w.limiter.ResolveDelay(target.Host); wait > 0 {
		if !sleepCtx(ctx, wait) {
			return false, nil, "cancelled"
		}
	}

	fetchParam := NewFetchParam(*target, w.cfg.UserAgent())

	result, fetchErr := w.fetcher.Fetch(ctx, 0, fetchParam)
	w.limiter.MarkLastFetchAsNow(target.Host)

	if fetchErr != nil {
		w.limiter.Backoff(target.Host)
		return false, nil, fetchErr.Error()
	}
	w.limiter.ResetBackoff(target.Host)

	page, err := ExtractPage(result.URL(), result.Body())
	if err != nil {
		return false, nil, fmt.Sprintf("extraction failed: %v", err)
	}

	pageURL := result.URL()
	if err := w.pushToIndexerWithRetry(ctx, pageURL.String(), page.Title, page.Body); err != nil {
		w.log.Warn("failed to push document to indexer", logging.String("url", rawURL), logging.Err(err))
	}

	links := make([]string, 0, len(page.Links))
	for _, l := range page.Links {
		links = append(links, l.String())
	}
	return true, links, ""
}

func (w *Worker) pushToIndexer(ctx context.Context, pageURL, title, body string) error {
	payload, err := json.Marshal(indexPushRequest{URL: pageURL, Title: title, Content: body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.IndexerURL()+"/index", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer returned status %d", resp.StatusCode)
	}
	return nil
}

// indexPushError wraps a pushToIndexer failure as retryable: a document
// already fetched and extracted shouldn't be dropped over a transient
// indexer hiccup.
type indexPushError struct{ err error }

func (e *indexPushError) Error() string             { return e.err.Error() }
func (e *indexPushError) Severity() failure.Severity { return failure.SeverityRecoverable }

// pushToIndexerWithRetry retries a successful fetch's indexer push up to
// cfg.MaxAttempt() times with the same backoff shape the old per-fetch
// retry used, scoped to indexer delivery rather than HTTP fetch classification.
func (w *Worker) pushToIndexerWithRetry(ctx context.Context, pageURL, title, body string) failure.ClassifiedError {
	retryParam := retry.NewRetryParam(
		w.cfg.BaseDelay(),
		w.cfg.Jitter(),
		w.cfg.RandomSeed(),
		w.cfg.MaxAttempt(),
		timeutil.NewBackoffParam(w.cfg.BackoffInitialDuration(), w.cfg.BackoffMultiplier(), w.cfg.BackoffMaxDuration()),
	)

	outcome := retry.Retry(retryParam, func() (struct{}, failure.ClassifiedError) {
		if err := w.pushToIndexer(ctx, pageURL, title, body); err != nil {
			return struct{}{}, &indexPushError{err: err}
		}
		return struct{}{}, nil
	})
	return outcome.Err()
}

type indexPushRequest struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type assignTaskResponse struct {
	Status  string `json:"status"`
	LeaseID string `json:"lease_id"`
	URL     string `json:"url"`
}

func (w *Worker) assignTask(ctx context.Context) (leaseID, rawURL string, ok bool, err error) {
	payload, err := json.Marshal(map[string]string{"worker_id": w.cfg.WorkerID()})
	if err != nil {
		return "", "", false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.CoordinatorURL()+"/assign_task", bytes.NewReader(payload))
	if err != nil {
		return "", "", false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", "", false, err
	}
	defer resp.Body.Close()

	var out assignTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", false, err
	}
	if out.Status == "no-task" || out.LeaseID == "" {
		return "", "", false, nil
	}
	return out.LeaseID, out.URL, true, nil
}

func (w *Worker) submitResult(ctx context.Context, leaseID string, success bool, extractedURLs []string, failErr string) error {
	payload, err := json.Marshal(map[string]any{
		"lease_id":       leaseID,
		"success":        success,
		"extracted_urls": extractedURLs,
		"error":          failErr,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.CoordinatorURL()+"/submit_result", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coordinator returned status %d", resp.StatusCode)
	}
	return nil
}

func (w *Worker) sendHeartbeat(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{"worker_id": w.cfg.WorkerID()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.CoordinatorURL()+"/heartbeat", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coordinator returned status %d", resp.StatusCode)
	}
	return nil
}
