package frontier

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/Trimbex/distributed-web-crawler/pkg/fileutil"
	"github.com/Trimbex/distributed-web-crawler/pkg/urlutil"
)

/*
Frontier Responsibilities
- Maintain BFS ordering
- Deduplicate URLs
- Track crawl depth
- Own the lease table and worker registry for distributed dispatch
- Prevent infinite traversal
- Knows nothing about:
	- fetching
	- extraction
	- HTTP transport

It is a data structure + policy module, not a pipeline executor.
*/

// LeaseID opaquely identifies an in-flight dispatch of a single URL to a
// single worker.
type LeaseID string

// Lease is what a worker holds between Dispatch and Complete.
type Lease struct {
	ID       LeaseID
	WorkerID string
	Token    CrawlToken
	Deadline time.Time
}

// FrontierOptions bounds the scope of a crawl. Zero values mean unlimited
// (MaxAttempts zero is treated as 1: no retries).
type FrontierOptions struct {
	MaxDepth    int
	MaxPages    int
	MaxAttempts int
}

// CrawlFrontier owns SeenSet membership, FIFO ordering, the lease table,
// and the worker registry. All mutation is serialized by a single lock;
// invariants (a URL is pending or leased but never both, SeenSet admission
// precedes enqueue) hold across every exported method.
type CrawlFrontier struct {
	mu sync.Mutex

	opts FrontierOptions

	queue   *FIFOQueue[CrawlToken]
	seen    Set[string]
	failed  Set[string]
	visited Set[string]

	attempts map[string]int

	leasesByID  map[LeaseID]*Lease
	leasesByURL map[string]LeaseID

	workers map[string]time.Time

	leaseSeq uint64
}

// NewCrawlFrontier creates an empty frontier. Call Init before use.
func NewCrawlFrontier() *CrawlFrontier {
	return &CrawlFrontier{
		queue:       NewFIFOQueue[CrawlToken](),
		seen:        NewSet[string](),
		failed:      NewSet[string](),
		visited:     NewSet[string](),
		attempts:    make(map[string]int),
		leasesByID:  make(map[LeaseID]*Lease),
		leasesByURL: make(map[string]LeaseID),
		workers:     make(map[string]time.Time),
	}
}

// Init wires the frontier's admission limits. Zero-value FrontierOptions
// means no depth limit, no page limit, and a single attempt per URL.
func (f *CrawlFrontier) Init(opts FrontierOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = opts
}

// Submit admits a candidate URL into the frontier if its canonical form
// has not been seen before, and if it passes the depth/page-count limits.
// Returns true if this call caused admission.
func (f *CrawlFrontier) Submit(candidate CrawlAdmissionCandidate) bool {
	canon := urlutil.Canonicalize(candidate.TargetURL())
	key := canon.String()
	depth := candidate.DiscoveryMetadata().Depth()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.Contains(key) {
		return false
	}
	if f.opts.MaxDepth > 0 && depth > f.opts.MaxDepth {
		return false
	}
	if f.opts.MaxPages > 0 && f.seen.Size() >= f.opts.MaxPages {
		return false
	}

	f.seen.Add(key)
	f.queue.Enqueue(NewCrawlToken(canon, depth))
	return true
}

// Dequeue pops the next pending token without issuing a lease. Useful for
// single-process callers that don't need lease tracking.
func (f *CrawlFrontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Dequeue()
}

// Dispatch pops the next pending token and issues a lease to worker, or
// returns ok=false if the frontier has nothing pending.
func (f *CrawlFrontier) Dispatch(workerID string, leaseTimeout time.Duration) (Lease, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.queue.Dequeue()
	if !ok {
		return Lease{}, false
	}

	f.leaseSeq++
	lease := &Lease{
		ID:       LeaseID(fmt.Sprintf("lease-%d", f.leaseSeq)),
		WorkerID: workerID,
		Token:    token,
		Deadline: time.Now().Add(leaseTimeout),
	}

	tokenURL := token.URL()
	key := tokenURL.String()
	f.leasesByID[lease.ID] = lease
	f.leasesByURL[key] = lease.ID
	if _, known := f.workers[workerID]; !known {
		f.workers[workerID] = time.Now()
	}

	return *lease, true
}

// Complete resolves a lease. On success the URL is marked visited. On
// failure the URL is re-admitted at the tail of the queue up to
// MaxAttempts, after which it becomes terminally failed. The caller is
// responsible for Submit-ing any links extracted on success.
//
// Returns the lease's URL and true when the lease is found. An unknown
// lease id (already resolved, or expired and swept) returns an empty URL
// and false — it is ignored, not an error.
func (f *CrawlFrontier) Complete(id LeaseID, success bool) (url.URL, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lease, ok := f.leasesByID[id]
	if !ok {
		return url.URL{}, false
	}
	f.resolveLease(lease, success)
	return lease.Token.URL(), true
}

// resolveLease removes a lease from the tables and applies success/retry
// bookkeeping. Caller must hold f.mu.
func (f *CrawlFrontier) resolveLease(lease *Lease, success bool) {
	delete(f.leasesByID, lease.ID)
	leaseURL := lease.Token.URL()
	key := leaseURL.String()
	delete(f.leasesByURL, key)

	if success {
		f.visited.Add(key)
		return
	}

	f.attempts[key]++
	maxAttempts := f.opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if f.attempts[key] < maxAttempts {
		f.queue.Enqueue(lease.Token)
	} else {
		f.failed.Add(key)
	}
}

// Heartbeat records worker liveness at the given time.
func (f *CrawlFrontier) Heartbeat(workerID string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workers[workerID] = at
}

// Sweep reclaims leases past their deadline or belonging to a worker whose
// heartbeat is older than heartbeatTimeout, treating each as a failure for
// retry accounting. Returns the number of leases reclaimed.
func (f *CrawlFrontier) Sweep(now time.Time, heartbeatTimeout time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var expired []*Lease
	for _, lease := range f.leasesByID {
		dead := false
		if last, ok := f.workers[lease.WorkerID]; ok {
			dead = now.Sub(last) > heartbeatTimeout
		}
		if !lease.Deadline.After(now) || dead {
			expired = append(expired, lease)
		}
	}

	for _, lease := range expired {
		f.resolveLease(lease, false)
	}
	return len(expired)
}

// Counters is a point-in-time snapshot of frontier state for /status.
type Counters struct {
	Queued       int
	InFlight     int
	Visited      int
	Failed       int
	WorkersAlive int
}

// Status computes counters. A worker counts as alive if its last
// heartbeat is within heartbeatTimeout of now.
func (f *CrawlFrontier) Status(now time.Time, heartbeatTimeout time.Duration) Counters {
	f.mu.Lock()
	defer f.mu.Unlock()

	alive := 0
	for _, last := range f.workers {
		if now.Sub(last) <= heartbeatTimeout {
			alive++
		}
	}

	return Counters{
		Queued:       f.queue.Size(),
		InFlight:     len(f.leasesByID),
		Visited:      f.visited.Size(),
		Failed:       f.failed.Size(),
		WorkersAlive: alive,
	}
}

// VisitedCount returns the number of URLs whose crawl completed
// successfully.
func (f *CrawlFrontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}

// snapshotDTO is the on-disk representation of persisted frontier state:
// SeenSet, frontier queue, terminal-failure set, and the lease id counter.
// Leases are intentionally not persisted; they are discarded on restart.
type snapshotDTO struct {
	Version       int        `json:"version"`
	SeenURLs      []string   `json:"seen_urls"`
	FrontierQueue []tokenDTO `json:"frontier_queue"`
	FailedURLs    []string   `json:"failed_urls"`
	TaskCounter   uint64     `json:"task_counter"`
}

type tokenDTO struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// Snapshot serializes SeenSet, frontier queue, and failed set to JSON.
func (f *CrawlFrontier) Snapshot() ([]byte, error) {
	f.mu.Lock()
	seenURLs := make([]string, 0, f.seen.Size())
	for k := range f.seen {
		seenURLs = append(seenURLs, k)
	}
	failedURLs := make([]string, 0, f.failed.Size())
	for k := range f.failed {
		failedURLs = append(failedURLs, k)
	}
	queued := make([]tokenDTO, 0, f.queue.Size())
	for _, t := range *f.queue {
		tokenURL := t.URL()
		queued = append(queued, tokenDTO{URL: tokenURL.String(), Depth: t.Depth()})
	}
	counter := f.leaseSeq
	f.mu.Unlock()

	return json.MarshalIndent(snapshotDTO{
		Version:       1,
		SeenURLs:      seenURLs,
		FrontierQueue: queued,
		FailedURLs:    failedURLs,
		TaskCounter:   counter,
	}, "", "  ")
}

// WriteSnapshot persists the frontier to path using a temp-file-then-rename
// write, so a crash mid-write never leaves a corrupt snapshot on disk.
func (f *CrawlFrontier) WriteSnapshot(path string) error {
	data, err := f.Snapshot()
	if err != nil {
		return err
	}
	if classified := fileutil.WriteAtomic(path, data); classified != nil {
		return classified
	}
	return nil
}

// LoadSnapshot restores SeenSet, frontier queue, and failed set from JSON
// produced by Snapshot. Outstanding leases are not restored — the frontier
// starts with none, matching the restart semantics of the control plane.
func (f *CrawlFrontier) LoadSnapshot(data []byte) error {
	var dto snapshotDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = NewSet[string]()
	for _, u := range dto.SeenURLs {
		f.seen.Add(u)
	}
	f.failed = NewSet[string]()
	for _, u := range dto.FailedURLs {
		f.failed.Add(u)
	}
	f.queue = NewFIFOQueue[CrawlToken]()
	for _, t := range dto.FrontierQueue {
		parsed, err := url.Parse(t.URL)
		if err != nil {
			continue
		}
		f.queue.Enqueue(NewCrawlToken(*parsed, t.Depth))
	}
	f.leaseSeq = dto.TaskCounter
	f.leasesByID = make(map[LeaseID]*Lease)
	f.leasesByURL = make(map[string]LeaseID)
	f.visited = NewSet[string]()

	return nil
}

// ReadSnapshot loads a frontier from a snapshot file written by
// WriteSnapshot. A missing file is not restored; the caller decides
// whether that is a fresh start or an error.
func ReadSnapshot(path string) (*CrawlFrontier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := NewCrawlFrontier()
	if err := f.LoadSnapshot(data); err != nil {
		return nil, err
	}
	return f, nil
}
