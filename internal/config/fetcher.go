package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FetcherConfig holds everything a fetcher worker process needs: where to
// register with the coordinator, politeness/retry parameters, and its own
// identity for heartbeats.
type FetcherConfig struct {
	coordinatorURL string
	indexerURL     string
	workerID       string
	userAgent      string
	bindAddr       string

	concurrency int
	baseDelay   time.Duration
	jitter      time.Duration
	randomSeed  int64
	timeout     time.Duration

	maxAttempt             int
	backoffInitialDuration time.Duration
	backoffMultiplier      float64
	backoffMaxDuration     time.Duration

	heartbeatInterval time.Duration
	pollEmptyDelay    time.Duration
	pollMaxBackoff    time.Duration
}

type fetcherConfigDTO struct {
	CoordinatorURL         string        `json:"coordinatorUrl"`
	IndexerURL             string        `json:"indexerUrl,omitempty"`
	BindAddr               string        `json:"bindAddr,omitempty"`
	WorkerID               string        `json:"workerId,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty"`
	Concurrency            int           `json:"concurrency,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
	HeartbeatInterval      time.Duration `json:"heartbeatInterval,omitempty"`
	PollEmptyDelay         time.Duration `json:"pollEmptyDelay,omitempty"`
	PollMaxBackoff         time.Duration `json:"pollMaxBackoff,omitempty"`
}

// WithDefaultFetcherConfig creates a FetcherConfig pointed at the given
// coordinator URL, with defaults for everything else.
func WithDefaultFetcherConfig(coordinatorURL string) *FetcherConfig {
	return &FetcherConfig{
		coordinatorURL:         coordinatorURL,
		indexerURL:             "http://localhost:8082",
		bindAddr:               ":8083",
		userAgent:              "distributed-web-crawler/1.0",
		concurrency:            4,
		baseDelay:              time.Second,
		jitter:                 250 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		timeout:                10 * time.Second,
		maxAttempt:             5,
		backoffInitialDuration: 200 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		heartbeatInterval:      15 * time.Second,
		pollEmptyDelay:         1 * time.Second,
		pollMaxBackoff:         10 * time.Second,
	}
}

func (c *FetcherConfig) WithIndexerURL(url string) *FetcherConfig {
	c.indexerURL = url
	return c
}

func (c *FetcherConfig) WithBindAddr(addr string) *FetcherConfig {
	c.bindAddr = addr
	return c
}

func (c *FetcherConfig) WithWorkerID(id string) *FetcherConfig {
	c.workerID = id
	return c
}

func (c *FetcherConfig) WithUserAgent(ua string) *FetcherConfig {
	c.userAgent = ua
	return c
}

func (c *FetcherConfig) WithConcurrency(n int) *FetcherConfig {
	c.concurrency = n
	return c
}

func (c *FetcherConfig) WithBaseDelay(d time.Duration) *FetcherConfig {
	c.baseDelay = d
	return c
}

func (c *FetcherConfig) WithJitter(d time.Duration) *FetcherConfig {
	c.jitter = d
	return c
}

func (c *FetcherConfig) WithRandomSeed(seed int64) *FetcherConfig {
	c.randomSeed = seed
	return c
}

func (c *FetcherConfig) WithTimeout(d time.Duration) *FetcherConfig {
	c.timeout = d
	return c
}

func (c *FetcherConfig) WithMaxAttempt(n int) *FetcherConfig {
	c.maxAttempt = n
	return c
}

func (c *FetcherConfig) WithBackoffInitialDuration(d time.Duration) *FetcherConfig {
	c.backoffInitialDuration = d
	return c
}

func (c *FetcherConfig) WithBackoffMultiplier(m float64) *FetcherConfig {
	c.backoffMultiplier = m
	return c
}

func (c *FetcherConfig) WithBackoffMaxDuration(d time.Duration) *FetcherConfig {
	c.backoffMaxDuration = d
	return c
}

func (c *FetcherConfig) WithHeartbeatInterval(d time.Duration) *FetcherConfig {
	c.heartbeatInterval = d
	return c
}

func (c *FetcherConfig) WithPollEmptyDelay(d time.Duration) *FetcherConfig {
	c.pollEmptyDelay = d
	return c
}

func (c *FetcherConfig) WithPollMaxBackoff(d time.Duration) *FetcherConfig {
	c.pollMaxBackoff = d
	return c
}

// Build validates the config and returns an immutable copy.
func (c *FetcherConfig) Build() (FetcherConfig, error) {
	if c.coordinatorURL == "" {
		return FetcherConfig{}, fmt.Errorf("%w: coordinatorUrl cannot be empty", ErrInvalidConfig)
	}
	return *c, nil
}

func (c FetcherConfig) CoordinatorURL() string               { return c.coordinatorURL }
func (c FetcherConfig) IndexerURL() string                    { return c.indexerURL }
func (c FetcherConfig) BindAddr() string                      { return c.bindAddr }
func (c FetcherConfig) WorkerID() string                     { return c.workerID }
func (c FetcherConfig) UserAgent() string                     { return c.userAgent }
func (c FetcherConfig) Concurrency() int                      { return c.concurrency }
func (c FetcherConfig) BaseDelay() time.Duration               { return c.baseDelay }
func (c FetcherConfig) Jitter() time.Duration                  { return c.jitter }
func (c FetcherConfig) RandomSeed() int64                      { return c.randomSeed }
func (c FetcherConfig) Timeout() time.Duration                 { return c.timeout }
func (c FetcherConfig) MaxAttempt() int                        { return c.maxAttempt }
func (c FetcherConfig) BackoffInitialDuration() time.Duration  { return c.backoffInitialDuration }
func (c FetcherConfig) BackoffMultiplier() float64              { return c.backoffMultiplier }
func (c FetcherConfig) BackoffMaxDuration() time.Duration       { return c.backoffMaxDuration }
func (c FetcherConfig) HeartbeatInterval() time.Duration        { return c.heartbeatInterval }
func (c FetcherConfig) PollEmptyDelay() time.Duration            { return c.pollEmptyDelay }
func (c FetcherConfig) PollMaxBackoff() time.Duration            { return c.pollMaxBackoff }

// WithFetcherConfigFile loads a FetcherConfig from a JSON file, layering it
// over the defaults.
func WithFetcherConfigFile(path string) (FetcherConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return FetcherConfig{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return FetcherConfig{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto fetcherConfigDTO
	if err := json.Unmarshal(content, &dto); err != nil {
		return FetcherConfig{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	if dto.CoordinatorURL == "" {
		return FetcherConfig{}, fmt.Errorf("%w: coordinatorUrl cannot be empty", ErrInvalidConfig)
	}

	cfg := WithDefaultFetcherConfig(dto.CoordinatorURL)
	if dto.IndexerURL != "" {
		cfg.indexerURL = dto.IndexerURL
	}
	if dto.BindAddr != "" {
		cfg.bindAddr = dto.BindAddr
	}
	if dto.WorkerID != "" {
		cfg.workerID = dto.WorkerID
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.HeartbeatInterval != 0 {
		cfg.heartbeatInterval = dto.HeartbeatInterval
	}
	if dto.PollEmptyDelay != 0 {
		cfg.pollEmptyDelay = dto.PollEmptyDelay
	}
	if dto.PollMaxBackoff != 0 {
		cfg.pollMaxBackoff = dto.PollMaxBackoff
	}

	return cfg.Build()
}
