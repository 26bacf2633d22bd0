package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// CoordinatorConfig holds everything the coordinator binary needs: the
// admission policy (allowed hosts, seed URLs), the lease/sweep timing
// governing the frontier, and where to persist state.
type CoordinatorConfig struct {
	seedURLs          []string
	allowedHosts      map[string]struct{}
	allowedPathPrefix []string

	maxDepth int
	maxPages int

	heartbeatTimeout time.Duration
	sweepInterval    time.Duration
	leaseTimeout     time.Duration
	maxAttempts      int

	bindAddr string

	snapshotPath     string
	snapshotInterval time.Duration

	pendingSeedLogPath       string
	pendingSeedRetryInterval time.Duration

	shutdownGracePeriod time.Duration

	transportKind string
	redisAddr     string
}

type coordinatorConfigDTO struct {
	SeedURLs                 []string            `json:"seedUrls"`
	AllowedHosts              map[string]struct{} `json:"allowedHosts,omitempty"`
	AllowedPathPrefix         []string            `json:"allowedPathPrefix,omitempty"`
	MaxDepth                  int                 `json:"maxDepth,omitempty"`
	MaxPages                  int                 `json:"maxPages,omitempty"`
	HeartbeatTimeout          time.Duration       `json:"heartbeatTimeout,omitempty"`
	SweepInterval             time.Duration       `json:"sweepInterval,omitempty"`
	LeaseTimeout              time.Duration       `json:"leaseTimeout,omitempty"`
	MaxAttempts               int                 `json:"maxAttempts,omitempty"`
	BindAddr                  string              `json:"bindAddr,omitempty"`
	SnapshotPath              string              `json:"snapshotPath,omitempty"`
	SnapshotInterval          time.Duration       `json:"snapshotInterval,omitempty"`
	PendingSeedLogPath        string              `json:"pendingSeedLogPath,omitempty"`
	PendingSeedRetryInterval  time.Duration       `json:"pendingSeedRetryInterval,omitempty"`
	ShutdownGracePeriod       time.Duration       `json:"shutdownGracePeriod,omitempty"`
	TransportKind             string              `json:"transportKind,omitempty"`
	RedisAddr                 string              `json:"redisAddr,omitempty"`
}

// WithDefaultCoordinatorConfig creates a CoordinatorConfig with the given
// seed URLs and defaults for everything else.
func WithDefaultCoordinatorConfig(seedURLs []string) *CoordinatorConfig {
	return &CoordinatorConfig{
		seedURLs:                 seedURLs,
		allowedHosts:             map[string]struct{}{},
		allowedPathPrefix:        []string{"/"},
		maxDepth:                 5,
		maxPages:                 0, // 0 == unbounded
		heartbeatTimeout:         60 * time.Second,
		sweepInterval:            10 * time.Second,
		leaseTimeout:             120 * time.Second,
		maxAttempts:              3,
		bindAddr:                 ":8081",
		snapshotPath:             "coordinator-snapshot.json",
		snapshotInterval:         30 * time.Second,
		pendingSeedLogPath:       "pending-seeds.log",
		pendingSeedRetryInterval: 60 * time.Second,
		shutdownGracePeriod:      15 * time.Second,
		transportKind:            "inprocess",
	}
}

func (c *CoordinatorConfig) WithSeedURLs(urls []string) *CoordinatorConfig {
	c.seedURLs = urls
	return c
}

func (c *CoordinatorConfig) WithAllowedHosts(hosts map[string]struct{}) *CoordinatorConfig {
	c.allowedHosts = hosts
	return c
}

func (c *CoordinatorConfig) WithAllowedPathPrefix(prefixes []string) *CoordinatorConfig {
	c.allowedPathPrefix = prefixes
	return c
}

func (c *CoordinatorConfig) WithMaxDepth(depth int) *CoordinatorConfig {
	c.maxDepth = depth
	return c
}

func (c *CoordinatorConfig) WithMaxPages(pages int) *CoordinatorConfig {
	c.maxPages = pages
	return c
}

func (c *CoordinatorConfig) WithHeartbeatTimeout(d time.Duration) *CoordinatorConfig {
	c.heartbeatTimeout = d
	return c
}

func (c *CoordinatorConfig) WithSweepInterval(d time.Duration) *CoordinatorConfig {
	c.sweepInterval = d
	return c
}

func (c *CoordinatorConfig) WithLeaseTimeout(d time.Duration) *CoordinatorConfig {
	c.leaseTimeout = d
	return c
}

func (c *CoordinatorConfig) WithMaxAttempts(n int) *CoordinatorConfig {
	c.maxAttempts = n
	return c
}

func (c *CoordinatorConfig) WithBindAddr(addr string) *CoordinatorConfig {
	c.bindAddr = addr
	return c
}

func (c *CoordinatorConfig) WithSnapshotPath(path string) *CoordinatorConfig {
	c.snapshotPath = path
	return c
}

func (c *CoordinatorConfig) WithSnapshotInterval(d time.Duration) *CoordinatorConfig {
	c.snapshotInterval = d
	return c
}

func (c *CoordinatorConfig) WithPendingSeedLogPath(path string) *CoordinatorConfig {
	c.pendingSeedLogPath = path
	return c
}

func (c *CoordinatorConfig) WithPendingSeedRetryInterval(d time.Duration) *CoordinatorConfig {
	c.pendingSeedRetryInterval = d
	return c
}

func (c *CoordinatorConfig) WithShutdownGracePeriod(d time.Duration) *CoordinatorConfig {
	c.shutdownGracePeriod = d
	return c
}

func (c *CoordinatorConfig) WithTransportKind(kind string) *CoordinatorConfig {
	c.transportKind = kind
	return c
}

func (c *CoordinatorConfig) WithRedisAddr(addr string) *CoordinatorConfig {
	c.redisAddr = addr
	return c
}

// Build validates the config and returns an immutable copy.
func (c *CoordinatorConfig) Build() (CoordinatorConfig, error) {
	if len(c.allowedHosts) == 0 {
		c.allowedHosts = make(map[string]struct{})
		for _, raw := range c.seedURLs {
			if host := hostOf(raw); host != "" {
				c.allowedHosts[host] = struct{}{}
			}
		}
	}
	return *c, nil
}

func (c CoordinatorConfig) SeedURLs() []string {
	out := make([]string, len(c.seedURLs))
	copy(out, c.seedURLs)
	return out
}

func (c CoordinatorConfig) AllowedHosts() map[string]struct{} {
	out := make(map[string]struct{}, len(c.allowedHosts))
	for k, v := range c.allowedHosts {
		out[k] = v
	}
	return out
}

func (c CoordinatorConfig) AllowedPathPrefix() []string {
	out := make([]string, len(c.allowedPathPrefix))
	copy(out, c.allowedPathPrefix)
	return out
}

func (c CoordinatorConfig) MaxDepth() int                            { return c.maxDepth }
func (c CoordinatorConfig) MaxPages() int                            { return c.maxPages }
func (c CoordinatorConfig) HeartbeatTimeout() time.Duration          { return c.heartbeatTimeout }
func (c CoordinatorConfig) SweepInterval() time.Duration             { return c.sweepInterval }
func (c CoordinatorConfig) LeaseTimeout() time.Duration              { return c.leaseTimeout }
func (c CoordinatorConfig) MaxAttempts() int                         { return c.maxAttempts }
func (c CoordinatorConfig) BindAddr() string                         { return c.bindAddr }
func (c CoordinatorConfig) SnapshotPath() string                     { return c.snapshotPath }
func (c CoordinatorConfig) SnapshotInterval() time.Duration          { return c.snapshotInterval }
func (c CoordinatorConfig) PendingSeedLogPath() string                { return c.pendingSeedLogPath }
func (c CoordinatorConfig) PendingSeedRetryInterval() time.Duration   { return c.pendingSeedRetryInterval }
func (c CoordinatorConfig) ShutdownGracePeriod() time.Duration       { return c.shutdownGracePeriod }
func (c CoordinatorConfig) TransportKind() string                     { return c.transportKind }
func (c CoordinatorConfig) RedisAddr() string                         { return c.redisAddr }

// WithCoordinatorConfigFile loads a CoordinatorConfig from a JSON file,
// layering it over the defaults the same way WithDefaultCoordinatorConfig does.
func WithCoordinatorConfigFile(path string) (CoordinatorConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return CoordinatorConfig{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return CoordinatorConfig{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto coordinatorConfigDTO
	if err := json.Unmarshal(content, &dto); err != nil {
		return CoordinatorConfig{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	if len(dto.SeedURLs) == 0 {
		return CoordinatorConfig{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}

	cfg := WithDefaultCoordinatorConfig(dto.SeedURLs)
	if len(dto.AllowedHosts) > 0 {
		cfg.allowedHosts = dto.AllowedHosts
	}
	if len(dto.AllowedPathPrefix) > 0 {
		cfg.allowedPathPrefix = dto.AllowedPathPrefix
	}
	if dto.MaxDepth != 0 {
		cfg.maxDepth = dto.MaxDepth
	}
	if dto.MaxPages != 0 {
		cfg.maxPages = dto.MaxPages
	}
	if dto.HeartbeatTimeout != 0 {
		cfg.heartbeatTimeout = dto.HeartbeatTimeout
	}
	if dto.SweepInterval != 0 {
		cfg.sweepInterval = dto.SweepInterval
	}
	if dto.LeaseTimeout != 0 {
		cfg.leaseTimeout = dto.LeaseTimeout
	}
	if dto.MaxAttempts != 0 {
		cfg.maxAttempts = dto.MaxAttempts
	}
	if dto.BindAddr != "" {
		cfg.bindAddr = dto.BindAddr
	}
	if dto.SnapshotPath != "" {
		cfg.snapshotPath = dto.SnapshotPath
	}
	if dto.SnapshotInterval != 0 {
		cfg.snapshotInterval = dto.SnapshotInterval
	}
	if dto.PendingSeedLogPath != "" {
		cfg.pendingSeedLogPath = dto.PendingSeedLogPath
	}
	if dto.PendingSeedRetryInterval != 0 {
		cfg.pendingSeedRetryInterval = dto.PendingSeedRetryInterval
	}
	if dto.ShutdownGracePeriod != 0 {
		cfg.shutdownGracePeriod = dto.ShutdownGracePeriod
	}
	if dto.TransportKind != "" {
		cfg.transportKind = dto.TransportKind
	}
	if dto.RedisAddr != "" {
		cfg.redisAddr = dto.RedisAddr
	}

	return cfg.Build()
}

func hostOf(rawURL string) string {
	for i := 0; i < len(rawURL); i++ {
		if rawURL[i] == '/' && i+1 < len(rawURL) && rawURL[i+1] == '/' {
			rest := rawURL[i+2:]
			for j := 0; j < len(rest); j++ {
				if rest[j] == '/' {
					return rest[:j]
				}
			}
			return rest
		}
	}
	return ""
}
