package robots

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Trimbex/distributed-web-crawler/internal/logging"
	"github.com/Trimbex/distributed-web-crawler/internal/robots/cache"
)

/*
Responsibilities

- Fetch robots.txt per host
- Cache parsed rules per host for ruleSetTTL
- Enforce allow/disallow rules before a page is fetched

The fetcher worker runs the robots check on each leased URL before it
fetches the page. A CachedRobot is
reused across many Decide calls for the same worker; the rule cache is
keyed by scheme+host so different hosts never share a ruleSet.
*/

// ruleSetTTL bounds how long a cached robots.txt ruleSet is trusted before
// ruleSetFor re-fetches it.
const ruleSetTTL = time.Hour

// fetchFailureCrawlDelay is the conservative per-host delay assumed when
// robots.txt itself could not be fetched (network error or 5xx).
const fetchFailureCrawlDelay = 3 * time.Second

// CachedRobot decides whether a URL may be crawled under a given
// user agent, caching the robots.txt ruleSet per host.
type CachedRobot struct {
	state *robotState
}

type robotState struct {
	fetcher   *RobotsFetcher
	userAgent string
	log       logging.Logger

	mu    sync.RWMutex
	rules map[string]ruleSet
}

// NewCachedRobot creates a CachedRobot. Call Init or InitWithCache before
// the first Decide.
func NewCachedRobot(log logging.Logger) CachedRobot {
	return CachedRobot{
		state: &robotState{
			log:   log,
			rules: make(map[string]ruleSet),
		},
	}
}

// Init wires the robot with a private in-memory robots.txt cache.
func (r CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewMemoryCache())
}

// InitWithCache wires the robot with the given robots.txt response cache.
func (r CachedRobot) InitWithCache(userAgent string, c cache.Cache) {
	r.state.userAgent = userAgent
	r.state.fetcher = NewRobotsFetcher(r.state.log, userAgent, c)
}

// Decide fetches (or reuses a cached) robots.txt ruleSet for target's host
// and evaluates whether target may be crawled.
func (r CachedRobot) Decide(target url.URL) (Decision, *RobotsError) {
	host := target.Host
	if host == "" {
		return Decision{}, &RobotsError{
			Message:   "url has no host",
			Retryable: false,
			Cause:     ErrCauseInvalidRobotsUrl,
		}
	}

	rs, err := r.ruleSetFor(target.Scheme, host)
	if err != nil {
		return Decision{}, err
	}

	return decideFromRuleSet(target, rs), nil
}

func (r CachedRobot) ruleSetFor(scheme, host string) (ruleSet, *RobotsError) {
	if scheme == "" {
		scheme = "https"
	}
	key := scheme + "://" + host

	r.state.mu.RLock()
	if rs, ok := r.state.rules[key]; ok && time.Since(rs.FetchedAt()) < ruleSetTTL {
		r.state.mu.RUnlock()
		return rs, nil
	}
	r.state.mu.RUnlock()

	result, err := r.state.fetcher.Fetch(context.Background(), scheme, host)

	var rs ruleSet
	switch {
	case err == nil:
		rs = MapResponseToRuleSet(result.Response, r.state.userAgent, result.FetchedAt)
	case isFetchFailureCause(err.Cause):
		// Network error or 5xx: assume allowed, but crawl conservatively
		// until the next TTL refresh gives robots.txt a chance to answer.
		rs = conservativeRuleSet(host)
	default:
		return ruleSet{}, err
	}

	r.state.mu.Lock()
	r.state.rules[key] = rs
	r.state.mu.Unlock()

	return rs, nil
}

// isFetchFailureCause reports whether cause represents a transport-level
// failure to retrieve robots.txt, as opposed to a parse or usage error.
func isFetchFailureCause(cause RobotsErrorCause) bool {
	return cause == ErrCauseHttpFetchFailure || cause == ErrCauseHttpServerError
}

// conservativeRuleSet is the synthetic ruleSet used when robots.txt could
// not be fetched: it permits everything but applies fetchFailureCrawlDelay.
func conservativeRuleSet(host string) ruleSet {
	delay := fetchFailureCrawlDelay
	return ruleSet{
		host:        host,
		hasGroups:   false,
		crawlDelay:  &delay,
		fetchedAt:   time.Now(),
		fetchFailed: true,
	}
}

// decideFromRuleSet applies the standard robots.txt precedence rule: the
// longest matching pattern wins; ties favor Allow.
func decideFromRuleSet(target url.URL, rs ruleSet) Decision {
	var crawlDelay time.Duration
	if rs.crawlDelay != nil {
		crawlDelay = *rs.crawlDelay
	}

	if !rs.hasGroups {
		reason := EmptyRuleSet
		if rs.fetchFailed {
			reason = FetchFailedAssumeAllowed
		}
		return Decision{Url: target, Allowed: true, Reason: reason, CrawlDelay: crawlDelay}
	}
	if !rs.matchedGroup {
		return Decision{Url: target, Allowed: true, Reason: UserAgentNotMatched, CrawlDelay: crawlDelay}
	}

	path := target.Path
	if path == "" {
		path = "/"
	}

	allowLen := longestMatch(rs.allowRules, path)
	disallowLen := longestMatch(rs.disallowRules, path)

	switch {
	case allowLen == 0 && disallowLen == 0:
		return Decision{Url: target, Allowed: true, Reason: NoMatchingRules, CrawlDelay: crawlDelay}
	case allowLen >= disallowLen:
		return Decision{Url: target, Allowed: true, Reason: AllowedByRobots, CrawlDelay: crawlDelay}
	default:
		return Decision{Url: target, Allowed: false, Reason: DisallowedByRobots, CrawlDelay: crawlDelay}
	}
}

// longestMatch returns the length of the longest rule pattern matching
// path, or 0 if none match.
func longestMatch(rules []pathRule, path string) int {
	best := 0
	for _, rule := range rules {
		if len(rule.prefix) > best && matchesPath(rule.prefix, path) {
			best = len(rule.prefix)
		}
	}
	return best
}

// matchesPath interprets a robots.txt pattern: "*" matches any run of
// characters, and a trailing "$" anchors the match to the end of path.
func matchesPath(pattern, path string) bool {
	return compilePattern(pattern).MatchString(path)
}

func compilePattern(pattern string) *regexp.Regexp {
	endAnchor := strings.HasSuffix(pattern, "$")
	body := strings.TrimSuffix(pattern, "$")

	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range body {
		if r == '*' {
			sb.WriteString(".*")
		} else {
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if endAnchor {
		sb.WriteString("$")
	}

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return regexp.MustCompile(`\x00never-matches\x00`)
	}
	return re
}
