package index

import "time"

// Document is one indexed page: title and body are analyzed and stored,
// url and host are exact keys, crawl_timestamp is stored only (never
// analyzed or searched).
type Document struct {
	URL            string
	Title          string
	Body           string
	Host           string
	CrawlTimestamp time.Time
}
