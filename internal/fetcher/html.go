package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Trimbex/distributed-web-crawler/internal/logging"
	"github.com/Trimbex/distributed-web-crawler/pkg/failure"
)

/*
Responsibilities

- Perform HTTP requests
- Apply headers and timeouts
- Handle redirects safely
- Classify responses

Fetch Semantics

- Only successful HTML responses are processed
- Non-HTML content is discarded
- Redirect chains are bounded
- All responses are logged

The fetcher never parses content itself; extraction is a separate step.
*/

type HtmlFetcher struct {
	log        logging.Logger
	httpClient *http.Client
}

func NewHtmlFetcher(log logging.Logger) HtmlFetcher {
	return HtmlFetcher{
		log:        log,
		httpClient: &http.Client{},
	}
}

// Init swaps in a caller-supplied http.Client, letting callers control
// timeouts, redirect policy, and transport pooling.
func (h *HtmlFetcher) Init(httpClient *http.Client) {
	h.httpClient = httpClient
}

// Fetch performs exactly one HTTP attempt and classifies the outcome. It
// never retries: the Coordinator owns cross-attempt retry policy.
func (h *HtmlFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	startTime := time.Now()

	result, err := h.performFetch(ctx, fetchParam.fetchUrl, fetchParam.userAgent)

	duration := time.Since(startTime)

	if err != nil {
		h.log.Warn("fetch failed",
			logging.String("url", fetchParam.fetchUrl.String()),
			logging.Int("depth", crawlDepth),
			logging.Duration("duration", duration),
			logging.Err(err),
		)
		return FetchResult{}, err
	}

	h.log.Debug("fetch succeeded",
		logging.String("url", fetchParam.fetchUrl.String()),
		logging.Int("status", result.Code()),
		logging.Int("depth", crawlDepth),
		logging.Duration("duration", duration),
		logging.Uint64("size_bytes", result.SizeByte()),
	)

	return result, nil
}

func (h *HtmlFetcher) performFetch(ctx context.Context, fetchUrl url.URL, userAgent string) (FetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	headers := requestHeaders(userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseRequest5xx,
		}

	case resp.StatusCode == 429:
		return FetchResult{}, &FetchError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseRequestTooMany,
		}

	case resp.StatusCode == 403:
		return FetchResult{}, &FetchError{
			Message:   "access forbidden (403)",
			Retryable: false,
			Cause:     ErrCauseRequestPageForbidden,
		}

	case resp.StatusCode == 408:
		return FetchResult{}, &FetchError{
			Message:   "request timeout (408)",
			Retryable: true,
			Cause:     ErrCauseRequestTimeout,
		}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("client error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRequestPageForbidden,
		}

	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// http.Client follows redirects itself and returns an error from Do
		// when the chain is too long; a 3xx reaches here only when the client
		// did not follow it (for example, a response without a Location header).
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("redirect error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRedirectLimitExceeded,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContent(contentType) {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("non-HTML content type: %s", contentType),
			Retryable: false,
			Cause:     ErrCauseContentTypeInvalid,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	finalURL := fetchUrl
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = *resp.Request.URL
	}

	result := FetchResult{
		url:  finalURL,
		body: body,
		meta: ResponseMeta{
			statusCode:      resp.StatusCode,
			responseHeaders: responseHeaders,
		},
		fetchedAt: time.Now(),
	}

	return result, nil
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate, br",
		"DNT":             "1",
		"Connection":      "keep-alive",
	}
}
