package fetcher

import (
	"context"
	"net/http"

	"github.com/Trimbex/distributed-web-crawler/pkg/failure"
)

// Fetcher performs a single classified HTTP attempt. Implementations never
// retry internally; the Coordinator centralizes cross-attempt retry policy.
type Fetcher interface {
	Init(httpClient *http.Client)
	Fetch(
		ctx context.Context,
		crawlDepth int,
		fetchParam FetchParam,
	) (FetchResult, failure.ClassifiedError)
}
