package geodex

import (
	"context"
	"time"

	"github.com/kailas-cloud/geodex/internal/domain/batch"
)

// Index stores image metadata. Missing IDs are generated and missing site codes
// are detected from the position. The result is parallel to images; failed
// items carry their error.
func (c *Client) Index(ctx context.Context, images ...Image) []Result {
	start := time.Now()
	results := c.batchSvc.Index(ctx, images)
	c.obs.observe("image.index", start, batch.FirstError(results))
	return results
}

// Counts tallies the outcome of Index.
func Counts(results []Result) (succeeded, failed int) {
	return batch.Tally(results)
}
