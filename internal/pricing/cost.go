// Package pricing computes billing-grade request costs against a catalog
// snapshot. All arithmetic is integer fixed-point (nano-units of currency) so
// sums over millions of events carry zero rounding loss.
package pricing

import (
	"errors"

	"github.com/nulzo/usage-metrics-api/internal/catalog"
)

// ErrUnpriced marks a model/provider pair with no published price. This is a
// valid state, not a failure: the cost is unknown and must surface as "N/A",
// never as zero.
var ErrUnpriced = errors.New("no published price")

// Nanos is a currency amount in billionths of a currency unit.
type Nanos int64

// ComputeCost prices a single request. It returns ErrUnpriced for unpriced
// offerings and wraps catalog.ErrModelNotFound / catalog.ErrProviderNotFound
// for bad references; callers quarantine those records and continue.
func ComputeCost(c *catalog.Catalog, modelID, providerID string, inputTokens, outputTokens, requestCount int64) (Nanos, error) {
	p, err := c.Lookup(modelID, providerID)
	if err != nil {
		return 0, err
	}
	if !p.Priced {
		return 0, ErrUnpriced
	}

	amount := inputTokens*p.InputPriceNanos +
		outputTokens*p.OutputPriceNanos +
		requestCount*p.RequestPriceNanos

	return Nanos(amount), nil
}
