// Package ledger defines the pull-based contract for retrieving usage events
// from the external event ledger, page by page. The consumer drives the
// cursor, which bounds memory and makes cancellation a matter of not asking
// for the next page.
package ledger

import (
	"context"
	"time"
)

// UsageEvent is one recorded inference request. Events are produced
// externally and never mutated here.
type UsageEvent struct {
	ID         string `db:"id" json:"id"`
	OrgID      string `db:"org_id" json:"org_id"`
	CustomerID string `db:"customer_id" json:"customer_id"`
	ModelID    string `db:"model_id" json:"model_id"`
	ProviderID string `db:"provider_id" json:"provider_id"`

	InputTokens  int64 `db:"input_tokens" json:"input_tokens"`
	OutputTokens int64 `db:"output_tokens" json:"output_tokens"`
	RequestCount int64 `db:"request_count" json:"request_count"`

	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// Query selects the event range to stream.
type Query struct {
	OrgID string
	Start time.Time
	End   time.Time
}

// Page is one batch of events. Done marks the normal end of the stream;
// otherwise NextCursor requests the following page.
type Page struct {
	Events     []UsageEvent
	NextCursor string
	Done       bool
}

// Ledger streams usage events in pages. Implementations must return pages in
// stable order for a fixed query so re-running an aggregation yields
// identical totals.
type Ledger interface {
	NextPage(ctx context.Context, q Query, cursor string) (Page, error)
}
