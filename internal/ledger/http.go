package ledger

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nulzo/usage-metrics-api/internal/httpclient"
)

// Client is an HTTP ledger.Ledger for a remote event ledger API exposing
// GET /events with cursor pagination.
type Client struct {
	baseURL string
	apiKey  string
	http    httpclient.HTTPClient
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type eventsResponse struct {
	Items      []UsageEvent `json:"items"`
	NextCursor string       `json:"next_cursor"`
	Done       bool         `json:"done"`
}

// NextPage implements Ledger.
func (c *Client) NextPage(ctx context.Context, q Query, cursor string) (Page, error) {
	params := url.Values{}
	params.Set("org_id", q.OrgID)
	params.Set("start", q.Start.UTC().Format(time.RFC3339))
	params.Set("end", q.End.UTC().Format(time.RFC3339))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	endpoint := fmt.Sprintf("%s/events?%s", c.baseURL, params.Encode())

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp eventsResponse
	if err := httpclient.GetJSON(ctx, c.http, endpoint, headers, &resp); err != nil {
		return Page{}, fmt.Errorf("ledger page fetch failed: %w", err)
	}

	return Page{
		Events:     resp.Items,
		NextCursor: resp.NextCursor,
		Done:       resp.Done || resp.NextCursor == "",
	}, nil
}
