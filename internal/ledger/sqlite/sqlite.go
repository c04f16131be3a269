package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/usage-metrics-api/internal/ledger"
)

const defaultPageSize = 500

// Store is a sqlite-backed ledger.Ledger. Pages are keyset-paginated on
// (created_at, id) so the order is stable across reruns of the same query.
type Store struct {
	db       *sqlx.DB
	pageSize int
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, pageSize: defaultPageSize}
}

// WithPageSize overrides the page size; mostly for tests.
func (s *Store) WithPageSize(n int) *Store {
	s.pageSize = n
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records a usage event. Used by the seeder and by ingestion.
func (s *Store) Insert(ctx context.Context, e *ledger.UsageEvent) error {
	query := `
	INSERT INTO usage_events (
		id, org_id, customer_id, model_id, provider_id,
		input_tokens, output_tokens, request_count, created_at
	) VALUES (
		:id, :org_id, :customer_id, :model_id, :provider_id,
		:input_tokens, :output_tokens, :request_count, :created_at
	)`
	_, err := s.db.NamedExecContext(ctx, query, e)
	return err
}

// NextPage implements ledger.Ledger.
func (s *Store) NextPage(ctx context.Context, q ledger.Query, cursor string) (ledger.Page, error) {
	after, afterID, err := decodeCursor(cursor)
	if err != nil {
		return ledger.Page{}, err
	}

	query := `
		SELECT id, org_id, customer_id, model_id, provider_id,
		       input_tokens, output_tokens, request_count, created_at
		FROM usage_events
		WHERE org_id = ?
		  AND created_at >= ?
		  AND created_at < ?
		  AND (created_at > ? OR (created_at = ? AND id > ?))
		ORDER BY created_at, id
		LIMIT ?
	`

	var events []ledger.UsageEvent
	err = s.db.SelectContext(ctx, &events, query,
		q.OrgID, q.Start, q.End, after, after, afterID, s.pageSize+1)
	if err != nil {
		return ledger.Page{}, fmt.Errorf("failed to query usage events: %w", err)
	}

	page := ledger.Page{Events: events}
	if len(events) > s.pageSize {
		page.Events = events[:s.pageSize]
		last := page.Events[len(page.Events)-1]
		page.NextCursor = encodeCursor(last.Timestamp, last.ID)
	} else {
		page.Done = true
	}

	return page, nil
}

func encodeCursor(ts time.Time, id string) string {
	return strconv.FormatInt(ts.UnixNano(), 10) + ":" + id
}

func decodeCursor(cursor string) (time.Time, string, error) {
	if cursor == "" {
		return time.Unix(0, 0).UTC(), "", nil
	}

	nanos, id, ok := strings.Cut(cursor, ":")
	if !ok {
		return time.Time{}, "", fmt.Errorf("malformed cursor %q", cursor)
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed cursor %q: %w", cursor, err)
	}
	return time.Unix(0, n).UTC(), id, nil
}
