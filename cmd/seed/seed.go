package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/usage-metrics-api/internal/ledger"
	ledgersqlite "github.com/nulzo/usage-metrics-api/internal/ledger/sqlite"
	"go.uber.org/zap"
)

// Seeds the local ledger database with a few weeks of synthetic usage so the
// metrics endpoints have something to chart.
func main() {
	dsn := flag.String("dsn", "usage.db", "Ledger database path")
	org := flag.String("org", "org-demo", "Organization id to seed")
	days := flag.Int("days", 35, "Days of history to generate")
	perDay := flag.Int("per-day", 200, "Average events per day")
	flag.Parse()

	store, err := ledgersqlite.Open(*dsn, zap.NewNop())
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	customers := []string{"cust-acme", "cust-globex", "cust-initech", "cust-umbrella", "cust-hooli"}
	offerings := []struct {
		model    string
		provider string
	}{
		{"gpt-4o", "openai"},
		{"gpt-4-turbo", "openai"},
		{"claude-3-5-sonnet", "anthropic"},
		{"claude-3-haiku", "anthropic"},
		{"gemini-1.5-flash", "google-vertex"},
		{"mixtral-8x7b", "groq"},
		{"custom", "llmgateway"},
	}

	now := time.Now().UTC()
	total := 0

	for d := 0; d < *days; d++ {
		day := now.AddDate(0, 0, -d)
		n := *perDay/2 + rng.Intn(*perDay)

		for i := 0; i < n; i++ {
			offering := offerings[rng.Intn(len(offerings))]
			event := ledger.UsageEvent{
				ID:           uuid.New().String(),
				OrgID:        *org,
				CustomerID:   customers[rng.Intn(len(customers))],
				ModelID:      offering.model,
				ProviderID:   offering.provider,
				InputTokens:  int64(rng.Intn(8000) + 50),
				OutputTokens: int64(rng.Intn(2000) + 10),
				RequestCount: 1,
				Timestamp:    day.Add(-time.Duration(rng.Intn(24*60)) * time.Minute),
			}

			if err := store.Insert(ctx, &event); err != nil {
				log.Fatal(err)
			}
			total++
		}
	}

	fmt.Printf("Seeded %d usage events for %s into %s\n", total, *org, *dsn)
	fmt.Printf("Try: curl 'http://localhost:8080/v1/metrics?org_id=%s&range=30d' -H 'Authorization: Bearer <key>'\n", *org)
}
