package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/usage-metrics-api/internal/ledger"
	ledgersqlite "github.com/nulzo/usage-metrics-api/internal/ledger/sqlite"
	vegeta "github.com/tsenart/vegeta/v12/lib"
	"go.uber.org/zap"
)

const appPort = 8081

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	events := flag.Int("events", 50000, "Usage events to seed before attacking")
	rangeLabel := flag.String("range", "30d", "Range label to query")
	flag.Parse()

	// seed the bench ledger before the server opens it
	seedLedger("bench.db", *events)

	// build and start application
	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	// Create a temporary config file for the benchmark. The server reads
	// ./config.yaml, so refuse to clobber a real one.
	configFile := "config.yaml"
	if _, err := os.Stat(configFile); err == nil {
		log.Fatalf("%s already exists, refusing to overwrite it", configFile)
	}
	if err := os.WriteFile(configFile, []byte(benchConfig), 0644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer os.Remove(configFile)

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(), fmt.Sprintf("SERVER_PORT=%d", appPort))
	cmd.Env = append(cmd.Env, "LOG_LEVEL=error")

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/health", appPort))

	done := make(chan struct{})
	go func() {
		time.Sleep(2 * time.Second)
		monitorResources(cmd.Process.Pid, done)
	}()

	fmt.Printf("Running benchmark: %s duration, %d req/s, %d events, range=%s\n",
		*duration, *rate, *events, *rangeLabel)

	// The aggregation path is the interesting one: every request walks the
	// full event range for the org.
	targeter := func(t *vegeta.Target) error {
		t.Method = "GET"
		t.URL = fmt.Sprintf("http://localhost:%d/v1/metrics?org_id=org-bench&range=%s&metrics=cost,requests", appPort, *rangeLabel)
		t.Header = http.Header{
			"Authorization": []string{"Bearer bench-key-12345"},
		}
		return nil
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")

		uniqueErrors := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && count < 5 {
				fmt.Println(msg)

				uniqueErrors[msg] = true
				count++
			}
		}
	}

	// Cleanup
	os.Remove("bench.db")
}

func seedLedger(dsn string, n int) {
	os.Remove(dsn)

	store, err := ledgersqlite.Open(dsn, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to open bench ledger: %v", err)
	}
	defer store.Close()

	fmt.Printf("Seeding %d events into %s...\n", n, dsn)
	rng := rand.New(rand.NewSource(1))
	now := time.Now().UTC()
	ctx := context.Background()

	for i := 0; i < n; i++ {
		event := ledger.UsageEvent{
			ID:           uuid.New().String(),
			OrgID:        "org-bench",
			CustomerID:   fmt.Sprintf("cust-%d", rng.Intn(50)),
			ModelID:      "gpt-4o",
			ProviderID:   "openai",
			InputTokens:  int64(rng.Intn(4000) + 100),
			OutputTokens: int64(rng.Intn(1000) + 20),
			RequestCount: 1,
			Timestamp:    now.Add(-time.Duration(rng.Intn(30*24*60)) * time.Minute),
		}
		if err := store.Insert(ctx, &event); err != nil {
			log.Fatalf("Failed to seed event: %v", err)
		}
	}
}

func monitorResources(pid int, done chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	fmt.Println("\n--- Resource Usage (expvar + ps) ---")
	fmt.Printf("% -10s % -10s % -10s % -10s\n", "Time", "Heap(MB)", "Alloc(MB)", "CPU(%)")

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			resp, err := http.Get("http://127.0.0.1:6060/debug/vars")
			if err != nil {
				continue
			}

			var vars struct {
				MemStats struct {
					HeapInuse uint64 `json:"HeapInuse"`
					Alloc     uint64 `json:"Alloc"`
				} `json:"memstats"`
			}

			if err := json.NewDecoder(resp.Body).Decode(&vars); err != nil {
				resp.Body.Close()
				continue
			}
			resp.Body.Close()

			cpu := 0.0
			out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "%cpu").Output()
			if err == nil {
				lines := strings.Split(strings.TrimSpace(string(out)), "\n")
				if len(lines) >= 2 {
					val, _ := strconv.ParseFloat(strings.TrimSpace(lines[1]), 64)
					cpu = val
				}
			}

			fmt.Printf("% -10s % -10.2f % -10.2f % -10.2f\n",
				time.Now().Format("15:04:05"),
				float64(vars.MemStats.HeapInuse)/1024/1024,
				float64(vars.MemStats.Alloc)/1024/1024,
				cpu,
			)
		}
	}
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == 200 {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}

var benchConfig = `
server:
  port: 8081
  env: development
auth:
  api_keys: ["bench-key-12345"]
rate_limit:
  requests_per_second: 100000
  burst: 100000
ledger:
  dsn: "bench.db"
  workers: 4
redis:
  enabled: false
`
