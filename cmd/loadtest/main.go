package main

import (
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/atomic"
)

var categories = []string{"tip", "story", "announcement", "behind-the-scenes"}

type options struct {
	baseURL  string
	workers  int
	duration time.Duration
}

type result struct {
	endpoint string
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

type target struct {
	weight float64
	label  string
	url    func(rng *rand.Rand) string
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "loadtest",
		Short:        "Hammer the read-only HTTP surface of a running voiceloop serve",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "url", "http://127.0.0.1:8090", "server base url")
	cmd.Flags().IntVar(&opts.workers, "workers", 50, "concurrent workers")
	cmd.Flags().DurationVar(&opts.duration, "duration", 10*time.Second, "duration of each phase")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newHTTPClient(workers int) *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        workers * 4,
			MaxIdleConnsPerHost: workers * 4,
			IdleConnTimeout:     30 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   2 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}
}

func run(out io.Writer, opts options) error {
	client := newHTTPClient(opts.workers)

	fmt.Fprintln(out, "=== voiceloop load test ===")
	fmt.Fprintf(out, "Workers: %d | Duration per phase: %s\n\n", opts.workers, opts.duration)

	fmt.Fprint(out, "Waiting for server... ")
	if err := waitForServer(client, opts.baseURL+"/health"); err != nil {
		fmt.Fprintln(out, "FAILED")
		return err
	}
	fmt.Fprintln(out, "OK")

	base := opts.baseURL
	cached := []target{
		{0.9, "GET /api/profile", func(*rand.Rand) string { return base + "/api/profile" }},
		{1.0, "GET /health", func(*rand.Rand) string { return base + "/health" }},
	}
	mixed := []target{
		{0.4, "GET /api/profile", func(*rand.Rand) string { return base + "/api/profile" }},
		{0.7, "GET /api/records", func(rng *rand.Rand) string {
			return base + "/api/records?category=" + categories[rng.Intn(len(categories))]
		}},
		{0.9, "GET /api/insights", func(rng *rand.Rand) string {
			return fmt.Sprintf("%s/api/insights?minAge=%d", base, rng.Intn(72))
		}},
		{1.0, "GET /health", func(*rand.Rand) string { return base + "/health" }},
	}

	fmt.Fprintln(out, "\n--- Phase 1: cached reads ---")
	runPhase(out, client, opts, cached)

	fmt.Fprintln(out, "\n--- Phase 2: mixed reads (records and insights hit storage) ---")
	runPhase(out, client, opts, mixed)
	return nil
}

func waitForServer(client *http.Client, url string) error {
	var lastErr error
	for i := 0; i < 30; i++ {
		resp, err := client.Get(url)
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("server not responding: %w", lastErr)
}

func pick(targets []target, rng *rand.Rand) target {
	r := rng.Float64()
	for _, t := range targets {
		if r < t.weight {
			return t
		}
	}
	return targets[len(targets)-1]
}

func doGet(client *http.Client, label, url string) result {
	start := time.Now()
	resp, err := client.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{label, lat, true}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	// 404 is a valid answer for /api/profile before the first pass.
	ok := resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound
	return result{label, lat, !ok}
}

func runPhase(out io.Writer, client *http.Client, opts options, targets []target) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	stop := atomic.NewBool(false)

	for i := 0; i < opts.workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for !stop.Load() {
				t := pick(targets, rng)
				results <- doGet(client, t.label, t.url(rng))
			}
		}(rand.Int63() + int64(i))
	}

	all := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := all[r.endpoint]
			if !ok {
				s = &stats{}
				all[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(opts.duration)
	stop.Store(true)
	wg.Wait()
	close(results)
	<-done

	printResults(out, all, opts.duration)
}

func printResults(out io.Writer, all map[string]*stats, duration time.Duration) {
	var totalOps, totalErrors int64

	endpoints := make([]string, 0, len(all))
	for ep := range all {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Fprintf(out, "\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := all[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool { return s.latencies[i] < s.latencies[j] })

		fmt.Fprintf(out, "  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(latencyAt(s.latencies, 0.50)),
			fmtDur(latencyAt(s.latencies, 0.95)),
			fmtDur(latencyAt(s.latencies, 0.99)))
	}

	if totalOps == 0 {
		fmt.Fprintln(out, "  no requests completed")
		return
	}
	fmt.Fprintln(out, "  "+strings.Repeat("-", 88))
	fmt.Fprintf(out, "  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, float64(totalOps)/duration.Seconds())
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

// latencyAt expects d sorted ascending.
func latencyAt(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
