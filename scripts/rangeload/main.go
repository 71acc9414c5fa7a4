// Rangeload is a concurrent load generator for the download endpoint. It
// issues random byte-range requests, checks every response is correctly
// bounded, and reports throughput, latency percentiles and the backend
// loads seen on /status afterwards.
//
// Usage:
//
//	go run ./scripts/rangeload -base http://localhost:8080 -id 2Zx... -size 104857600 -concurrency 16 -requests 500
//	go run ./scripts/rangeload -base http://localhost:8080 -id 2Zx... -size 104857600 -max-span 4194304 -out summary.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type result struct {
	status   int
	bytes    int64
	duration time.Duration
	err      error
}

type summary struct {
	Target        string           `json:"target"`
	Requests      int              `json:"requests"`
	Concurrency   int              `json:"concurrency"`
	Success       int64            `json:"success"`
	Failure       int64            `json:"failure"`
	Mismatched    int64            `json:"mismatched"`
	Bytes         int64            `json:"bytes"`
	DurationMS    int64            `json:"duration_ms"`
	ThroughputMBs float64          `json:"throughput_mb_s"`
	P50MS         float64          `json:"p50_ms"`
	P90MS         float64          `json:"p90_ms"`
	P99MS         float64          `json:"p99_ms"`
	StatusCodes   map[int]int64    `json:"status_codes"`
	Loads         []map[string]any `json:"loads,omitempty"`
}

func main() {
	var (
		base        = flag.String("base", "http://localhost:8080", "server base URL")
		id          = flag.String("id", "", "file identifier to request")
		size        = flag.Int64("size", 0, "size of the file in bytes")
		maxSpan     = flag.Int64("max-span", 1<<20, "largest range to request")
		concurrency = flag.Int("concurrency", 10, "number of concurrent workers")
		requests    = flag.Int("requests", 100, "total number of requests to send")
		timeoutSec  = flag.Int("timeout", 60, "per-request timeout in seconds")
		outJSON     = flag.String("out", "", "write JSON summary to this file (optional)")
		verbose     = flag.Bool("v", false, "verbose per-request logging")
	)
	flag.Parse()

	if *id == "" || *size <= 0 {
		fmt.Fprintln(os.Stderr, "-id and -size are required")
		os.Exit(1)
	}

	target := *base + "/dl/" + *id
	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	var (
		mismatched atomic.Int64
		mutex      sync.Mutex
		results    = make([]result, 0, *requests)
		wg         sync.WaitGroup
		jobs       = make(chan int)
	)

	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				from := rand.Int64N(*size)
				until := min(from+rand.Int64N(*maxSpan), *size-1)

				res, ok := fetch(client, target, from, until, *size)
				if !ok {
					mismatched.Add(1)
				}
				if *verbose {
					fmt.Printf("idx=%d range=%d-%d status=%d bytes=%d dur=%v err=%v\n",
						idx, from, until, res.status, res.bytes, res.duration, res.err)
				}

				mutex.Lock()
				results = append(results, res)
				mutex.Unlock()
			}
		}()
	}

	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	s := summarize(results, time.Since(start))
	s.Target = target
	s.Requests = *requests
	s.Concurrency = *concurrency
	s.Mismatched = mismatched.Load()
	s.Loads = fetchLoads(client, *base)

	fmt.Println("--- Range Load Summary ---")
	fmt.Printf("Target: %s\n", s.Target)
	fmt.Printf("Success: %d  Failure: %d  Mismatched: %d\n", s.Success, s.Failure, s.Mismatched)
	fmt.Printf("Duration: %dms  Bytes: %d  Throughput: %.2f MB/s\n", s.DurationMS, s.Bytes, s.ThroughputMBs)
	fmt.Printf("Latency p50=%.1fms p90=%.1fms p99=%.1fms\n", s.P50MS, s.P90MS, s.P99MS)
	for code, n := range s.StatusCodes {
		fmt.Printf("  %d -> %d\n", code, n)
	}
	for _, l := range s.Loads {
		fmt.Printf("  load %v -> %v\n", l["backend"], l["load"])
	}

	if *outJSON != "" {
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(s)
		f.Close()
	}

	if s.Failure > 0 || s.Mismatched > 0 {
		os.Exit(2)
	}
}

// fetch requests one range and reports whether the response was bounded
// exactly as asked.
func fetch(client *http.Client, target string, from, until, size int64) (result, bool) {
	start := time.Now()

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return result{err: err}, false
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", from, until))

	resp, err := client.Do(req)
	if err != nil {
		return result{err: err, duration: time.Since(start)}, false
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	res := result{status: resp.StatusCode, bytes: n, duration: time.Since(start), err: err}

	want := until - from + 1
	ok := err == nil &&
		resp.StatusCode == http.StatusPartialContent &&
		n == want &&
		resp.Header.Get("Content-Length") == strconv.FormatInt(want, 10) &&
		resp.Header.Get("Content-Range") == fmt.Sprintf("bytes %d-%d/%d", from, until, size)

	return res, ok
}

func summarize(results []result, elapsed time.Duration) summary {
	s := summary{StatusCodes: make(map[int]int64), DurationMS: elapsed.Milliseconds()}

	latencies := make([]time.Duration, 0, len(results))
	for _, r := range results {
		if r.err != nil || r.status/100 != 2 {
			s.Failure++
		} else {
			s.Success++
		}
		if r.status != 0 {
			s.StatusCodes[r.status]++
		}
		s.Bytes += r.bytes
		latencies = append(latencies, r.duration)
	}

	if elapsed > 0 {
		s.ThroughputMBs = float64(s.Bytes) / (1 << 20) / elapsed.Seconds()
	}

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		pick := func(p float64) float64 {
			return float64(latencies[int(float64(len(latencies)-1)*p)].Microseconds()) / 1000
		}
		s.P50MS = pick(0.50)
		s.P90MS = pick(0.90)
		s.P99MS = pick(0.99)
	}

	return s
}

func fetchLoads(client *http.Client, base string) []map[string]any {
	resp, err := client.Get(base + "/status")
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	var status struct {
		Loads []map[string]any `json:"loads"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil
	}
	return status.Loads
}
