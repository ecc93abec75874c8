// cmd/maple-bench/main.go
//
// maple-bench compares point-lookup and range-store latency between a
// maple.Tree and Pebble (an LSM engine) used as a flat ordered-byte-key
// store, then renders the results as a bar chart.
//
// Usage:
//
//	maple-bench [-n 100000] [-out bench.png] [-pebble-dir /tmp/maple-bench-pebble]
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/cockroachdb/pebble"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"maple/pkg/maple"
)

func main() {
	n := flag.Int("n", 100_000, "number of ranges/keys to benchmark")
	out := flag.String("out", "maple-bench.png", "output chart path")
	pebbleDir := flag.String("pebble-dir", "", "Pebble data directory (defaults to a temp dir)")
	flag.Parse()

	dir := *pebbleDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "maple-bench-pebble-*")
		if err != nil {
			log.Fatalf("mkdtemp: %v", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}

	results, err := run(*n, dir)
	if err != nil {
		log.Fatalf("benchmark: %v", err)
	}
	for _, r := range results {
		fmt.Printf("%-24s %-10s %v\n", r.Name, r.Operation, r.Latency)
	}
	if err := renderChart(results, *out); err != nil {
		log.Fatalf("render chart: %v", err)
	}
	fmt.Printf("wrote %s\n", *out)
}

// result is this tool's counterpart to the pack's BenchResult
// (NikolasRummel-db-index-performance-evaluation/src/benchmark.go), pared
// down to what a bar chart needs.
type result struct {
	Name      string
	Operation string
	Latency   time.Duration
}

func run(n int, pebbleDir string) ([]result, error) {
	keys := make([]uint64, n)
	rng := rand.New(rand.NewSource(1))
	for i := range keys {
		keys[i] = uint64(rng.Int63n(int64(n) * 10))
	}

	var results []result

	tr := maple.NewTree(maple.Config{})
	defer tr.Destroy()

	start := time.Now()
	for i, k := range keys {
		if err := tr.StoreRange(k, k, maple.Value(i+1)); err != nil {
			return nil, fmt.Errorf("maple store: %w", err)
		}
	}
	results = append(results, result{"maple", "store", time.Since(start) / time.Duration(n)})

	start = time.Now()
	for _, k := range keys {
		tr.Load(k)
	}
	results = append(results, result{"maple", "load", time.Since(start) / time.Duration(n)})

	db, err := pebble.Open(pebbleDir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	defer db.Close()

	start = time.Now()
	for i, k := range keys {
		if err := db.Set(encodeKey(k), encodeValue(uint64(i+1)), pebble.NoSync); err != nil {
			return nil, fmt.Errorf("pebble set: %w", err)
		}
	}
	results = append(results, result{"pebble", "store", time.Since(start) / time.Duration(n)})

	start = time.Now()
	for _, k := range keys {
		v, closer, err := db.Get(encodeKey(k))
		if err == nil {
			closer.Close()
		}
		_ = v
	}
	results = append(results, result{"pebble", "load", time.Since(start) / time.Duration(n)})

	return results, nil
}

func encodeKey(k uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, k)
	return b
}

func encodeValue(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// renderChart draws one bar per (engine, operation) pair - grounded on
// gonum.org/v1/plot's standard plotter.BarChart usage, the library the
// retrieved benchmark harness lists as a direct dependency for exactly
// this purpose.
func renderChart(results []result, path string) error {
	p := plot.New()
	p.Title.Text = "maple-bench: average latency per operation"
	p.Y.Label.Text = "ns/op"

	values := make(plotter.Values, len(results))
	labels := make([]string, len(results))
	for i, r := range results {
		values[i] = float64(r.Latency.Nanoseconds())
		labels[i] = r.Name + "/" + r.Operation
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(labels...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
