// Command refload forces a refresh of the PSGC location reference cache
// and prints a summary of the fetched tree. Run it after a PSGC data
// release, or whenever the cache file looks stale or corrupted.
//
// Usage:
//
//	go run ./cmd/refload \
//	  -province 097200000 \
//	  -cache zamboanga_del_norte_locations.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/outage-notice-etl/internal/adapter/psgc"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

func main() {
	baseURL := flag.String("base-url", "https://psgc.gitlab.io/api", "PSGC API base URL")
	province := flag.String("province", "097200000", "PSGC province code")
	cachePath := flag.String("cache", "zamboanga_del_norte_locations.json", "path to the reference cache file")
	timeout := flag.Duration("timeout", 60*time.Second, "per-request timeout")
	verbose := flag.Bool("v", false, "log every fetched municipality")
	flag.Parse()

	if code := run(*baseURL, *province, *cachePath, *timeout, *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(baseURL, province, cachePath string, timeout time.Duration, verbose bool) int {
	logOut := io.Writer(io.Discard)
	level := slog.LevelInfo
	if verbose {
		logOut = os.Stderr
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	client := psgc.NewClient(baseURL, timeout, logger)
	loader := psgc.NewLoader(client, province, cachePath, logger, observability.NewMetrics())

	tree, err := loader.Load(context.Background(), true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: refresh reference: %v\n", err)
		return 1
	}

	barangays := 0
	for _, m := range tree {
		barangays += len(m.Barangays)
	}

	fmt.Printf("Refreshed %s: %d municipalities, %d barangays -> %s\n",
		province, len(tree), barangays, cachePath)
	return 0
}
