package kv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/kvmux/cmd/util"
	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/google/uuid"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for kvmux stores",
		Long:    "Runs parallel load against the selected store. All keys are written below a random prefix and removed afterwards.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__perf"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOpsPerThread     = 1000
	perfSkip             = make([]string, 0)
)

// perfResult is the outcome of one perf test
type perfResult struct {
	test    string
	timer   metrics.Timer
	errors  int64
	elapsed time.Duration
	skipped bool
}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Operations per thread and test"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfOpsPerThread = max(1, viper.GetInt("ops"))
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	perfKeyPrefix = "__perf-" + uuid.NewString()[:8]

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for kvmux stores")
	fmt.Println()
	fmt.Printf("Store:   %s\n", storeName)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Ops:     %d per thread\n", perfOpsPerThread)
	fmt.Printf("Prefix:  %s\n", perfKeyPrefix)
	fmt.Println()
	fmt.Println("starting tests...")

	var results []perfResult
	record := func(r perfResult) {
		printResult(r)
		if !r.skipped {
			results = append(results, r)
		}
	}

	value := []byte("value")
	record(benchmark("set", nil, func(ctx context.Context, key string, _ int) error {
		return stores.Set(ctx, handle, key, value)
	}))

	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	record(benchmark("set-large", nil, func(ctx context.Context, key string, _ int) error {
		return stores.Set(ctx, handle, key, largeValue)
	}))

	record(benchmark("get", fill, func(ctx context.Context, key string, _ int) error {
		_, err := stores.Get(ctx, handle, key)
		return err
	}))

	record(benchmark("delete", fill, func(ctx context.Context, key string, _ int) error {
		return stores.Delete(ctx, handle, key)
	}))

	record(benchmark("has", fill, func(ctx context.Context, key string, _ int) error {
		_, err := stores.Exists(ctx, handle, key)
		return err
	}))

	record(benchmark("has-not", nil, func(ctx context.Context, key string, _ int) error {
		_, err := stores.Exists(ctx, handle, key+"-missing")
		return err
	}))

	record(benchmark("mixed", fill, func(ctx context.Context, key string, i int) error {
		var err error
		switch i % 4 {
		case 0:
			err = stores.Set(ctx, handle, key, value)
		case 1:
			_, err = stores.Get(ctx, handle, key)
			if errors.Is(err, store.ErrNoSuchKey) {
				err = nil
			}
		case 2:
			err = stores.Delete(ctx, handle, key)
		case 3:
			_, err = stores.Exists(ctx, handle, key)
		}
		return err
	}))

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// fill writes every test key so that reading tests find them
func fill(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := stores.Set(ctx, handle, k, []byte("value")); err != nil {
			log.Printf("error setting key %s: %v\n", k, err)
		}
	}
}

// benchmark runs op perfOpsPerThread times on every thread and times each call.
// The keys of the test are removed afterwards.
func benchmark(
	test string,
	prepare func(ctx context.Context, keys []string),
	op func(ctx context.Context, key string, i int) error,
) perfResult {
	if shouldSkip(test) {
		return perfResult{test: test, skipped: true}
	}

	ctx := context.Background()
	keys := getKeys(test)
	if prepare != nil {
		prepare(ctx, keys)
	}
	defer func() {
		for _, k := range keys {
			if err := stores.Delete(ctx, handle, k); err != nil {
				log.Printf("(%s) - error deleting key: %v\n", test, err)
			}
		}
	}()

	result := perfResult{test: test, timer: metrics.NewTimer()}
	var mu sync.Mutex
	var wg sync.WaitGroup

	start := time.Now()
	for thread := 0; thread < perfNumThreads; thread++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var errs int64
			for i := 0; i < perfOpsPerThread; i++ {
				opStart := time.Now()
				err := op(ctx, keys[(thread+i)%len(keys)], i)
				result.timer.UpdateSince(opStart)
				if err != nil {
					if errs == 0 {
						log.Printf("(%s) - error: %v\n", test, err)
					}
					errs++
				}
			}
			mu.Lock()
			result.errors += errs
			mu.Unlock()
		}()
	}
	wg.Wait()
	result.elapsed = time.Since(start)

	return result
}

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// getKeys creates the keys of a test
func getKeys(test string) []string {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, test, i)
	}
	return keys
}

// opsPerSec is the throughput of all threads together
func (r perfResult) opsPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.elapsed.Seconds()
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(r perfResult) {
	if r.skipped {
		fmt.Printf("%-12sskipped\n", r.test)
		return
	}
	ps := r.timer.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-12smean %-12s p50 %-12s p99 %-12s %10.0f ops/sec  errors %d\n",
		r.test,
		time.Duration(r.timer.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		r.opsPerSec(),
		r.errors,
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Ops", "Errors", "MeanNs", "P50Ns", "P99Ns", "OpsPerSec",
		"Store", "Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		ps := r.timer.Percentiles([]float64{0.5, 0.99})
		row := []string{
			r.test,
			strconv.FormatInt(r.timer.Count(), 10),
			strconv.FormatInt(r.errors, 10),
			fmt.Sprintf("%.0f", r.timer.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			storeName,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.test, err)
		}
	}

	return writer.Error()
}
