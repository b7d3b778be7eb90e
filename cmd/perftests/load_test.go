package perftests

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bidding "auction-backend/internal/biddingService"
	"auction-backend/internal/metrics"
	repository "auction-backend/internal/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

// LoadScenario defines configurable benchmark parameters
type LoadScenario struct {
	Name            string
	NumItems        int
	ReadRatio       int
	MaxBidIncrement int
	Burst           bool // if true, no delay between ops
}

// OperationMetrics collects latencies from concurrent workers
type OperationMetrics struct {
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(d time.Duration) {
	om.mu.Lock()
	om.latencies = append(om.latencies, d)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (min, max, avg, p95, p99 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	latencies := om.latencies
	if len(latencies) == 0 {
		return
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	min = latencies[0]
	max = latencies[len(latencies)-1]

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	avg = total / time.Duration(len(latencies))
	p95 = latencies[int(0.95*float64(len(latencies)-1))]
	p99 = latencies[int(0.99*float64(len(latencies)-1))]
	return
}

// setupRepo creates repository and bidding service with items
func setupRepo(numItems int) (*repository.MemoryRepo, *bidding.BiddingService, *metrics.Metrics) {
	repo := newBenchRepo()
	m := metrics.New()
	svc := bidding.NewBiddingService(repo, bidding.WithMetrics(m))
	for i := 0; i < numItems; i++ {
		repo.AddItem(benchItem(fmt.Sprintf("item_%d", i), 100))
	}
	return repo, svc, m
}

// Benchmark_Load_BiddingSystem runs multiple scenarios
func Benchmark_Load_BiddingSystem(b *testing.B) {
	scenarios := []LoadScenario{
		{Name: "Low-Contention-WriteHeavy", NumItems: 200, ReadRatio: 0, MaxBidIncrement: 50},
		{Name: "High-Contention-WriteHeavy", NumItems: 10, ReadRatio: 0, MaxBidIncrement: 20},
		{Name: "Mixed-Workload", NumItems: 50, ReadRatio: 7, MaxBidIncrement: 30},
		{Name: "ReadHeavy", NumItems: 50, ReadRatio: 9, MaxBidIncrement: 20},
		{Name: "Edge-Case-SingleItem", NumItems: 1, ReadRatio: 5, MaxBidIncrement: 10},
		{Name: "Peak-Burst", NumItems: 50, ReadRatio: 0, MaxBidIncrement: 20, Burst: true},
	}

	for _, s := range scenarios {
		s := s
		b.Run(s.Name, func(b *testing.B) {
			runParallelScenario(b, s)
		})
	}
}

func runParallelScenario(b *testing.B, s LoadScenario) {
	b.ReportAllocs()

	ctx := context.Background()
	repo, svc, m := setupRepo(s.NumItems)

	var totalOps, successfulBids, failedBids, totalReads int64
	itemSuccess := make([]int64, s.NumItems)
	latency := &OperationMetrics{}

	start := time.Now()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			itemIndex := rnd.Intn(s.NumItems)
			itemID := fmt.Sprintf("item_%d", itemIndex)

			opStart := time.Now()
			if rnd.Intn(10) < s.ReadRatio {
				_, _ = svc.GetWinningBid(ctx, itemID)
				atomic.AddInt64(&totalReads, 1)
			} else {
				// prices only grow, so bids drift upward with the op count to keep succeeding
				floor := 100 + atomic.LoadInt64(&successfulBids)/int64(s.NumItems)
				bidAmount := decimal.NewFromInt(floor + int64(rnd.Intn(s.MaxBidIncrement)+1))
				userID := bidder(rnd.Int())
				if _, err := svc.PlaceBid(ctx, itemID, userID, bidAmount); err != nil {
					atomic.AddInt64(&failedBids, 1)
				} else {
					atomic.AddInt64(&successfulBids, 1)
					atomic.AddInt64(&itemSuccess[itemIndex], 1)
				}
			}

			latency.Record(time.Since(opStart))
			atomic.AddInt64(&totalOps, 1)

			if !s.Burst {
				time.Sleep(time.Millisecond)
			}
		}
	})

	elapsed := time.Since(start)
	b.StopTimer()

	// every item's price must equal its highest bid, whatever the interleaving
	for i, n := range itemSuccess {
		if n == 0 {
			continue
		}
		itemID := fmt.Sprintf("item_%d", i)
		item, err := repo.GetItem(ctx, itemID)
		if err != nil {
			b.Fatalf("failed to get %s: %v", itemID, err)
		}
		winning, err := svc.GetWinningBid(ctx, itemID)
		if err != nil {
			b.Fatalf("failed to get winning bid for %s: %v", itemID, err)
		}
		if !item.CurrentPrice.Equal(winning.Amount) {
			b.Fatalf("%s: current price %s, winning bid %s", itemID, item.CurrentPrice, winning.Amount)
		}
	}

	throughput := float64(totalOps) / elapsed.Seconds()
	min, max, avg, p95, p99 := latency.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	b.Logf(
		"Scenario: %s | Items: %d | Total Ops: %d | Success Bids: %d | Failed Bids: %d | CAS Retries: %.0f | Reads: %d | Elapsed: %s | Throughput: %.2f ops/sec | Latency(us) min: %.2f avg: %.2f max: %.2f p95: %.2f p99: %.2f | Memory Alloc: %.2f MB",
		s.Name, s.NumItems, totalOps, successfulBids, failedBids, testutil.ToFloat64(m.BidRetries), totalReads, elapsed,
		throughput,
		float64(min.Microseconds()), float64(avg.Microseconds()), float64(max.Microseconds()),
		float64(p95.Microseconds()), float64(p99.Microseconds()),
		float64(mem.Alloc)/1024/1024,
	)
}
