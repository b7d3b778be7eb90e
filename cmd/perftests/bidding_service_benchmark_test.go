package perftests

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	bidding "auction-backend/internal/biddingService"
	model "auction-backend/internal/models"
	repository "auction-backend/internal/repository"
	"auction-backend/utils"

	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	utils.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// benchBidders is the size of the registered bidder pool
const benchBidders = 256

// newBenchRepo returns a memory store with the bidder pool registered
func newBenchRepo() *repository.MemoryRepo {
	repo := repository.NewMemoryRepo()
	for i := 0; i < benchBidders; i++ {
		id := bidder(i)
		repo.AddUser(model.User{ID: id, Username: id, Email: id + "@example.com"})
	}
	return repo
}

// bidder maps any non-negative n onto the registered pool
func bidder(n int) string {
	return fmt.Sprintf("bidder_%d", n%benchBidders)
}

// benchItem is an open item priced at startingPrice that ends well after the benchmark
func benchItem(id string, startingPrice int64) model.Item {
	return model.Item{
		ID:            id,
		Title:         "Benchmark item " + id,
		Description:   "Independent benchmark item",
		StartingPrice: decimal.NewFromInt(startingPrice),
		CurrentPrice:  decimal.NewFromInt(startingPrice),
		SellerID:      "seller",
		Status:        model.ItemActive,
		EndTime:       time.Now().Add(24 * time.Hour),
		CreatedAt:     time.Now(),
	}
}

// Benchmark 1: PlaceBid - Isolated Items (Low Contention - Micro Benchmark)
func Benchmark_PlaceBid_Isolated(b *testing.B) {
	ctx := context.Background()
	repo := newBenchRepo()
	svc := bidding.NewBiddingService(repo)

	for i := 0; i < b.N; i++ {
		repo.AddItem(benchItem(fmt.Sprintf("item_%d", i), 50))
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		userID := bidder(i)
		itemID := fmt.Sprintf("item_%d", i)
		bidAmount := decimal.NewFromInt(int64(51 + rand.Intn(100)))
		if _, err := svc.PlaceBid(ctx, itemID, userID, bidAmount); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}

// Benchmark 2: PlaceBid - Shared Item (High Contention - Concurrency Benchmark)
func Benchmark_PlaceBid_ConcurrentSharedItem(b *testing.B) {
	ctx := context.Background()
	repo := newBenchRepo()
	svc := bidding.NewBiddingService(repo)

	item := benchItem("shared_item_1", 50)
	repo.AddItem(item)

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 50

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			userID := bidder(rnd.Int())

			nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
			_, _ = svc.PlaceBid(ctx, item.ID, userID, decimal.NewFromInt(nextBid))
		}
	})
	b.StopTimer()

	winning, err := svc.GetWinningBid(ctx, item.ID)
	if err != nil {
		b.Fatalf("failed to get winning bid: %v", err)
	}
	current, err := repo.GetItem(ctx, item.ID)
	if err != nil {
		b.Fatalf("failed to get item: %v", err)
	}
	if !current.CurrentPrice.Equal(winning.Amount) {
		b.Fatalf("current price %s does not match winning bid %s", current.CurrentPrice, winning.Amount)
	}
}

// Benchmark 3: GetWinningBid - Single - Threaded (Low Contention)
func Benchmark_GetWinningBid_SingleThreaded(b *testing.B) {
	ctx := context.Background()
	repo := newBenchRepo()
	svc := bidding.NewBiddingService(repo)

	for i := 0; i < b.N; i++ {
		item := benchItem(fmt.Sprintf("item_%d", i), 50)
		repo.AddItem(item)

		for j := 0; j < 10; j++ {
			userID := bidder(i*10 + j)
			_, _ = svc.PlaceBid(ctx, item.ID, userID, decimal.NewFromInt(int64(51+j*10)))
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		itemID := fmt.Sprintf("item_%d", i)
		if _, err := svc.GetWinningBid(ctx, itemID); err != nil {
			b.Fatalf("failed to get winning bid: %v", err)
		}
	}
}

// Benchmark 4: GetWinningBid - Concurrent (High Contention)
func Benchmark_GetWinningBid_ConcurrentSharedItem(b *testing.B) {
	ctx := context.Background()
	repo := newBenchRepo()
	svc := bidding.NewBiddingService(repo)

	item := benchItem("shared_item_1", 50)
	repo.AddItem(item)

	for j := 0; j < 100; j++ {
		userID := bidder(j)
		_, _ = svc.PlaceBid(ctx, item.ID, userID, decimal.NewFromInt(int64(51+j)))
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.GetWinningBid(ctx, item.ID); err != nil {
				b.Errorf("failed to get winning bid: %v", err)
				return
			}
		}
	})
}

// Benchmark 5: Mixed Workload (Readers + Writers concurrently)
func Benchmark_MixedWorkload_SharedItem(b *testing.B) {
	ctx := context.Background()
	repo := newBenchRepo()
	svc := bidding.NewBiddingService(repo)

	item := benchItem("shared_item_1", 50)
	repo.AddItem(item)

	for j := 0; j < 50; j++ {
		userID := bidder(j)
		_, _ = svc.PlaceBid(ctx, item.ID, userID, decimal.NewFromInt(int64(52+j*2)))
	}

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 150

	// Ratio: 70% readers, 30% writers
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			if rnd.Intn(10) < 3 {
				userID := bidder(rnd.Int())
				nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
				_, _ = svc.PlaceBid(ctx, item.ID, userID, decimal.NewFromInt(nextBid))
				continue
			}
			if _, err := svc.GetBidsForItem(ctx, item.ID); err != nil {
				b.Errorf("failed to list bids: %v", err)
				return
			}
		}
	})
}

// Benchmark 6: PlaceBid against SQLite, where every bid is a write transaction
func Benchmark_PlaceBid_SQLite(b *testing.B) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(b.TempDir(), "bench.db") + "?_foreign_keys=on&_busy_timeout=5000"
	repo, err := repository.OpenSQLite(dsn)
	if err != nil {
		b.Fatalf("failed to open sqlite: %v", err)
	}
	defer repo.Close()

	for _, id := range []string{"seller", "bidder"} {
		if err := repo.CreateUser(ctx, model.User{ID: id, Username: id, Email: id + "@example.com", CreatedAt: time.Now()}); err != nil {
			b.Fatalf("failed to create user: %v", err)
		}
	}
	item := benchItem("sqlite_item", 1)
	if err := repo.CreateItem(ctx, item); err != nil {
		b.Fatalf("failed to create item: %v", err)
	}

	svc := bidding.NewBiddingService(repo)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := svc.PlaceBid(ctx, item.ID, "bidder", decimal.NewFromInt(int64(2+i))); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}
