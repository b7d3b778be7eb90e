package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auth "auction-backend/internal/authService"
	bidding "auction-backend/internal/biddingService"
	"auction-backend/internal/clock"
	"auction-backend/internal/config"
	"auction-backend/internal/events"
	"auction-backend/internal/metrics"
	model "auction-backend/internal/models"
	"auction-backend/internal/repository"
	"auction-backend/internal/server"
	handler "auction-backend/services/bidding/handler"
	"auction-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("invalid configuration", map[string]any{"error": err.Error()})
	}
	if err := utils.SetLevel(cfg.LogLevel); err != nil {
		utils.Warn("unknown LOG_LEVEL, keeping info", map[string]any{"level": cfg.LogLevel})
	}
	if cfg.Environment != config.EnvDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, err := openStore(cfg)
	if err != nil {
		utils.Fatal("failed to open store", map[string]any{"driver": cfg.StoreDriver, "error": err.Error()})
	}
	if closer, ok := repo.(io.Closer); ok {
		defer closer.Close()
	}

	clk := clock.System()
	m := metrics.New()

	var (
		sessions  auth.SessionStore = auth.NewMemorySessionStore(clk)
		rateLimit server.RateLimit
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			utils.Fatal("failed to connect to redis", map[string]any{"addr": cfg.RedisAddr, "error": err.Error()})
		}
		defer rdb.Close()

		sessions = auth.NewRedisSessionStore(rdb)
		rateLimit = server.RateLimit{Client: rdb, Limit: cfg.BidRateLimit, Window: cfg.BidRateWindow}
	} else {
		utils.Warn("REDIS_ADDR not set: sessions are process-local and bids are not rate limited", nil)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		utils.Info("publishing auction events", map[string]any{"brokers": cfg.KafkaBrokers, "topic": cfg.KafkaTopic})
	}

	biddingSvc := bidding.NewBiddingService(repo,
		bidding.WithClock(clk),
		bidding.WithPublisher(publisher),
		bidding.WithMetrics(m),
		bidding.WithOptions(bidding.Options{
			AllowSelfBid:    cfg.AllowSelfBid,
			MaxAttempts:     cfg.BidMaxAttempts,
			DefaultDuration: cfg.DefaultDuration,
		}),
	)
	authSvc := auth.NewService(repo,
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL, clk),
		sessions,
		cfg.SessionTTL,
		auth.WithClock(clk),
	)

	if mem, ok := repo.(*repository.MemoryRepo); ok && cfg.Environment == config.EnvDevelopment {
		prepopulateItems(mem, clk.Now(), cfg.DefaultDuration)
	}

	router := server.SetupRouter(server.Deps{
		Bidding:   handler.NewBiddingHandler(biddingSvc),
		Auth:      handler.NewAuthHandler(authSvc, handler.CookieConfig{Secure: cfg.CookieSecure, MaxAge: cfg.SessionTTL}),
		Resolver:  authSvc,
		Metrics:   m,
		RateLimit: rateLimit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go bidding.NewCloser(biddingSvc, cfg.CloseSweepInterval).Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{"addr": cfg.Addr(), "store": cfg.StoreDriver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error("server stopped unexpectedly", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
	}
	if err := biddingSvc.Close(); err != nil {
		utils.Error("failed to flush auction events", map[string]any{"error": err.Error()})
	}
}

func openStore(cfg config.AppConfig) (repository.AuctionDB, error) {
	if cfg.StoreDriver == config.StoreSQLite {
		return repository.OpenSQLite(cfg.SQLiteDSN())
	}
	return repository.NewMemoryRepo(), nil
}

// prepopulateItems adds a demo seller and sample items to the in-memory repo
func prepopulateItems(repo *repository.MemoryRepo, now time.Time, duration time.Duration) {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		utils.Warn("skipping demo data", map[string]any{"error": err.Error()})
		return
	}

	seller := model.User{
		ID:           utils.GenerateID(),
		Username:     "demo",
		Email:        "demo@example.com",
		PasswordHash: string(hash),
		FullName:     "Demo Seller",
		CreatedAt:    now,
	}
	if err := repo.CreateUser(context.Background(), seller); err != nil {
		utils.Warn("skipping demo data", map[string]any{"error": err.Error()})
		return
	}

	items := []model.Item{
		{Title: "Vintage brass lamp", Description: "Working, rewired in 2019", StartingPrice: decimal.NewFromInt(100)},
		{Title: "Mechanical keyboard", Description: "Brown switches", StartingPrice: decimal.NewFromInt(200)},
		{Title: "Signed first edition", Description: "Light shelf wear", StartingPrice: decimal.RequireFromString("150.50")},
	}

	for _, item := range items {
		item.ID = utils.GenerateID()
		item.SellerID = seller.ID
		item.CurrentPrice = item.StartingPrice
		item.EndTime = now.Add(duration)
		item.CreatedAt = now
		repo.AddItem(item)
	}
	utils.Info("seeded demo items", map[string]any{"count": len(items), "seller": seller.Username})
}
