package server

import (
	"time"

	"auction-backend/internal/metrics"
	handler "auction-backend/services/bidding/handler"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit configures the per-caller bid limiter. A nil Client disables it.
type RateLimit struct {
	Client redis.UniversalClient
	Limit  int
	Window time.Duration
}

// Deps is everything the router needs from the rest of the process
type Deps struct {
	Bidding   *handler.BiddingHandler
	Auth      *handler.AuthHandler
	Resolver  CallerResolver
	Metrics   *metrics.Metrics
	RateLimit RateLimit
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())                     // recover from panics
	router.Use(RequestLoggerMiddleware(d.Metrics)) // custom request logging

	requireAuth := AuthMiddleware(d.Resolver)

	router.GET("/health", d.Bidding.HealthHandler)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", d.Auth.SignupHandler)
		authGroup.POST("/login", d.Auth.LoginHandler)
		authGroup.POST("/logout", d.Auth.LogoutHandler)
		authGroup.GET("/check", d.Auth.CheckHandler)
	}

	items := api.Group("/items")
	{
		items.GET("", d.Bidding.ListItemsHandler)
		items.POST("", requireAuth, d.Bidding.CreateItemHandler)
		items.GET("/:item_id", d.Bidding.GetItemHandler)
		items.POST("/:item_id/close", requireAuth, d.Bidding.CloseItemHandler)
		items.GET("/:item_id/bids", d.Bidding.GetBidsByItemHandler)
		items.GET("/:item_id/winning", d.Bidding.GetWinningBidHandler)
	}

	bidChain := []gin.HandlerFunc{requireAuth}
	if d.RateLimit.Client != nil && d.RateLimit.Limit > 0 {
		bidChain = append(bidChain, RedisRateLimit(d.RateLimit.Client, d.RateLimit.Limit, d.RateLimit.Window))
	}
	bidChain = append(bidChain, d.Bidding.RecordBidHandler)

	bids := api.Group("/bids")
	{
		bids.POST("", bidChain...)
	}

	users := api.Group("/users")
	{
		users.GET("", d.Auth.ListUsersHandler)
		users.GET("/:user_id/items", d.Bidding.GetItemsByUserHandler)
	}

	return router
}
