package handler

import (
	"context"
	"errors"
	"net/http"

	bidding "auction-backend/internal/biddingService"
	"auction-backend/internal/biddingerrors"
	model "auction-backend/internal/models"
	"auction-backend/services/bidding/helpers"
	"auction-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mock_bidding_service.go -package=handler auction-backend/services/bidding/handler BiddingServiceInterface

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, itemID, userID string, amount decimal.Decimal) (model.Bid, error)
	GetBidsForItem(ctx context.Context, itemID string) ([]model.BidView, error)
	GetWinningBid(ctx context.Context, itemID string) (model.Bid, error)
	GetItemsByUser(ctx context.Context, userID string) ([]model.Item, error)

	CreateItem(ctx context.Context, sellerID string, in bidding.CreateItemInput) (model.Item, error)
	ListActiveItems(ctx context.Context) ([]model.ItemSummary, error)
	GetItemDetail(ctx context.Context, itemID string) (model.ItemDetail, error)
	CloseItem(ctx context.Context, itemID, callerID string) (model.Item, error)

	Ping(ctx context.Context) error
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// RecordBidHandler handles POST /api/bids
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	userID := helpers.CallerID(c)
	amount := req.Value()

	bid, err := h.service.PlaceBid(c.Request.Context(), req.ItemID, userID, amount)
	if err != nil {
		helpers.RespondError(c, "RecordBidHandler", err, map[string]any{
			"item_id": req.ItemID,
			"user_id": userID,
			"amount":  amount.String(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid placed successfully")
	helpers.LogSuccess("RecordBidHandler", "bid placed successfully", map[string]any{
		"bid_id":  bid.ID,
		"item_id": bid.ItemID,
		"user_id": bid.UserID,
		"amount":  bid.Amount.String(),
	})
}

// GetBidsByItemHandler handles GET /api/items/:item_id/bids
func (h *BiddingHandler) GetBidsByItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	bids, err := h.service.GetBidsForItem(c.Request.Context(), itemID)
	if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
		helpers.RespondError(c, "GetBidsByItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	if bids == nil {
		bids = []model.BidView{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByItemHandler", "bids retrieved successfully", map[string]any{
		"item_id": itemID,
		"count":   len(bids),
	})
}

// GetWinningBidHandler handles GET /api/items/:item_id/winning
func (h *BiddingHandler) GetWinningBidHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	bid, err := h.service.GetWinningBid(c.Request.Context(), itemID)
	if err != nil {
		helpers.RespondError(c, "GetWinningBidHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid), "winning bid retrieved successfully")
	helpers.LogSuccess("GetWinningBidHandler", "winning bid retrieved successfully", map[string]any{
		"bid_id":  bid.ID,
		"item_id": bid.ItemID,
		"user_id": bid.UserID,
		"amount":  bid.Amount.String(),
	})
}

// GetItemsByUserHandler handles GET /api/users/:user_id/items
func (h *BiddingHandler) GetItemsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	items, err := h.service.GetItemsByUser(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, biddingerrors.ErrUserNoBids) {
		helpers.RespondError(c, "GetItemsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	if items == nil {
		items = []model.Item{}
	}

	utils.JSONResponse(c, http.StatusOK, items, "items retrieved successfully")
	helpers.LogSuccess("GetItemsByUserHandler", "items retrieved successfully", map[string]any{
		"user_id":     userID,
		"items_count": len(items),
	})
}

// HealthHandler handles GET /health
func (h *BiddingHandler) HealthHandler(c *gin.Context) {
	if err := h.service.Ping(c.Request.Context()); err != nil {
		helpers.RespondError(c, "HealthHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"store": "ok"}, "healthy")
}
