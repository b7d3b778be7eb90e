package handler

import (
	"net/http"

	bidding "auction-backend/internal/biddingService"
	model "auction-backend/internal/models"
	"auction-backend/services/bidding/helpers"
	"auction-backend/utils"

	"github.com/gin-gonic/gin"
)

// CreateItemHandler handles POST /api/items
func (h *BiddingHandler) CreateItemHandler(c *gin.Context) {
	var req helpers.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateItemHandler", err)
		return
	}

	sellerID := helpers.CallerID(c)
	item, err := h.service.CreateItem(c.Request.Context(), sellerID, bidding.CreateItemInput{
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
		ImageURL:      req.ImageURL,
		DurationHours: req.Duration,
	})
	if err != nil {
		helpers.RespondError(c, "CreateItemHandler", err, map[string]any{"seller_id": sellerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, item, "item created successfully")
	helpers.LogSuccess("CreateItemHandler", "item created successfully", map[string]any{
		"item_id":   item.ID,
		"seller_id": sellerID,
		"end_time":  item.EndTime,
	})
}

// ListItemsHandler handles GET /api/items
func (h *BiddingHandler) ListItemsHandler(c *gin.Context) {
	items, err := h.service.ListActiveItems(c.Request.Context())
	if err != nil {
		helpers.RespondError(c, "ListItemsHandler", err, nil)
		return
	}
	if items == nil {
		items = []model.ItemSummary{}
	}

	utils.JSONResponse(c, http.StatusOK, items, "items retrieved successfully")
}

// GetItemHandler handles GET /api/items/:item_id
func (h *BiddingHandler) GetItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	detail, err := h.service.GetItemDetail(c.Request.Context(), itemID)
	if err != nil {
		helpers.RespondError(c, "GetItemHandler", err, map[string]any{"item_id": itemID})
		return
	}
	if detail.Bids == nil {
		detail.Bids = []model.BidView{}
	}

	utils.JSONResponse(c, http.StatusOK, detail, "item retrieved successfully")
}

// CloseItemHandler handles POST /api/items/:item_id/close
func (h *BiddingHandler) CloseItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	callerID := helpers.CallerID(c)

	item, err := h.service.CloseItem(c.Request.Context(), itemID, callerID)
	if err != nil {
		helpers.RespondError(c, "CloseItemHandler", err, map[string]any{"item_id": itemID, "user_id": callerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, item, "item closed successfully")
	helpers.LogSuccess("CloseItemHandler", "item closed successfully", map[string]any{
		"item_id": itemID,
		"user_id": callerID,
	})
}
