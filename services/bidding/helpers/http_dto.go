package helpers

import (
	model "auction-backend/internal/models"
	"time"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs

// PlaceBidRequest carries a bid. The bidder comes from the session, never the body.
type PlaceBidRequest struct {
	ItemID string          `json:"item_id" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
	// BidAmount is the older field name, accepted when Amount is absent
	BidAmount decimal.Decimal `json:"bid_amount"`
}

// Value returns the bid amount from whichever field was sent
func (r PlaceBidRequest) Value() decimal.Decimal {
	if r.Amount.IsZero() {
		return r.BidAmount
	}
	return r.Amount
}

type CreateItemRequest struct {
	Title         string          `json:"title" binding:"required,max=200"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	ImageURL      string          `json:"image_url" binding:"omitempty,max=500"`
	// Duration is in hours; zero means the server default
	Duration int `json:"duration" binding:"gte=0"`
}

type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	FullName string `json:"full_name" binding:"max=100"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type BidResponse struct {
	BidID   string          `json:"bid_id"`
	ItemID  string          `json:"item_id"`
	UserID  string          `json:"user_id"`
	Amount  decimal.Decimal `json:"amount"`
	BidTime string          `json:"bid_time"`
}

// NewBidResponse formats a bid for the API
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:   bid.ID,
		ItemID:  bid.ItemID,
		UserID:  bid.UserID,
		Amount:  bid.Amount,
		BidTime: bid.BidTime.UTC().Format(time.RFC3339),
	}
}

type LoginResponse struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expires_at"`
}

type AuthCheckResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
}
