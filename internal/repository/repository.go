package repository

import (
	model "auction-backend/internal/models"
	"context"
	"time"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mock_repository.go -package=repository auction-backend/internal/repository AuctionDB

// ItemStore is the persistent record of auctionable items
type ItemStore interface {
	// GetItem returns ErrItemNotFound when no item has the given id
	GetItem(ctx context.Context, itemID string) (model.Item, error)
	CreateItem(ctx context.Context, item model.Item) error
	// UpdatePriceIfCurrent sets the current price to newPrice only if it still equals
	// expected and the item is active. It returns false when the swap did not happen.
	UpdatePriceIfCurrent(ctx context.Context, itemID string, expected, newPrice decimal.Decimal) (bool, error)
	// CloseItem moves an item from active to closed. It returns false if the item
	// was already closed.
	CloseItem(ctx context.Context, itemID string) (bool, error)
	// ListActiveItems returns active items whose end time is after now, newest first
	ListActiveItems(ctx context.Context, now time.Time) ([]model.ItemSummary, error)
	// ListExpiredActive returns items still marked active whose end time is not after now
	ListExpiredActive(ctx context.Context, now time.Time) ([]model.Item, error)
}

// BidStore is the append-only ledger of bids
type BidStore interface {
	AppendBid(ctx context.Context, bid model.Bid) (string, error)
	// ListBidsForItem returns bids in the requested order. A limit <= 0 returns all bids.
	ListBidsForItem(ctx context.Context, itemID string, order model.BidOrder, limit int) ([]model.BidView, error)
	// HighestBid returns ErrNoBids when the item has no bids
	HighestBid(ctx context.Context, itemID string) (model.Bid, error)
	// GetItemsByUser returns the items a user has bid on, or ErrUserNoBids
	GetItemsByUser(ctx context.Context, userID string) ([]model.Item, error)
}

// UserStore holds registered users
type UserStore interface {
	// CreateUser returns ErrUserExists when the username or email is taken
	CreateUser(ctx context.Context, user model.User) error
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// AuctionDB defines the storage interface for the auction system
type AuctionDB interface {
	ItemStore
	BidStore
	UserStore

	// CommitBid applies the price swap from expectedPrice to bid.Amount and appends bid
	// as one unit: either both writes become visible or neither does. It returns false,
	// with nothing written, when the item's price no longer equals expectedPrice or the
	// item is no longer active.
	CommitBid(ctx context.Context, bid model.Bid, expectedPrice decimal.Decimal) (bool, error)

	Ping(ctx context.Context) error
}
