package bidding

import (
	"auction-backend/internal/biddingerrors"
	"auction-backend/internal/events"
	"auction-backend/internal/models"
	"auction-backend/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DetailBidLimit is how many of the highest bids an item detail carries
const DetailBidLimit = 10

// CreateItemInput describes a new listing
type CreateItemInput struct {
	Title         string
	Description   string
	StartingPrice decimal.Decimal
	ImageURL      string
	// DurationHours <= 0 means the configured default
	DurationHours int
}

// CreateItem lists a new item for auction on behalf of sellerID
func (s *BiddingService) CreateItem(ctx context.Context, sellerID string, in CreateItemInput) (models.Item, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case sellerID == "":
		return models.Item{}, fmt.Errorf("service: %w - missing seller", biddingerrors.ErrValidation)
	case title == "":
		return models.Item{}, fmt.Errorf("service: %w - title is required", biddingerrors.ErrValidation)
	case len(title) > 200:
		return models.Item{}, fmt.Errorf("service: %w - title longer than 200 characters", biddingerrors.ErrValidation)
	case !models.ValidAmount(in.StartingPrice):
		return models.Item{}, fmt.Errorf("service: %w - starting price must be positive with at most %d decimal places", biddingerrors.ErrValidation, models.PriceScale)
	}

	duration := s.opts.DefaultDuration
	if in.DurationHours > 0 {
		duration = time.Duration(in.DurationHours) * time.Hour
	}

	now := s.clock.Now().UTC()
	item := models.Item{
		ID:            utils.GenerateID(),
		Title:         title,
		Description:   in.Description,
		StartingPrice: in.StartingPrice,
		CurrentPrice:  in.StartingPrice,
		ImageURL:      in.ImageURL,
		EndTime:       now.Add(duration),
		SellerID:      sellerID,
		Status:        models.ItemActive,
		CreatedAt:     now,
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return models.Item{}, wrapStoreErr(fmt.Sprintf("failed to create item for seller %s", sellerID), err)
	}
	s.metrics.ItemsCreated.Inc()
	return item, nil
}

// ListActiveItems returns items still open for bidding, newest first
func (s *BiddingService) ListActiveItems(ctx context.Context) ([]models.ItemSummary, error) {
	items, err := s.repo.ListActiveItems(ctx, s.clock.Now())
	if err != nil {
		return nil, wrapStoreErr("failed to list active items", err)
	}
	return items, nil
}

// GetItemDetail returns an item with its seller name and its highest bids
func (s *BiddingService) GetItemDetail(ctx context.Context, itemID string) (models.ItemDetail, error) {
	if itemID == "" {
		return models.ItemDetail{}, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrValidation)
	}

	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return models.ItemDetail{}, wrapStoreErr(fmt.Sprintf("failed to load item %s", itemID), err)
	}

	detail := models.ItemDetail{Item: item}

	seller, err := s.repo.GetUserByID(ctx, item.SellerID)
	switch {
	case err == nil:
		detail.SellerName = seller.Username
	case !errors.Is(err, biddingerrors.ErrUserNotFound):
		return models.ItemDetail{}, wrapStoreErr(fmt.Sprintf("failed to load seller of item %s", itemID), err)
	}

	bids, err := s.repo.ListBidsForItem(ctx, itemID, models.BidOrderLeader, DetailBidLimit)
	if err != nil {
		return models.ItemDetail{}, wrapStoreErr(fmt.Sprintf("failed to get bids for item %s", itemID), err)
	}
	detail.Bids = bids
	return detail, nil
}

// CloseItem ends an auction early. Only the seller may close an item, and only once.
func (s *BiddingService) CloseItem(ctx context.Context, itemID, callerID string) (models.Item, error) {
	if itemID == "" || callerID == "" {
		return models.Item{}, fmt.Errorf("service: %w - missing itemID or callerID", biddingerrors.ErrValidation)
	}

	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return models.Item{}, wrapStoreErr(fmt.Sprintf("failed to load item %s", itemID), err)
	}
	if item.SellerID != callerID {
		return models.Item{}, fmt.Errorf("service: %w - item %s", biddingerrors.ErrNotSeller, itemID)
	}

	closed, err := s.repo.CloseItem(ctx, itemID)
	if err != nil {
		return models.Item{}, wrapStoreErr(fmt.Sprintf("failed to close item %s", itemID), err)
	}
	if !closed {
		return models.Item{}, fmt.Errorf("service: %w - item %s", biddingerrors.ErrItemClosed, itemID)
	}

	s.afterClose(ctx, itemID)

	item, err = s.repo.GetItem(ctx, itemID)
	if err != nil {
		return models.Item{}, wrapStoreErr(fmt.Sprintf("failed to reload item %s", itemID), err)
	}
	return item, nil
}

// CloseExpired closes every active item whose end time has passed and returns how
// many it closed. Items closed concurrently by someone else are skipped.
func (s *BiddingService) CloseExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.ListExpiredActive(ctx, s.clock.Now())
	if err != nil {
		return 0, wrapStoreErr("failed to list expired items", err)
	}

	n := 0
	for _, item := range expired {
		closed, err := s.repo.CloseItem(ctx, item.ID)
		if err != nil {
			return n, wrapStoreErr(fmt.Sprintf("failed to close item %s", item.ID), err)
		}
		if !closed {
			continue
		}
		n++
		s.afterClose(ctx, item.ID)
	}
	return n, nil
}

// afterClose records the close and announces the winner, if any
func (s *BiddingService) afterClose(ctx context.Context, itemID string) {
	s.metrics.ItemsClosed.Inc()

	ev := events.Event{
		Type:       events.ItemClosed,
		ItemID:     itemID,
		OccurredAt: s.clock.Now().UTC(),
	}
	winner, err := s.repo.HighestBid(ctx, itemID)
	switch {
	case err == nil:
		ev.BidID, ev.UserID, ev.Amount = winner.ID, winner.UserID, winner.Amount
	case !errors.Is(err, biddingerrors.ErrNoBids):
		utils.Warn("service: failed to load winning bid for closed item", map[string]any{
			"item_id": itemID,
			"error":   err.Error(),
		})
	}

	utils.Info("service: item closed", map[string]any{
		"item_id":   itemID,
		"winner_id": ev.UserID,
		"amount":    ev.Amount.String(),
	})
	s.publish(ev)
}
