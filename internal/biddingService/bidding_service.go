package bidding

import (
	"auction-backend/internal/biddingerrors"
	"auction-backend/internal/clock"
	"auction-backend/internal/events"
	"auction-backend/internal/metrics"
	"auction-backend/internal/models"
	"auction-backend/internal/repository"
	"auction-backend/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Options tunes bidding policy
type Options struct {
	// AllowSelfBid lets sellers bid on their own items
	AllowSelfBid bool
	// MaxAttempts bounds how many times PlaceBid re-reads the item after losing a
	// price swap to a concurrent bid
	MaxAttempts int
	// DefaultDuration is used when an item is created without a duration
	DefaultDuration time.Duration
	// EventBuffer is how many events may wait for delivery before new ones are dropped
	EventBuffer int
	// PublishTimeout bounds each event delivery
	PublishTimeout time.Duration
}

// DefaultOptions returns the policy used when none is configured
func DefaultOptions() Options {
	return Options{
		AllowSelfBid:    true,
		MaxAttempts:     16,
		DefaultDuration: 24 * time.Hour,
		EventBuffer:     1024,
		PublishTimeout:  events.DefaultPublishTimeout,
	}
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithClock sets the time source used by PlaceBid and item creation
func WithClock(c clock.Clock) Option {
	return func(s *BiddingService) { s.clock = c }
}

// WithPublisher sets where BidPlaced and ItemClosed events go. The service delivers
// to it in the background and closes it on Close.
func WithPublisher(p events.Publisher) Option {
	return func(s *BiddingService) { s.publisher = p }
}

// WithMetrics sets the collectors the service reports to
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BiddingService) { s.metrics = m }
}

// WithOptions sets bidding policy
func WithOptions(o Options) Option {
	return func(s *BiddingService) { s.opts = o }
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo      repository.AuctionDB
	clock     clock.Clock
	publisher events.Publisher
	metrics   *metrics.Metrics
	opts      Options
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:      repo,
		clock:     clock.System(),
		publisher: events.NopPublisher{},
		metrics:   metrics.New(),
		opts:      DefaultOptions(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.opts.MaxAttempts <= 0 {
		s.opts.MaxAttempts = 1
	}
	if s.opts.DefaultDuration <= 0 {
		s.opts.DefaultDuration = DefaultOptions().DefaultDuration
	}
	if s.opts.EventBuffer <= 0 {
		s.opts.EventBuffer = DefaultOptions().EventBuffer
	}
	if _, nop := s.publisher.(events.NopPublisher); !nop {
		s.publisher = events.NewAsync(s.publisher, s.opts.EventBuffer, s.opts.PublishTimeout)
	}
	return s
}

// Close delivers events still queued and closes the publisher
func (s *BiddingService) Close() error {
	return s.publisher.Close()
}

// PlaceBid validates and records a user's bid for an item at the current time
func (s *BiddingService) PlaceBid(ctx context.Context, itemID, userID string, amount decimal.Decimal) (models.Bid, error) {
	return s.PlaceBidAt(ctx, itemID, userID, amount, s.clock.Now())
}

// PlaceBidAt places a bid as if it arrived at now.
//
// Preconditions are checked in order: the item exists, the auction is open at now,
// the amount is strictly above the current price, and (when self-bidding is disabled)
// the bidder is not the seller. The bid append and the price update commit together.
// When the commit loses to a concurrent bid the item is re-read and every check runs
// again against the new price.
func (s *BiddingService) PlaceBidAt(ctx context.Context, itemID, userID string, amount decimal.Decimal, now time.Time) (models.Bid, error) {
	bid, err := s.placeBid(ctx, itemID, userID, amount, now)
	s.recordOutcome(err)
	if err != nil {
		return models.Bid{}, err
	}

	s.publish(events.Event{
		Type:       events.BidPlaced,
		ItemID:     bid.ItemID,
		BidID:      bid.ID,
		UserID:     bid.UserID,
		Amount:     bid.Amount,
		OccurredAt: bid.BidTime,
	})
	return bid, nil
}

func (s *BiddingService) placeBid(ctx context.Context, itemID, userID string, amount decimal.Decimal, now time.Time) (models.Bid, error) {
	if err := validateBid(itemID, userID, amount); err != nil {
		return models.Bid{}, err
	}

	bid := models.Bid{
		ID:      utils.GenerateID(),
		ItemID:  itemID,
		UserID:  userID,
		Amount:  amount,
		BidTime: now.UTC(),
	}

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Bid{}, storeUnavailable(fmt.Sprintf("bid on item %s cancelled", itemID), err)
		}

		item, err := s.repo.GetItem(ctx, itemID)
		if err != nil {
			return models.Bid{}, wrapStoreErr(fmt.Sprintf("failed to load item %s", itemID), err)
		}
		if err := checkBid(item, userID, amount, now, s.opts.AllowSelfBid); err != nil {
			return models.Bid{}, err
		}

		committed, err := s.repo.CommitBid(ctx, bid, item.CurrentPrice)
		if err != nil {
			return models.Bid{}, wrapStoreErr(fmt.Sprintf("failed to record bid for item %s by user %s", itemID, userID), err)
		}
		if committed {
			return bid, nil
		}

		s.metrics.BidRetries.Inc()
		utils.Debug("service: price moved during bid, retrying", map[string]any{
			"item_id": itemID,
			"user_id": userID,
			"amount":  amount.String(),
			"attempt": attempt,
		})
	}

	return models.Bid{}, fmt.Errorf("service: %w - item %s kept moving after %d attempts", biddingerrors.ErrBidTooLow, itemID, s.opts.MaxAttempts)
}

// validateBid checks input shape before any store access
func validateBid(itemID, userID string, amount decimal.Decimal) error {
	if itemID == "" || userID == "" {
		return fmt.Errorf("service: %w - missing itemID or userID", biddingerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}
	if !models.ValidAmount(amount) {
		return fmt.Errorf("service: %w - amount %s has more than %d decimal places", biddingerrors.ErrInvalidBid, amount, models.PriceScale)
	}
	return nil
}

// checkBid applies the business preconditions against a snapshot of the item
func checkBid(item models.Item, userID string, amount decimal.Decimal, now time.Time, allowSelfBid bool) error {
	if !item.AcceptsBidsAt(now) {
		return fmt.Errorf("service: %w - item %s ended at %s", biddingerrors.ErrAuctionEnded, item.ID, item.EndTime.UTC().Format(time.RFC3339))
	}
	if !amount.GreaterThan(item.CurrentPrice) {
		return fmt.Errorf("service: %w - current price is %s", biddingerrors.ErrBidTooLow, item.CurrentPrice.StringFixed(models.PriceScale))
	}
	if !allowSelfBid && userID == item.SellerID {
		return fmt.Errorf("service: %w - item %s", biddingerrors.ErrSelfBid, item.ID)
	}
	return nil
}

func (s *BiddingService) recordOutcome(err error) {
	switch {
	case err == nil:
		s.metrics.BidsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	case biddingerrors.Retryable(err), biddingerrors.Code(err) == biddingerrors.CodeInternal:
		s.metrics.BidsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	default:
		s.metrics.BidsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
}

// publish hands ev off without waiting for delivery. The state it describes is
// already committed, so it must not depend on the caller's context.
func (s *BiddingService) publish(ev events.Event) {
	if err := s.publisher.Publish(context.Background(), ev); err != nil {
		utils.Warn("service: failed to publish event", map[string]any{
			"type":    string(ev.Type),
			"item_id": ev.ItemID,
			"error":   err.Error(),
		})
	}
}

// wrapStoreErr keeps domain errors from the store as they are and tags everything
// else as a transient store failure.
func wrapStoreErr(msg string, err error) error {
	if biddingerrors.Code(err) != biddingerrors.CodeInternal {
		return fmt.Errorf("service: %s: %w", msg, err)
	}
	return storeUnavailable(msg, err)
}

func storeUnavailable(msg string, err error) error {
	return fmt.Errorf("service: %s: %w", msg, errors.Join(biddingerrors.ErrStoreUnavailable, err))
}

// GetBidsForItem returns all bids for a specific item in the order they were placed
func (s *BiddingService) GetBidsForItem(ctx context.Context, itemID string) ([]models.BidView, error) {
	if itemID == "" {
		return nil, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrValidation)
	}

	bids, err := s.repo.ListBidsForItem(ctx, itemID, models.BidOrderHistory, 0)
	if err != nil {
		return nil, wrapStoreErr(fmt.Sprintf("failed to get bids for item %s", itemID), err)
	}

	return bids, nil
}

// GetWinningBid returns the highest bid for a specific item
func (s *BiddingService) GetWinningBid(ctx context.Context, itemID string) (models.Bid, error) {
	if itemID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrValidation)
	}

	winningBid, err := s.repo.HighestBid(ctx, itemID)
	if err != nil {
		return models.Bid{}, wrapStoreErr(fmt.Sprintf("failed to get winning bid for item %s", itemID), err)
	}

	return winningBid, nil
}

// GetItemsByUser returns all items a user has placed bids on
func (s *BiddingService) GetItemsByUser(ctx context.Context, userID string) ([]models.Item, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrValidation)
	}

	items, err := s.repo.GetItemsByUser(ctx, userID)
	if err != nil {
		return nil, wrapStoreErr(fmt.Sprintf("failed to get items for user %s", userID), err)
	}

	return items, nil
}

// Ping reports whether the backing store is reachable
func (s *BiddingService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return wrapStoreErr("store ping failed", err)
	}
	return nil
}
