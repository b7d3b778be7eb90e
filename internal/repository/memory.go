package repository

import (
	"auction-backend/internal/biddingerrors"
	model "auction-backend/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// itemEntry owns one item and its bids. Its mutex guards the (current_price, bids) pair.
type itemEntry struct {
	mu   sync.Mutex
	item model.Item
	bids []model.Bid
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu        sync.RWMutex // guards the maps, not the entries
	items     map[string]*itemEntry
	users     map[string]model.User // key: userID
	usernames map[string]string     // key: username -> userID
	emails    map[string]string     // key: email -> userID

	biddersMu sync.Mutex
	userItems map[string][]string // key: userID -> value: list of itemIDs user has bid on
}

var _ AuctionDB = (*MemoryRepo)(nil)

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items:     make(map[string]*itemEntry),
		users:     make(map[string]model.User),
		usernames: make(map[string]string),
		emails:    make(map[string]string),
		userItems: make(map[string][]string),
	}
}

func (r *MemoryRepo) entry(itemID string) (*itemEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[itemID]
	return e, ok
}

func (r *MemoryRepo) entries() []*itemEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*itemEntry, 0, len(r.items))
	for _, e := range r.items {
		out = append(out, e)
	}
	return out
}

func (r *MemoryRepo) hasUser(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

func (r *MemoryRepo) username(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[userID].Username
}

// GetItem returns a copy of the stored item
func (r *MemoryRepo) GetItem(ctx context.Context, itemID string) (model.Item, error) {
	e, ok := r.entry(itemID)
	if !ok {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.item, nil
}

// CreateItem stores a new item
func (r *MemoryRepo) CreateItem(ctx context.Context, item model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		return fmt.Errorf("create item: %w - empty item id", biddingerrors.ErrValidation)
	}
	if _, ok := r.items[item.ID]; ok {
		return fmt.Errorf("create item %s: duplicate id", item.ID)
	}
	if _, ok := r.users[item.SellerID]; !ok {
		return fmt.Errorf("create item %s: seller %s: %w", item.ID, item.SellerID, biddingerrors.ErrUserNotFound)
	}
	r.items[item.ID] = &itemEntry{item: item}
	return nil
}

// AddItem adds an item to the repository without checking the seller. Used for seeding.
func (r *MemoryRepo) AddItem(item model.Item) {
	if item.Status == "" {
		item.Status = model.ItemActive
	}
	if item.CurrentPrice.LessThan(item.StartingPrice) {
		item.CurrentPrice = item.StartingPrice
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = &itemEntry{item: item}
}

// AddUser stores a user without uniqueness checks. Used for seeding.
func (r *MemoryRepo) AddUser(user model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	if user.Username != "" {
		r.usernames[user.Username] = user.ID
	}
	if user.Email != "" {
		r.emails[user.Email] = user.ID
	}
}

// UpdatePriceIfCurrent swaps the current price if it still equals expected
func (r *MemoryRepo) UpdatePriceIfCurrent(ctx context.Context, itemID string, expected, newPrice decimal.Decimal) (bool, error) {
	e, ok := r.entry(itemID)
	if !ok {
		return false, fmt.Errorf("update price for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.openAtLocked(expected) {
		return false, nil
	}
	e.item.CurrentPrice = newPrice
	return true, nil
}

// openAtLocked reports whether the item is still active at the expected price. Caller holds e.mu.
func (e *itemEntry) openAtLocked(expected decimal.Decimal) bool {
	return e.item.Status == model.ItemActive && e.item.CurrentPrice.Equal(expected)
}

// CloseItem marks an active item closed
func (r *MemoryRepo) CloseItem(ctx context.Context, itemID string) (bool, error) {
	e, ok := r.entry(itemID)
	if !ok {
		return false, fmt.Errorf("close item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.item.Status == model.ItemClosed {
		return false, nil
	}
	e.item.Status = model.ItemClosed
	return true, nil
}

// ListActiveItems returns open items with their bid counts, newest first
func (r *MemoryRepo) ListActiveItems(ctx context.Context, now time.Time) ([]model.ItemSummary, error) {
	out := []model.ItemSummary{}
	for _, e := range r.entries() {
		e.mu.Lock()
		item, count := e.item, len(e.bids)
		e.mu.Unlock()

		if !item.AcceptsBidsAt(now) {
			continue
		}
		out = append(out, model.ItemSummary{Item: item, BidCount: int64(count)})
	}
	for i := range out {
		out[i].SellerName = r.username(out[i].SellerID)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListExpiredActive returns active items whose end time has passed
func (r *MemoryRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]model.Item, error) {
	var out []model.Item
	for _, e := range r.entries() {
		e.mu.Lock()
		item := e.item
		e.mu.Unlock()
		if item.Status == model.ItemActive && !now.Before(item.EndTime) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out, nil
}

// AppendBid records a bid without touching the item's price
func (r *MemoryRepo) AppendBid(ctx context.Context, bid model.Bid) (string, error) {
	e, ok := r.entry(bid.ItemID)
	if !ok {
		return "", fmt.Errorf("append bid for item %s: %w", bid.ItemID, biddingerrors.ErrItemNotFound)
	}
	if !r.hasUser(bid.UserID) {
		return "", fmt.Errorf("append bid for item %s: bidder %s: %w", bid.ItemID, bid.UserID, biddingerrors.ErrUserNotFound)
	}
	e.mu.Lock()
	e.bids = append(e.bids, bid)
	e.mu.Unlock()

	r.trackBidder(bid.UserID, bid.ItemID)
	return bid.ID, nil
}

// CommitBid swaps the price and appends the bid under the item's lock
func (r *MemoryRepo) CommitBid(ctx context.Context, bid model.Bid, expectedPrice decimal.Decimal) (bool, error) {
	e, ok := r.entry(bid.ItemID)
	if !ok {
		return false, fmt.Errorf("commit bid for item %s: %w", bid.ItemID, biddingerrors.ErrItemNotFound)
	}

	e.mu.Lock()
	if err := ctx.Err(); err != nil {
		e.mu.Unlock()
		return false, fmt.Errorf("commit bid for item %s: %w", bid.ItemID, err)
	}
	if !e.openAtLocked(expectedPrice) {
		e.mu.Unlock()
		return false, nil
	}
	if !r.hasUser(bid.UserID) {
		e.mu.Unlock()
		return false, fmt.Errorf("commit bid for item %s: bidder %s: %w", bid.ItemID, bid.UserID, biddingerrors.ErrUserNotFound)
	}
	e.item.CurrentPrice = bid.Amount
	e.bids = append(e.bids, bid)
	e.mu.Unlock()

	r.trackBidder(bid.UserID, bid.ItemID)
	return true, nil
}

func (r *MemoryRepo) trackBidder(userID, itemID string) {
	r.biddersMu.Lock()
	defer r.biddersMu.Unlock()

	for _, id := range r.userItems[userID] {
		if id == itemID {
			return
		}
	}
	r.userItems[userID] = append(r.userItems[userID], itemID)
}

// ListBidsForItem returns bids in the requested order, enriched with usernames
func (r *MemoryRepo) ListBidsForItem(ctx context.Context, itemID string, order model.BidOrder, limit int) ([]model.BidView, error) {
	e, ok := r.entry(itemID)
	if !ok {
		return nil, fmt.Errorf("list bids for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	e.mu.Lock()
	bids := append([]model.Bid(nil), e.bids...)
	e.mu.Unlock()

	sortBids(bids, order)
	if limit > 0 && len(bids) > limit {
		bids = bids[:limit]
	}

	out := make([]model.BidView, 0, len(bids))
	for _, b := range bids {
		out = append(out, model.BidView{Bid: b, Username: r.username(b.UserID)})
	}
	return out, nil
}

func sortBids(bids []model.Bid, order model.BidOrder) {
	switch order {
	case model.BidOrderLeader:
		sort.SliceStable(bids, func(i, j int) bool {
			if !bids[i].Amount.Equal(bids[j].Amount) {
				return bids[i].Amount.GreaterThan(bids[j].Amount)
			}
			return bids[i].BidTime.Before(bids[j].BidTime)
		})
	default:
		sort.SliceStable(bids, func(i, j int) bool { return bids[i].BidTime.Before(bids[j].BidTime) })
	}
}

// HighestBid returns the highest bid for an item, earliest first on ties
func (r *MemoryRepo) HighestBid(ctx context.Context, itemID string) (model.Bid, error) {
	e, ok := r.entry(itemID)
	if !ok {
		return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemID, biddingerrors.ErrNoBids)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.bids) == 0 {
		return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemID, biddingerrors.ErrNoBids)
	}

	winning := e.bids[0]
	for _, b := range e.bids[1:] {
		if b.Amount.GreaterThan(winning.Amount) || (b.Amount.Equal(winning.Amount) && b.BidTime.Before(winning.BidTime)) {
			winning = b
		}
	}
	return winning, nil
}

// GetItemsByUser returns all items a user has bid on
func (r *MemoryRepo) GetItemsByUser(ctx context.Context, userID string) ([]model.Item, error) {
	r.biddersMu.Lock()
	itemIDs := append([]string(nil), r.userItems[userID]...)
	r.biddersMu.Unlock()

	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("get items for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}

	items := make([]model.Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		if e, ok := r.entry(id); ok {
			e.mu.Lock()
			items = append(items, e.item)
			e.mu.Unlock()
		}
	}
	return items, nil
}

// CreateUser registers a user with a unique username and email
func (r *MemoryRepo) CreateUser(ctx context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usernames[user.Username]; ok {
		return fmt.Errorf("create user %s: %w", user.Username, biddingerrors.ErrUserExists)
	}
	if _, ok := r.emails[user.Email]; ok {
		return fmt.Errorf("create user %s: email taken: %w", user.Username, biddingerrors.ErrUserExists)
	}
	if _, ok := r.users[user.ID]; ok {
		return fmt.Errorf("create user %s: %w", user.ID, biddingerrors.ErrUserExists)
	}

	r.users[user.ID] = user
	r.usernames[user.Username] = user.ID
	r.emails[user.Email] = user.ID
	return nil
}

// GetUserByID looks up a user by id
func (r *MemoryRepo) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	return u, nil
}

// GetUserByUsername looks up a user by username
func (r *MemoryRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usernames[username]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", username, biddingerrors.ErrUserNotFound)
	}
	return r.users[id], nil
}

// ListUsers returns all users ordered by username
func (r *MemoryRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Ping always succeeds for the in-memory store
func (r *MemoryRepo) Ping(ctx context.Context) error {
	return nil
}
