package repository

import (
	"auction-backend/internal/biddingerrors"
	model "auction-backend/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLRepo implements AuctionDB on a relational database through gorm
type SQLRepo struct {
	db *gorm.DB
}

var _ AuctionDB = (*SQLRepo)(nil)

// OpenSQLite opens (or creates) a SQLite database and migrates the schema.
// SQLite allows a single writer, so the pool is limited to one connection.
func OpenSQLite(dsn string) (*SQLRepo, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return NewSQLRepo(db)
}

// NewSQLRepo wraps an open gorm handle and migrates the schema
func NewSQLRepo(db *gorm.DB) (*SQLRepo, error) {
	if err := db.AutoMigrate(&model.User{}, &model.Item{}, &model.Bid{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLRepo{db: db}, nil
}

// Close releases the underlying connection pool
func (r *SQLRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(biddingerrors.ErrStoreUnavailable, err))
}

func isForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(err.Error(), "FOREIGN KEY")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}

// GetItem loads one item by id
func (r *SQLRepo) GetItem(ctx context.Context, itemID string) (model.Item, error) {
	return getItem(r.db.WithContext(ctx), itemID)
}

func getItem(db *gorm.DB, itemID string) (model.Item, error) {
	var item model.Item
	if err := db.Where("id = ?", itemID).Take(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Item{}, fmt.Errorf("get item %s: %w", itemID, biddingerrors.ErrItemNotFound)
		}
		return model.Item{}, storeErr("get item "+itemID, err)
	}
	return item, nil
}

// CreateItem inserts a new item
func (r *SQLRepo) CreateItem(ctx context.Context, item model.Item) error {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("create item %s: seller %s: %w", item.ID, item.SellerID, biddingerrors.ErrUserNotFound)
		}
		return storeErr("create item "+item.ID, err)
	}
	return nil
}

// UpdatePriceIfCurrent performs a conditional UPDATE on the item row
func (r *SQLRepo) UpdatePriceIfCurrent(ctx context.Context, itemID string, expected, newPrice decimal.Decimal) (bool, error) {
	return updatePriceIfCurrent(r.db.WithContext(ctx), itemID, expected, newPrice)
}

// updatePriceIfCurrent relies on the UPDATE's row lock: a concurrent writer either
// sees the old price and wins, or sees the new one and affects zero rows.
func updatePriceIfCurrent(db *gorm.DB, itemID string, expected, newPrice decimal.Decimal) (bool, error) {
	res := db.Model(&model.Item{}).
		Where("id = ? AND current_price = ? AND status = ?", itemID, expected, model.ItemActive).
		Update("current_price", newPrice)
	if res.Error != nil {
		return false, storeErr("update price for item "+itemID, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := getItem(db, itemID); err != nil {
		return false, err
	}
	return false, nil
}

// CloseItem marks an active item closed
func (r *SQLRepo) CloseItem(ctx context.Context, itemID string) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&model.Item{}).
		Where("id = ? AND status = ?", itemID, model.ItemActive).
		Update("status", model.ItemClosed)
	if res.Error != nil {
		return false, storeErr("close item "+itemID, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := getItem(db, itemID); err != nil {
		return false, err
	}
	return false, nil
}

// ListActiveItems returns open items with seller name and bid count, newest first
func (r *SQLRepo) ListActiveItems(ctx context.Context, now time.Time) ([]model.ItemSummary, error) {
	out := []model.ItemSummary{}
	err := r.db.WithContext(ctx).
		Table("items").
		Select("items.*, users.username AS seller_name, (SELECT COUNT(*) FROM bids WHERE bids.item_id = items.id) AS bid_count").
		Joins("LEFT JOIN users ON users.id = items.seller_id").
		Where("items.status = ? AND items.end_time > ?", model.ItemActive, now).
		Order("items.created_at DESC, items.id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, storeErr("list active items", err)
	}
	return out, nil
}

// ListExpiredActive returns active items whose end time has passed
func (r *SQLRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]model.Item, error) {
	var out []model.Item
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", model.ItemActive, now).
		Order("end_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr("list expired items", err)
	}
	return out, nil
}

// AppendBid inserts a bid row without touching the item's price
func (r *SQLRepo) AppendBid(ctx context.Context, bid model.Bid) (string, error) {
	return appendBid(r.db.WithContext(ctx), bid)
}

func appendBid(db *gorm.DB, bid model.Bid) (string, error) {
	if err := db.Create(&bid).Error; err != nil {
		if isForeignKeyViolation(err) {
			return "", missingBidReference(db, bid)
		}
		return "", storeErr("append bid for item "+bid.ItemID, err)
	}
	return bid.ID, nil
}

// missingBidReference tells which side of a bid's foreign keys is missing
func missingBidReference(db *gorm.DB, bid model.Bid) error {
	var users int64
	if err := db.Model(&model.User{}).Where("id = ?", bid.UserID).Count(&users).Error; err != nil {
		return storeErr("append bid for item "+bid.ItemID, err)
	}
	if users == 0 {
		return fmt.Errorf("append bid for item %s: bidder %s: %w", bid.ItemID, bid.UserID, biddingerrors.ErrUserNotFound)
	}
	return fmt.Errorf("append bid for item %s: %w", bid.ItemID, biddingerrors.ErrItemNotFound)
}

// CommitBid runs the price swap and the bid insert in one transaction
func (r *SQLRepo) CommitBid(ctx context.Context, bid model.Bid, expectedPrice decimal.Decimal) (bool, error) {
	committed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swapped, err := updatePriceIfCurrent(tx, bid.ItemID, expectedPrice, bid.Amount)
		if err != nil || !swapped {
			return err
		}
		if _, err := appendBid(tx, bid); err != nil {
			return err
		}
		committed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, biddingerrors.ErrItemNotFound) || errors.Is(err, biddingerrors.ErrUserNotFound) ||
			errors.Is(err, biddingerrors.ErrStoreUnavailable) {
			return false, err
		}
		return false, storeErr("commit bid for item "+bid.ItemID, err)
	}
	return committed, nil
}

// ListBidsForItem returns bids with bidder usernames in the requested order
func (r *SQLRepo) ListBidsForItem(ctx context.Context, itemID string, order model.BidOrder, limit int) ([]model.BidView, error) {
	db := r.db.WithContext(ctx)
	if _, err := getItem(db, itemID); err != nil {
		return nil, err
	}

	q := db.Table("bids").
		Select("bids.*, users.username AS username").
		Joins("LEFT JOIN users ON users.id = bids.user_id").
		Where("bids.item_id = ?", itemID)

	switch order {
	case model.BidOrderLeader:
		q = q.Order("bids.amount DESC, bids.bid_time ASC")
	default:
		q = q.Order("bids.bid_time ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	out := []model.BidView{}
	if err := q.Scan(&out).Error; err != nil {
		return nil, storeErr("list bids for item "+itemID, err)
	}
	return out, nil
}

// HighestBid returns the highest bid for an item, earliest first on ties
func (r *SQLRepo) HighestBid(ctx context.Context, itemID string) (model.Bid, error) {
	var bid model.Bid
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("amount DESC, bid_time ASC").
		Take(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemID, biddingerrors.ErrNoBids)
		}
		return model.Bid{}, storeErr("get winning bid for item "+itemID, err)
	}
	return bid, nil
}

// GetItemsByUser returns all items a user has bid on
func (r *SQLRepo) GetItemsByUser(ctx context.Context, userID string) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&model.Bid{}).Distinct("item_id").Where("user_id = ?", userID)).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, storeErr("get items for user "+userID, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("get items for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}
	return items, nil
}

// CreateUser inserts a user, translating unique violations to ErrUserExists
func (r *SQLRepo) CreateUser(ctx context.Context, user model.User) error {
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", user.Username, biddingerrors.ErrUserExists)
		}
		return storeErr("create user "+user.Username, err)
	}
	return nil
}

// GetUserByID looks up a user by id
func (r *SQLRepo) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	return r.findUser(ctx, "id = ?", userID)
}

// GetUserByUsername looks up a user by username
func (r *SQLRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return r.findUser(ctx, "username = ?", username)
}

func (r *SQLRepo) findUser(ctx context.Context, cond string, arg string) (model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, fmt.Errorf("get user %s: %w", arg, biddingerrors.ErrUserNotFound)
		}
		return model.User{}, storeErr("get user "+arg, err)
	}
	return user, nil
}

// ListUsers returns all users ordered by username
func (r *SQLRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	out := []model.User{}
	if err := r.db.WithContext(ctx).Order("username ASC").Find(&out).Error; err != nil {
		return nil, storeErr("list users", err)
	}
	return out, nil
}

// Ping checks the database connection
func (r *SQLRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return storeErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
