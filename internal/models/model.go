package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus is the lifecycle state of an auction item
type ItemStatus string

const (
	ItemActive ItemStatus = "active"
	ItemClosed ItemStatus = "closed"
)

// PriceScale is the number of decimal places money amounts carry
const PriceScale = 2

// User represents a participant in the auction
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Username     string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	FullName     string    `json:"full_name" gorm:"size:100"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// Item represents an auction item
type Item struct {
	ID            string          `json:"id" gorm:"primaryKey;size:36"`
	Title         string          `json:"title" gorm:"size:200;not null"`
	Description   string          `json:"description" gorm:"type:text"`
	StartingPrice decimal.Decimal `json:"starting_price" gorm:"type:decimal(10,2);not null"`
	CurrentPrice  decimal.Decimal `json:"current_price" gorm:"type:decimal(10,2);not null"`
	ImageURL      string          `json:"image_url" gorm:"size:500"`
	EndTime       time.Time       `json:"end_time" gorm:"not null;index"`
	SellerID      string          `json:"seller_id" gorm:"size:36;not null;index"`
	Status        ItemStatus      `json:"status" gorm:"size:10;not null;default:active;index"`
	CreatedAt     time.Time       `json:"created_at"`

	Seller *User `json:"-" gorm:"foreignKey:SellerID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (Item) TableName() string { return "items" }

// AcceptsBidsAt reports whether the auction is still open at now
func (i Item) AcceptsBidsAt(now time.Time) bool {
	return i.Status == ItemActive && now.Before(i.EndTime)
}

// Bid represents a user's bid on an item. Bids are never updated or deleted.
type Bid struct {
	ID      string          `json:"id" gorm:"primaryKey;size:36"`
	ItemID  string          `json:"item_id" gorm:"size:36;not null;index"`
	UserID  string          `json:"user_id" gorm:"size:36;not null;index"`
	Amount  decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	BidTime time.Time       `json:"bid_time" gorm:"not null"`

	Item *Item `json:"-" gorm:"foreignKey:ItemID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (Bid) TableName() string { return "bids" }

// BidOrder selects how a bid listing is sorted
type BidOrder int

const (
	// BidOrderHistory sorts by bid_time ascending
	BidOrderHistory BidOrder = iota
	// BidOrderLeader sorts by amount descending, then bid_time ascending
	BidOrderLeader
)

// BidView is a bid enriched with the bidder's username
type BidView struct {
	Bid
	Username string `json:"username"`
}

// ItemSummary is an item as shown in listings
type ItemSummary struct {
	Item
	SellerName string `json:"seller_name"`
	BidCount   int64  `json:"bid_count"`
}

// ItemDetail is an item with its top bids
type ItemDetail struct {
	Item
	SellerName string    `json:"seller_name"`
	Bids       []BidView `json:"bids"`
}

// ValidAmount reports whether d is a positive money amount with at most PriceScale decimals
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(PriceScale))
}
