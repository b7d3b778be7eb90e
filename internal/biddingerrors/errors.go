package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrItemNotFound     = errors.New("item not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrNoBids           = errors.New("no bids found for item")
	ErrUserNoBids       = errors.New("user has not placed any bids")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// business logic errors
var (
	// ErrValidation rejects malformed input that is not a bid, such as signup fields
	ErrValidation         = errors.New("invalid input")
	ErrInvalidBid         = errors.New("invalid bid")
	ErrAuctionEnded       = errors.New("auction has ended")
	ErrBidTooLow          = errors.New("bid amount too low")
	ErrSelfBid            = errors.New("seller cannot bid on own item")
	ErrItemClosed         = errors.New("item already closed")
	ErrNotSeller          = errors.New("only the seller can close an item")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many requests")
)

// Stable machine-readable codes returned to API clients.
const (
	CodeItemNotFound       = "item_not_found"
	CodeUserNotFound       = "user_not_found"
	CodeUserExists         = "user_exists"
	CodeNoBids             = "no_bids"
	CodeAuctionEnded       = "auction_ended"
	CodeBidTooLow          = "bid_too_low"
	CodeSelfBid            = "self_bid_rejected"
	CodeItemClosed         = "item_closed"
	CodeNotSeller          = "not_seller"
	CodeUnauthenticated    = "unauthenticated"
	CodeInvalidCredentials = "invalid_credentials"
	CodeRateLimited        = "rate_limited"
	CodeValidation         = "validation_error"
	CodeStoreUnavailable   = "store_unavailable"
	CodeInternal           = "internal_error"
)

var codes = []struct {
	err  error
	code string
}{
	// StoreUnavailable first: an infrastructure failure wins over whatever it interrupted.
	{ErrStoreUnavailable, CodeStoreUnavailable},
	{ErrItemNotFound, CodeItemNotFound},
	{ErrUserNotFound, CodeUserNotFound},
	{ErrUserExists, CodeUserExists},
	{ErrNoBids, CodeNoBids},
	{ErrUserNoBids, CodeNoBids},
	{ErrAuctionEnded, CodeAuctionEnded},
	{ErrBidTooLow, CodeBidTooLow},
	{ErrSelfBid, CodeSelfBid},
	{ErrItemClosed, CodeItemClosed},
	{ErrNotSeller, CodeNotSeller},
	{ErrUnauthenticated, CodeUnauthenticated},
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrRateLimited, CodeRateLimited},
	{ErrInvalidBid, CodeValidation},
	{ErrValidation, CodeValidation},
}

// Code returns the stable code for err, or CodeInternal when err matches no known kind.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Retryable reports whether the caller may retry the request unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
