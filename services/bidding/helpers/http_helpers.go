package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-backend/internal/biddingerrors"
	"auction-backend/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, biddingerrors.CodeValidation, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to an HTTP status, a stable error code
// and a human message
func MapErrorToHTTP(err error) (int, string, string) {
	code := biddingerrors.Code(err)
	switch {
	case errors.Is(err, biddingerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, code, "service temporarily unavailable, retry later"
	case errors.Is(err, biddingerrors.ErrItemNotFound):
		return http.StatusNotFound, code, "item not found"
	case errors.Is(err, biddingerrors.ErrUserNotFound):
		return http.StatusNotFound, code, "user not found"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, code, "no bids found for item"
	case errors.Is(err, biddingerrors.ErrAuctionEnded):
		return http.StatusBadRequest, code, "auction has ended"
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusBadRequest, code, "bid must be higher than current price"
	case errors.Is(err, biddingerrors.ErrSelfBid):
		return http.StatusBadRequest, code, "sellers cannot bid on their own items"
	case errors.Is(err, biddingerrors.ErrInvalidBid), errors.Is(err, biddingerrors.ErrValidation):
		return http.StatusBadRequest, code, "invalid request details"
	case errors.Is(err, biddingerrors.ErrUnauthenticated):
		return http.StatusUnauthorized, code, "authentication required"
	case errors.Is(err, biddingerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, code, "invalid username or password"
	case errors.Is(err, biddingerrors.ErrUserExists):
		return http.StatusConflict, code, "username or email already registered"
	case errors.Is(err, biddingerrors.ErrNotSeller):
		return http.StatusForbidden, code, "only the seller can close this item"
	case errors.Is(err, biddingerrors.ErrRateLimited):
		return http.StatusTooManyRequests, code, "too many requests, slow down"
	case errors.Is(err, biddingerrors.ErrItemClosed):
		return http.StatusConflict, code, "item already closed"
	default:
		return http.StatusInternalServerError, code, "internal server error"
	}
}

// RespondError writes the mapped error and logs it: rejections at warn, failures at error
func RespondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, code, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, code, err, message)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["code"] = code
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
