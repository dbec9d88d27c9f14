package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/service/dealroom"
	"github.com/mamadbah2/dealroom/internal/service/transactions"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dealroom.ErrDealNotFound),
		errors.Is(err, dealroom.ErrListingNotFound),
		errors.Is(err, dealroom.ErrBidNotFound),
		errors.Is(err, transactions.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, transactions.ErrNotParty):
		return http.StatusForbidden
	case errors.Is(err, dealroom.ErrInvalidState),
		errors.Is(err, dealroom.ErrRoundsExhausted),
		errors.Is(err, dealroom.ErrExtensionAlreadyUsed),
		errors.Is(err, dealroom.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, dealroom.ErrBelowMinimumOrder),
		errors.Is(err, dealroom.ErrInvalidBid),
		errors.Is(err, dealroom.ErrInvalidAction),
		errors.Is(err, dealroom.ErrEmptyMessage),
		errors.Is(err, transactions.ErrInvalidRating):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}
