package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/dealroom/internal/service/dealroom"
	"github.com/mamadbah2/dealroom/internal/service/transactions"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{dealroom.ErrDealNotFound, http.StatusNotFound},
		{dealroom.ErrListingNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: b1", dealroom.ErrBidNotFound), http.StatusNotFound},
		{transactions.ErrTransactionNotFound, http.StatusNotFound},
		{transactions.ErrNotParty, http.StatusForbidden},
		{dealroom.ErrInvalidState, http.StatusConflict},
		{dealroom.ErrDealExpired, http.StatusConflict},
		{dealroom.ErrRoundsExhausted, http.StatusConflict},
		{dealroom.ErrExtensionAlreadyUsed, http.StatusConflict},
		{dealroom.ErrConcurrentUpdate, http.StatusConflict},
		{dealroom.ErrBelowMinimumOrder, http.StatusUnprocessableEntity},
		{dealroom.ErrInvalidBid, http.StatusUnprocessableEntity},
		{dealroom.ErrInvalidAction, http.StatusUnprocessableEntity},
		{dealroom.ErrEmptyMessage, http.StatusUnprocessableEntity},
		{transactions.ErrInvalidRating, http.StatusUnprocessableEntity},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
