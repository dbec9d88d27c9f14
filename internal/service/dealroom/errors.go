package dealroom

import (
	"errors"
	"fmt"
)

// Validation failures. All of them are returned before anything is written.
var (
	ErrInvalidState         = errors.New("deal room is not open")
	ErrRoundsExhausted      = errors.New("maximum rounds reached")
	ErrBelowMinimumOrder    = errors.New("volume below minimum order")
	ErrExtensionAlreadyUsed = errors.New("extension already used")
	ErrInvalidBid           = errors.New("volume and price must be positive")
	ErrInvalidAction        = errors.New("unknown response action")
	ErrEmptyMessage         = errors.New("message text is empty")
)

// ErrDealExpired is returned when an action reaches a deal whose expiry date
// has passed. The deal is moved to Expired before the error is returned.
var ErrDealExpired = fmt.Errorf("%w: deal room has expired", ErrInvalidState)

var (
	ErrDealNotFound     = errors.New("deal not found")
	ErrListingNotFound  = errors.New("listing not found")
	ErrBidNotFound      = errors.New("bid not found")
	ErrConcurrentUpdate = errors.New("deal was modified concurrently")
)
