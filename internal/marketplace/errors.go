package marketplace

import "errors"

// Every failure aborts the whole operation with no partial state change; the
// distinct errors below are the caller's only recovery signal.
var (
	// Authorization
	ErrNotSeller    = errors.New("caller is not the listing seller")
	ErrNotOwner     = errors.New("caller does not own the asset")
	ErrNotApproved  = errors.New("engine is not approved to transfer the asset")
	ErrUnauthorized = errors.New("caller is not the marketplace admin")

	// State
	ErrNotListed     = errors.New("asset is not listed")
	ErrAlreadyListed = errors.New("asset is already listed")

	// Validation
	ErrInvalidPrice = errors.New("price must be greater than zero")

	// Payment
	ErrPaymentMismatch = errors.New("tendered payment does not match the required amount")
	ErrNoProceeds      = errors.New("no proceeds to withdraw")

	// Interaction
	ErrTransferFailed = errors.New("transfer failed")
)
