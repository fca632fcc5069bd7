package marketplace

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/mintdrop/marketplace-engine/internal/chain"
	"github.com/mintdrop/marketplace-engine/internal/entity"
	"github.com/mintdrop/marketplace-engine/internal/event"
	"github.com/mintdrop/marketplace-engine/internal/oracle"
	"github.com/mintdrop/marketplace-engine/internal/pricing"
	"go.uber.org/zap"
)

// Engine is the settlement orchestrator and the sole writer of the listing
// registry and escrow ledger.
//
// Every public operation either applies all of its effects or none. Internal
// state always reaches its post-condition under the lock before any external
// call is made, and the lock is never held across an external call: an asset
// contract, token, or feed that re-enters the engine is served as a fresh
// operation and observes only settled state. If an external call then fails,
// the operation compensates its own prior mutations under the lock before
// returning.
type Engine struct {
	account string
	admin   string

	assets chain.Assets
	tokens chain.Tokens
	native chain.Native
	feeds  *oracle.Registry

	mu       sync.Mutex
	registry *listingRegistry
	escrow   *escrowLedger
}

func NewEngine(account, admin string, assets chain.Assets, tokens chain.Tokens, native chain.Native, feeds *oracle.Registry) *Engine {
	return &Engine{
		account:  account,
		admin:    admin,
		assets:   assets,
		tokens:   tokens,
		native:   native,
		feeds:    feeds,
		registry: newListingRegistry(),
		escrow:   newEscrowLedger(),
	}
}

// RegisterPriceFeed binds a payment token to an oracle feed. Admin only.
func (e *Engine) RegisterPriceFeed(caller, token, feed string) error {
	if caller != e.admin {
		return ErrUnauthorized
	}

	token = normalizeToken(token)
	e.feeds.Register(token, feed)

	zap.L().With(zap.String("token", token), zap.String("feed", feed)).Info("Engine: Price feed registered")
	return nil
}

// List creates a listing for an asset the caller owns and has approved the
// engine to transfer. The price is in reference units at entity.ReferenceDecimals.
func (e *Engine) List(ctx context.Context, caller, contract string, tokenId uint64, price *big.Int, paymentToken string) error {
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}

	paymentToken = normalizeToken(paymentToken)
	if _, ok := e.feeds.Feed(paymentToken); !ok {
		return oracle.ErrNoPriceFeed
	}

	owner, err := e.assets.OwnerOf(ctx, contract, tokenId)
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrNotOwner
	}

	approved, err := e.assets.IsApproved(ctx, contract, tokenId, e.account)
	if err != nil {
		return err
	}
	if !approved {
		return ErrNotApproved
	}

	listing := entity.Listing{
		Contract:     contract,
		TokenId:      tokenId,
		Seller:       caller,
		Price:        new(big.Int).Set(price),
		PaymentToken: paymentToken,
	}

	e.mu.Lock()
	key := ListingKey{contract, tokenId}
	if _, exists := e.registry.get(key); exists {
		e.mu.Unlock()
		return ErrAlreadyListed
	}
	e.registry.put(key, listing)
	e.mu.Unlock()

	zap.L().With(
		zap.String("contract", contract),
		zap.Uint64("tokenId", tokenId),
		zap.String("seller", caller),
		zap.String("price", price.String()),
		zap.String("paymentToken", paymentToken),
	).Info("Engine: Item listed")

	event.EmitEvent(event.ItemListedEvent, entity.ItemListed{
		Contract:     contract,
		TokenId:      tokenId,
		Seller:       caller,
		Price:        listing.Price.String(),
		PaymentToken: paymentToken,
		Active:       true,
		Timestamp:    time.Now().UTC(),
	})

	return nil
}

// Update replaces the reference price of an active listing. Seller only.
func (e *Engine) Update(ctx context.Context, caller, contract string, tokenId uint64, newPrice *big.Int) error {
	if newPrice == nil || newPrice.Sign() <= 0 {
		return ErrInvalidPrice
	}

	e.mu.Lock()
	key := ListingKey{contract, tokenId}
	listing, ok := e.registry.get(key)
	if !ok {
		e.mu.Unlock()
		return ErrNotListed
	}
	if listing.Seller != caller {
		e.mu.Unlock()
		return ErrNotSeller
	}
	listing.Price = new(big.Int).Set(newPrice)
	e.registry.put(key, listing)
	e.mu.Unlock()

	zap.L().With(
		zap.String("contract", contract),
		zap.Uint64("tokenId", tokenId),
		zap.String("price", newPrice.String()),
	).Info("Engine: Listing updated")

	event.EmitEvent(event.ItemListedEvent, entity.ItemListed{
		Contract:     contract,
		TokenId:      tokenId,
		Seller:       listing.Seller,
		Price:        listing.Price.String(),
		PaymentToken: listing.PaymentToken,
		Active:       true,
		Timestamp:    time.Now().UTC(),
	})

	return nil
}

// Cancel deactivates a listing. Seller only. The slot is reusable afterwards.
func (e *Engine) Cancel(ctx context.Context, caller, contract string, tokenId uint64) error {
	e.mu.Lock()
	key := ListingKey{contract, tokenId}
	listing, ok := e.registry.get(key)
	if !ok {
		e.mu.Unlock()
		return ErrNotListed
	}
	if listing.Seller != caller {
		e.mu.Unlock()
		return ErrNotSeller
	}
	e.registry.clear(key)
	e.mu.Unlock()

	zap.L().With(zap.String("contract", contract), zap.Uint64("tokenId", tokenId)).Info("Engine: Listing cancelled")

	event.EmitEvent(event.ItemCancelledEvent, entity.ItemCancelled{
		Contract:  contract,
		TokenId:   tokenId,
		Seller:    listing.Seller,
		Timestamp: time.Now().UTC(),
	})

	return nil
}

// Buy settles a listing: collects payment from the caller, credits the
// seller's escrow, and transfers the asset to the caller.
//
// The required amount is computed fresh from the oracle on every call; the
// listing stores the reference price, not the payment amount. Native payments
// must attach exactly the required value; token payments pull exactly the
// required amount and the tendered argument must match it.
func (e *Engine) Buy(ctx context.Context, caller, contract string, tokenId uint64, tendered, value *big.Int) (*big.Int, error) {
	e.mu.Lock()
	key := ListingKey{contract, tokenId}
	listing, ok := e.registry.get(key)
	e.mu.Unlock()
	if !ok {
		return nil, ErrNotListed
	}

	required, err := e.RequiredAmount(ctx, listing.PaymentToken, listing.Price)
	if err != nil {
		return nil, err
	}

	isNative := entity.IsNativeToken(listing.PaymentToken)
	if isNative {
		// Exact match, over or under. Overpayment is not silently kept
		// nor refunded; the operation fails.
		if value == nil || value.Cmp(required) != 0 {
			return nil, ErrPaymentMismatch
		}
	} else {
		if tendered == nil || tendered.Cmp(required) != 0 {
			return nil, ErrPaymentMismatch
		}
	}

	// Deactivate before any external interaction. A reentrant Buy on the
	// same key now fails with ErrNotListed. The oracle read above ran
	// unlocked, so guard against the listing having changed under us.
	e.mu.Lock()
	current, ok := e.registry.get(key)
	if !ok || !sameListing(current, listing) {
		e.mu.Unlock()
		return nil, ErrNotListed
	}
	e.registry.clear(key)
	e.mu.Unlock()

	if !isNative {
		if err := e.tokens.TransferFrom(ctx, listing.PaymentToken, caller, e.account, required); err != nil {
			e.restoreListing(key, listing)
			return nil, fmt.Errorf("%w: payment pull: %v", ErrTransferFailed, err)
		}
	}

	e.mu.Lock()
	e.escrow.credit(listing.Seller, listing.PaymentToken, required)
	e.mu.Unlock()

	if err := e.assets.TransferFrom(ctx, contract, tokenId, listing.Seller, caller); err != nil {
		e.mu.Lock()
		e.escrow.debit(listing.Seller, listing.PaymentToken, required)
		e.mu.Unlock()
		e.restoreListing(key, listing)

		if !isNative {
			if refundErr := e.tokens.Transfer(ctx, listing.PaymentToken, e.account, caller, required); refundErr != nil {
				zap.L().With(
					zap.String("contract", contract),
					zap.Uint64("tokenId", tokenId),
					zap.String("buyer", caller),
					zap.Error(refundErr),
				).Error("Engine: Failed to refund pulled payment")
			}
		}
		return nil, fmt.Errorf("%w: asset transfer: %v", ErrTransferFailed, err)
	}

	zap.L().With(
		zap.String("contract", contract),
		zap.Uint64("tokenId", tokenId),
		zap.String("seller", listing.Seller),
		zap.String("buyer", caller),
		zap.String("amount", required.String()),
	).Info("Engine: Item bought")

	event.EmitEvent(event.ItemBoughtEvent, entity.ItemBought{
		Contract:     contract,
		TokenId:      tokenId,
		Seller:       listing.Seller,
		Buyer:        caller,
		Price:        listing.Price.String(),
		Amount:       required.String(),
		PaymentToken: listing.PaymentToken,
		Timestamp:    time.Now().UTC(),
	})

	return required, nil
}

// Withdraw pays out the caller's full escrowed proceeds for one token. The
// balance is zeroed before the payout so a reentrant call finds nothing.
func (e *Engine) Withdraw(ctx context.Context, caller, token string) (*big.Int, error) {
	token = normalizeToken(token)

	e.mu.Lock()
	amount := e.escrow.takeAll(caller, token)
	e.mu.Unlock()

	if amount.Sign() == 0 {
		return nil, ErrNoProceeds
	}

	var err error
	if entity.IsNativeToken(token) {
		err = e.native.Transfer(ctx, e.account, caller, amount)
	} else {
		err = e.tokens.Transfer(ctx, token, e.account, caller, amount)
	}
	if err != nil {
		e.mu.Lock()
		e.escrow.credit(caller, token, amount)
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: payout: %v", ErrTransferFailed, err)
	}

	zap.L().With(
		zap.String("account", caller),
		zap.String("token", token),
		zap.String("amount", amount.String()),
	).Info("Engine: Proceeds withdrawn")

	return amount, nil
}

// RequiredAmount converts a reference-unit price into the payable amount for
// token at the oracle's current rate. Never cached.
func (e *Engine) RequiredAmount(ctx context.Context, token string, price *big.Int) (*big.Int, error) {
	token = normalizeToken(token)

	reading, err := e.feeds.Read(ctx, token)
	if err != nil {
		return nil, err
	}

	tokenDecimals := entity.NativeDecimals
	if !entity.IsNativeToken(token) {
		tokenDecimals, err = e.tokens.Decimals(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	return pricing.RequiredAmount(price, reading.UnitPrice, reading.Decimals, tokenDecimals)
}

// GetListing returns the active listing for an asset, ErrNotListed otherwise.
func (e *Engine) GetListing(contract string, tokenId uint64) (entity.Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	listing, ok := e.registry.get(ListingKey{contract, tokenId})
	if !ok {
		return entity.Listing{}, ErrNotListed
	}
	listing.Price = new(big.Int).Set(listing.Price)
	return listing, nil
}

// GetProceeds returns an account's withdrawable balance for one token.
func (e *Engine) GetProceeds(account, token string) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.escrow.balance(account, normalizeToken(token)))
}

// PriceFeeds lists the current token to feed registrations.
func (e *Engine) PriceFeeds() []entity.PriceFeedRegistration {
	return e.feeds.Registrations()
}

func (e *Engine) restoreListing(key ListingKey, listing entity.Listing) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.put(key, listing)
}

func sameListing(a, b entity.Listing) bool {
	return a.Seller == b.Seller &&
		a.PaymentToken == b.PaymentToken &&
		a.Price.Cmp(b.Price) == 0
}

func normalizeToken(token string) string {
	if entity.IsNativeToken(token) {
		return entity.NativeToken
	}
	return token
}
