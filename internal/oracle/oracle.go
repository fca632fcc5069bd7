package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/mintdrop/marketplace-engine/internal/chain"
	"github.com/mintdrop/marketplace-engine/internal/entity"
	"go.uber.org/zap"
)

var (
	ErrNoPriceFeed  = errors.New("no price feed registered for token")
	ErrStalePrice   = errors.New("price feed reported a stale price")
	ErrInvalidPrice = errors.New("price feed reported an invalid price")
)

// Reading is a feed's current reference-unit price for one whole payment
// token, scaled by 10^Decimals.
type Reading struct {
	UnitPrice *big.Int
	Decimals  uint8
}

// Registry maps payment tokens to the oracle feeds pricing them. Registrations
// are created and overwritten only through the engine's administrative path,
// never removed.
type Registry struct {
	mu     sync.RWMutex
	rounds chain.Rounds
	feeds  map[string]string
}

func NewRegistry(rounds chain.Rounds) *Registry {
	return &Registry{rounds: rounds, feeds: make(map[string]string)}
}

func (r *Registry) Register(token, feed string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.feeds[token]; ok && existing != feed {
		zap.L().With(
			zap.String("token", token),
			zap.String("old", existing),
			zap.String("new", feed),
		).Warn("Oracle: Overwriting price feed registration")
	}

	r.feeds[token] = feed
}

func (r *Registry) Feed(token string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	feed, ok := r.feeds[token]
	return feed, ok
}

func (r *Registry) Registrations() []entity.PriceFeedRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registrations := make([]entity.PriceFeedRegistration, 0, len(r.feeds))
	for token, feed := range r.feeds {
		registrations = append(registrations, entity.PriceFeedRegistration{Token: token, Feed: feed})
	}
	return registrations
}

// Read returns the current unit price for token. Zero and negative answers are
// rejected here so no caller ever divides by them.
func (r *Registry) Read(ctx context.Context, token string) (Reading, error) {
	feed, ok := r.Feed(token)
	if !ok {
		return Reading{}, ErrNoPriceFeed
	}

	answer, decimals, err := r.rounds.LatestRound(ctx, feed)
	if err != nil {
		zap.L().With(zap.String("token", token), zap.String("feed", feed), zap.Error(err)).Error("Oracle: Failed to read feed")
		return Reading{}, err
	}

	if answer.Sign() == 0 {
		return Reading{}, ErrStalePrice
	}
	if answer.Sign() < 0 {
		return Reading{}, ErrInvalidPrice
	}

	return Reading{UnitPrice: answer, Decimals: decimals}, nil
}
