package chain

import (
	"context"
	"math/big"
)

// The engine never trusts external contracts beyond these three capability
// views. Transfers fail loudly: a nil error means the transfer happened.
//
// Any implementation may call back into the engine before returning (a
// malicious asset contract, token, or feed re-entering during settlement), so
// callers must have settled internal state before invoking these.

type Assets interface {
	OwnerOf(ctx context.Context, contract string, tokenId uint64) (string, error)
	// IsApproved reports whether operator holds a single-token or blanket
	// transfer approval from the current owner.
	IsApproved(ctx context.Context, contract string, tokenId uint64, operator string) (bool, error)
	TransferFrom(ctx context.Context, contract string, tokenId uint64, from, to string) error
}

type Tokens interface {
	Decimals(ctx context.Context, token string) (uint8, error)
	TransferFrom(ctx context.Context, token, from, to string, amount *big.Int) error
	Transfer(ctx context.Context, token, from, to string, amount *big.Int) error
}

type Native interface {
	Transfer(ctx context.Context, from, to string, amount *big.Int) error
}

// Rounds exposes oracle aggregator reads through the same node boundary.
type Rounds interface {
	LatestRound(ctx context.Context, feed string) (answer *big.Int, decimals uint8, err error)
}

// Ledger bundles every capability view of the surrounding ledger. Implemented
// by the JSON-RPC Provider and, for local development and tests, MemoryLedger.
type Ledger interface {
	Assets() Assets
	Tokens() Tokens
	Native() Native
	Rounds() Rounds
}
