package oracle

import (
	"context"
	"math/big"
	"testing"

	"github.com/mintdrop/marketplace-engine/internal/chain"
	"github.com/mintdrop/marketplace-engine/internal/entity"
	"github.com/stretchr/testify/assert"
)

const (
	token = "0x70ccc"
	feed  = "0xfeed1"
)

func TestRead_NoRegistration(t *testing.T) {
	registry := NewRegistry(chain.NewMemoryLedger().Rounds())

	_, err := registry.Read(context.Background(), token)
	assert.ErrorIs(t, err, ErrNoPriceFeed)
}

func TestRead_ReturnsAnswerAndDecimals(t *testing.T) {
	ledger := chain.NewMemoryLedger()
	ledger.SetRound(feed, big.NewInt(2000_00000000), 8)

	registry := NewRegistry(ledger.Rounds())
	registry.Register(token, feed)

	reading, err := registry.Read(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(2000_00000000), reading.UnitPrice)
	assert.Equal(t, uint8(8), reading.Decimals)
}

func TestRead_RejectsZeroAnswer(t *testing.T) {
	ledger := chain.NewMemoryLedger()
	ledger.SetRound(feed, big.NewInt(0), 8)

	registry := NewRegistry(ledger.Rounds())
	registry.Register(token, feed)

	_, err := registry.Read(context.Background(), token)
	assert.ErrorIs(t, err, ErrStalePrice)
}

func TestRead_RejectsNegativeAnswer(t *testing.T) {
	ledger := chain.NewMemoryLedger()
	ledger.SetRound(feed, big.NewInt(-1), 8)

	registry := NewRegistry(ledger.Rounds())
	registry.Register(token, feed)

	_, err := registry.Read(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestRegister_OverwritesExistingFeed(t *testing.T) {
	ledger := chain.NewMemoryLedger()
	ledger.SetRound("0xfeed2", big.NewInt(500_00000000), 8)

	registry := NewRegistry(ledger.Rounds())
	registry.Register(token, feed)
	registry.Register(token, "0xfeed2")

	bound, ok := registry.Feed(token)
	assert.True(t, ok)
	assert.Equal(t, "0xfeed2", bound)

	reading, err := registry.Read(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(500_00000000), reading.UnitPrice)
}

func TestRegistrations_ListsBindings(t *testing.T) {
	registry := NewRegistry(chain.NewMemoryLedger().Rounds())
	registry.Register(entity.NativeToken, feed)
	registry.Register(token, "0xfeed2")

	registrations := registry.Registrations()
	assert.Len(t, registrations, 2)
}
