package entity

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/nu7hatch/gouuid"
)

// Event records mirror the engine's Listed/Bought/Cancelled emissions. They are
// what the external indexer consumes; each carries enough identity for the
// indexer to mark a prior listed record inactive.

type ItemListed struct {
	Contract     string    `json:"contract"`
	TokenId      uint64    `json:"tokenId"`
	Seller       string    `json:"seller"`
	Price        string    `json:"price"`
	PaymentToken string    `json:"paymentToken"`
	Active       bool      `json:"active"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e ItemListed) Slug() string {
	return slug.Make(fmt.Sprintf("listed-%s-%d", e.Contract, e.TokenId))
}

type ItemBought struct {
	Contract     string    `json:"contract"`
	TokenId      uint64    `json:"tokenId"`
	Seller       string    `json:"seller"`
	Buyer        string    `json:"buyer"`
	Price        string    `json:"price"`
	Amount       string    `json:"amount"`
	PaymentToken string    `json:"paymentToken"`
	Timestamp    time.Time `json:"timestamp"`
}

// Bought records are history, never overwritten, so each gets a fresh id.
func (e ItemBought) Slug() string {
	u, _ := uuid.NewV4()
	return slug.Make(fmt.Sprintf("bought-%s-%d-%s", e.Contract, e.TokenId, u.String()))
}

type ItemCancelled struct {
	Contract  string    `json:"contract"`
	TokenId   uint64    `json:"tokenId"`
	Seller    string    `json:"seller"`
	Timestamp time.Time `json:"timestamp"`
}

func (e ItemCancelled) Slug() string {
	return slug.Make(fmt.Sprintf("cancelled-%s-%d", e.Contract, e.TokenId))
}
