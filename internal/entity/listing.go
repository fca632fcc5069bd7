package entity

import (
	"fmt"
	"math/big"

	"github.com/gosimple/slug"
)

// NativeToken is the sentinel payment token identifier for the chain's native
// currency, by convention 18 decimal places.
const NativeToken = "0x0000000000000000000000000000000000000000"

const NativeDecimals uint8 = 18

// ReferenceDecimals is the fixed precision of reference-unit (USD) prices.
const ReferenceDecimals uint8 = 18

func IsNativeToken(token string) bool {
	return token == "" || token == NativeToken
}

// Listing is an active sale offer for a single asset. Price is denominated in
// reference units at ReferenceDecimals, not in the payment token; the payable
// amount is derived from the oracle at purchase time.
type Listing struct {
	Contract     string   `json:"contract"`
	TokenId      uint64   `json:"tokenId"`
	Seller       string   `json:"seller"`
	Price        *big.Int `json:"price"`
	PaymentToken string   `json:"paymentToken"`
}

func (l Listing) Slug() string {
	return CreateListingSlug(l.Contract, l.TokenId)
}

func CreateListingSlug(contract string, tokenId uint64) string {
	return slug.Make(fmt.Sprintf("listing-%s-%d", contract, tokenId))
}
