// Package pricing converts reference-unit listing prices into payable token
// amounts. Pure integer arithmetic: multiply before dividing, truncate toward
// zero. Truncation favours the buyer by at most one smallest unit; the policy
// is fixed so both sides can price it in.
package pricing

import (
	"errors"
	"math/big"

	"github.com/mintdrop/marketplace-engine/internal/entity"
)

var (
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrInvalidUnitPrice   = errors.New("unit price must be positive")
)

// maxIntermediateBits caps intermediate products at the 256-bit range of the
// original settlement ledger, keeping its overflow surface.
const maxIntermediateBits = 256

// RequiredAmount returns the payment amount in the token's smallest unit for a
// referencePrice scaled at entity.ReferenceDecimals, given an oracle reading
// (unitPrice, oracleDecimals) and the token's own precision.
//
//	amount = referencePrice * 10^oracleDecimals * 10^tokenDecimals
//	         ------------------------------------------------------
//	              unitPrice * 10^entity.ReferenceDecimals
func RequiredAmount(referencePrice, unitPrice *big.Int, oracleDecimals, tokenDecimals uint8) (*big.Int, error) {
	if unitPrice == nil || unitPrice.Sign() <= 0 {
		return nil, ErrInvalidUnitPrice
	}

	numerator := new(big.Int).Mul(referencePrice, pow10(oracleDecimals))
	numerator.Mul(numerator, pow10(tokenDecimals))
	if numerator.BitLen() > maxIntermediateBits {
		return nil, ErrArithmeticOverflow
	}

	denominator := new(big.Int).Mul(unitPrice, pow10(entity.ReferenceDecimals))
	if denominator.BitLen() > maxIntermediateBits {
		return nil, ErrArithmeticOverflow
	}

	return numerator.Quo(numerator, denominator), nil
}

func pow10(exp uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
