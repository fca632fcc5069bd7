package pricing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func e(base int64, exp int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(base), new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil))
}

func TestRequiredAmount_NativeAtFeedPrice(t *testing.T) {
	// $2000 listing, feed reports $2000 per native unit at 8 decimals:
	// exactly one native unit is due.
	amount, err := RequiredAmount(e(2000, 18), e(2000, 8), 8, 18)

	assert.NoError(t, err)
	assert.Equal(t, e(1, 18), amount)
}

func TestRequiredAmount_SixDecimalToken(t *testing.T) {
	// $2000 listing paid in a 6 decimal stablecoin at $1 per token.
	amount, err := RequiredAmount(e(2000, 18), e(1, 8), 8, 6)

	assert.NoError(t, err)
	assert.Equal(t, e(2000, 6), amount)
}

func TestRequiredAmount_TruncatesTowardZero(t *testing.T) {
	// $1 at $3 per unit: 0.333... units truncates, never rounds up.
	amount, err := RequiredAmount(e(1, 18), e(3, 8), 8, 18)

	assert.NoError(t, err)
	expected, _ := new(big.Int).SetString("333333333333333333", 10)
	assert.Equal(t, expected, amount)
}

func TestRequiredAmount_MonotonicInPrice(t *testing.T) {
	unitPrice := e(1735, 8)

	prev := new(big.Int)
	for _, price := range []*big.Int{e(1, 18), e(10, 18), e(500, 18), e(20000, 18)} {
		amount, err := RequiredAmount(price, unitPrice, 8, 18)
		assert.NoError(t, err)
		assert.True(t, amount.Cmp(prev) > 0, "amount must grow with price")
		prev = amount
	}
}

func TestRequiredAmount_InverselyMonotonicInUnitPrice(t *testing.T) {
	price := e(2000, 18)

	var prev *big.Int
	for _, unitPrice := range []*big.Int{e(100, 8), e(1000, 8), e(4000, 8)} {
		amount, err := RequiredAmount(price, unitPrice, 8, 18)
		assert.NoError(t, err)
		if prev != nil {
			assert.True(t, amount.Cmp(prev) < 0, "amount must shrink as the unit price grows")
		}
		prev = amount
	}
}

func TestRequiredAmount_FreshOracleReadingChangesAmount(t *testing.T) {
	price := e(2000, 18)

	before, err := RequiredAmount(price, e(2000, 8), 8, 18)
	assert.NoError(t, err)

	after, err := RequiredAmount(price, e(4000, 8), 8, 18)
	assert.NoError(t, err)

	assert.Equal(t, e(1, 18), before)
	assert.Equal(t, new(big.Int).Div(e(1, 18), big.NewInt(2)), after)
}

func TestRequiredAmount_RejectsNonPositiveUnitPrice(t *testing.T) {
	_, err := RequiredAmount(e(2000, 18), big.NewInt(0), 8, 18)
	assert.ErrorIs(t, err, ErrInvalidUnitPrice)

	_, err = RequiredAmount(e(2000, 18), big.NewInt(-1), 8, 18)
	assert.ErrorIs(t, err, ErrInvalidUnitPrice)

	_, err = RequiredAmount(e(2000, 18), nil, 8, 18)
	assert.ErrorIs(t, err, ErrInvalidUnitPrice)
}

func TestRequiredAmount_OverflowsBeyond256Bits(t *testing.T) {
	huge := new(big.Int).Exp(big.NewInt(2), big.NewInt(240), nil)

	_, err := RequiredAmount(huge, e(1, 8), 8, 18)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestRequiredAmount_ZeroPriceIsZero(t *testing.T) {
	amount, err := RequiredAmount(big.NewInt(0), e(2000, 8), 8, 18)

	assert.NoError(t, err)
	assert.Equal(t, 0, amount.Sign())
}
