package marketplace

import (
	"math/big"
)

// escrowLedger tracks withdrawable sale proceeds per (account, token), the
// native sentinel token included. Balances are created implicitly on first
// credit and only ever zeroed, never destroyed. The engine is the only writer
// and guards access with its own lock.
type escrowLedger struct {
	balances map[string]map[string]*big.Int
}

func newEscrowLedger() *escrowLedger {
	return &escrowLedger{balances: make(map[string]map[string]*big.Int)}
}

func (l *escrowLedger) credit(account, token string, amount *big.Int) {
	if l.balances[account] == nil {
		l.balances[account] = make(map[string]*big.Int)
	}
	l.balances[account][token] = new(big.Int).Add(l.balance(account, token), amount)
}

// takeAll zeroes the balance and returns the prior amount. Zeroing before any
// payout happens is what makes a reentrant withdrawal find nothing to take.
func (l *escrowLedger) takeAll(account, token string) *big.Int {
	amount := l.balance(account, token)
	if amount.Sign() > 0 {
		l.balances[account][token] = new(big.Int)
	}
	return amount
}

// debit reverses a prior credit of the same amount while compensating a
// failed settlement. Never taken below zero.
func (l *escrowLedger) debit(account, token string, amount *big.Int) {
	if l.balances[account] == nil {
		return
	}
	current := l.balance(account, token)
	if current.Cmp(amount) < 0 {
		amount = current
	}
	l.balances[account][token] = new(big.Int).Sub(current, amount)
}

func (l *escrowLedger) balance(account, token string) *big.Int {
	if l.balances[account] == nil {
		return new(big.Int)
	}
	amount, ok := l.balances[account][token]
	if !ok {
		return new(big.Int)
	}
	return amount
}
