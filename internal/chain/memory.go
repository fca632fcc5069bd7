package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
)

var (
	ErrUnknownAsset      = errors.New("unknown asset")
	ErrUnknownToken      = errors.New("unknown token")
	ErrUnknownFeed       = errors.New("unknown feed")
	ErrNotTokenOwner     = errors.New("transfer caller is not the owner")
	ErrNotApproved       = errors.New("transfer is not approved")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type assetKey struct {
	contract string
	tokenId  uint64
}

// MemoryLedger is an in-process ledger used when no node is configured (local
// development) and by the test suites. It enforces the same ownership,
// approval, and balance rules a real node would, and fails loudly like one.
type MemoryLedger struct {
	mu         sync.Mutex
	owners     map[assetKey]string
	approved   map[assetKey]string
	operators  map[string]map[string]bool
	decimals   map[string]uint8
	balances   map[string]map[string]*big.Int
	allowances map[string]map[string]map[string]*big.Int
	native     map[string]*big.Int
	rounds     map[string]memoryRound
}

type memoryRound struct {
	answer   *big.Int
	decimals uint8
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		owners:     make(map[assetKey]string),
		approved:   make(map[assetKey]string),
		operators:  make(map[string]map[string]bool),
		decimals:   make(map[string]uint8),
		balances:   make(map[string]map[string]*big.Int),
		allowances: make(map[string]map[string]map[string]*big.Int),
		native:     make(map[string]*big.Int),
		rounds:     make(map[string]memoryRound),
	}
}

func (m *MemoryLedger) Assets() Assets {
	return memoryAssets{m}
}

func (m *MemoryLedger) Tokens() Tokens {
	return memoryTokens{m}
}

func (m *MemoryLedger) Native() Native {
	return memoryNative{m}
}

func (m *MemoryLedger) Rounds() Rounds {
	return memoryRounds{m}
}

// Seeding helpers

func (m *MemoryLedger) MintAsset(contract string, tokenId uint64, owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[assetKey{contract, tokenId}] = owner
}

func (m *MemoryLedger) Approve(contract string, tokenId uint64, operator string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approved[assetKey{contract, tokenId}] = operator
}

func (m *MemoryLedger) ApproveAll(owner, operator string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.operators[owner] == nil {
		m.operators[owner] = make(map[string]bool)
	}
	m.operators[owner][operator] = true
}

func (m *MemoryLedger) CreateToken(token string, decimals uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decimals[token] = decimals
	if m.balances[token] == nil {
		m.balances[token] = make(map[string]*big.Int)
	}
}

func (m *MemoryLedger) MintToken(token, account string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[token] == nil {
		m.balances[token] = make(map[string]*big.Int)
	}
	m.balances[token][account] = new(big.Int).Add(m.balanceOf(token, account), amount)
}

func (m *MemoryLedger) SetAllowance(token, owner, spender string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[token] == nil {
		m.allowances[token] = make(map[string]map[string]*big.Int)
	}
	if m.allowances[token][owner] == nil {
		m.allowances[token][owner] = make(map[string]*big.Int)
	}
	m.allowances[token][owner][spender] = new(big.Int).Set(amount)
}

func (m *MemoryLedger) FundNative(account string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.native[account]
	if !ok {
		cur = new(big.Int)
	}
	m.native[account] = new(big.Int).Add(cur, amount)
}

func (m *MemoryLedger) SetRound(feed string, answer *big.Int, decimals uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[feed] = memoryRound{new(big.Int).Set(answer), decimals}
}

// Read helpers for assertions

func (m *MemoryLedger) Owner(contract string, tokenId uint64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[assetKey{contract, tokenId}]
}

func (m *MemoryLedger) Balance(token, account string) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balanceOf(token, account))
}

func (m *MemoryLedger) NativeBalance(account string) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.native[account]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(cur)
}

func (m *MemoryLedger) balanceOf(token, account string) *big.Int {
	if m.balances[token] == nil {
		return new(big.Int)
	}
	bal, ok := m.balances[token][account]
	if !ok {
		return new(big.Int)
	}
	return bal
}

type memoryAssets struct {
	m *MemoryLedger
}

func (a memoryAssets) OwnerOf(ctx context.Context, contract string, tokenId uint64) (string, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	owner, ok := a.m.owners[assetKey{contract, tokenId}]
	if !ok {
		return "", ErrUnknownAsset
	}
	return owner, nil
}

func (a memoryAssets) IsApproved(ctx context.Context, contract string, tokenId uint64, operator string) (bool, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	key := assetKey{contract, tokenId}
	owner, ok := a.m.owners[key]
	if !ok {
		return false, ErrUnknownAsset
	}
	if a.m.approved[key] == operator {
		return true, nil
	}
	return a.m.operators[owner][operator], nil
}

func (a memoryAssets) TransferFrom(ctx context.Context, contract string, tokenId uint64, from, to string) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	key := assetKey{contract, tokenId}
	owner, ok := a.m.owners[key]
	if !ok {
		return ErrUnknownAsset
	}
	if owner != from {
		return ErrNotTokenOwner
	}
	a.m.owners[key] = to
	delete(a.m.approved, key)
	return nil
}

type memoryTokens struct {
	m *MemoryLedger
}

func (t memoryTokens) Decimals(ctx context.Context, token string) (uint8, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	decimals, ok := t.m.decimals[token]
	if !ok {
		return 0, ErrUnknownToken
	}
	return decimals, nil
}

func (t memoryTokens) TransferFrom(ctx context.Context, token, from, to string, amount *big.Int) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	allowance := new(big.Int)
	if t.m.allowances[token] != nil && t.m.allowances[token][from] != nil {
		if a, ok := t.m.allowances[token][from][to]; ok {
			allowance = a
		}
	}
	if allowance.Cmp(amount) < 0 {
		return ErrNotApproved
	}

	if err := t.move(token, from, to, amount); err != nil {
		return err
	}

	t.m.allowances[token][from][to] = new(big.Int).Sub(allowance, amount)
	return nil
}

func (t memoryTokens) Transfer(ctx context.Context, token, from, to string, amount *big.Int) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return t.move(token, from, to, amount)
}

func (t memoryTokens) move(token, from, to string, amount *big.Int) error {
	if _, ok := t.m.decimals[token]; !ok {
		return ErrUnknownToken
	}
	fromBal := t.m.balanceOf(token, from)
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	t.m.balances[token][from] = new(big.Int).Sub(fromBal, amount)
	t.m.balances[token][to] = new(big.Int).Add(t.m.balanceOf(token, to), amount)
	return nil
}

type memoryNative struct {
	m *MemoryLedger
}

func (n memoryNative) Transfer(ctx context.Context, from, to string, amount *big.Int) error {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	fromBal, ok := n.m.native[from]
	if !ok {
		fromBal = new(big.Int)
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	n.m.native[from] = new(big.Int).Sub(fromBal, amount)
	toBal, ok := n.m.native[to]
	if !ok {
		toBal = new(big.Int)
	}
	n.m.native[to] = new(big.Int).Add(toBal, amount)
	return nil
}

type memoryRounds struct {
	m *MemoryLedger
}

func (r memoryRounds) LatestRound(ctx context.Context, feed string) (*big.Int, uint8, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	round, ok := r.m.rounds[feed]
	if !ok {
		return nil, 0, ErrUnknownFeed
	}
	return new(big.Int).Set(round.answer), round.decimals, nil
}
