package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Provider talks to the surrounding ledger node over JSON-RPC and hands out
// the capability views the engine consumes. Token decimals are immutable on
// every ledger we target, so they are memoized.
type Provider struct {
	rpcClient *rpcClient
	decimals  *cache.Cache
}

func NewProvider(rpcClient *rpcClient) *Provider {
	return &Provider{rpcClient: rpcClient, decimals: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (p *Provider) Assets() Assets {
	return assetProvider{p}
}

func (p *Provider) Tokens() Tokens {
	return tokenProvider{p}
}

func (p *Provider) Native() Native {
	return nativeProvider{p}
}

func (p *Provider) Rounds() Rounds {
	return roundProvider{p}
}

type ownerResult struct {
	Owner string `json:"owner"`
}

type approvalResult struct {
	Approved bool `json:"approved"`
}

type decimalsResult struct {
	Decimals uint8 `json:"decimals"`
}

type roundResult struct {
	Answer   string `json:"answer"`
	Decimals uint8  `json:"decimals"`
}

type assetProvider struct {
	p *Provider
}

func (a assetProvider) OwnerOf(ctx context.Context, contract string, tokenId uint64) (string, error) {
	var result ownerResult
	if err := a.p.call("Asset.OwnerOf", []interface{}{contract, tokenId}, &result); err != nil {
		return "", err
	}

	return result.Owner, nil
}

func (a assetProvider) IsApproved(ctx context.Context, contract string, tokenId uint64, operator string) (bool, error) {
	var result approvalResult
	if err := a.p.call("Asset.IsApproved", []interface{}{contract, tokenId, operator}, &result); err != nil {
		return false, err
	}

	return result.Approved, nil
}

func (a assetProvider) TransferFrom(ctx context.Context, contract string, tokenId uint64, from, to string) error {
	return a.p.call("Asset.TransferFrom", []interface{}{contract, tokenId, from, to}, nil)
}

type tokenProvider struct {
	p *Provider
}

func (t tokenProvider) Decimals(ctx context.Context, token string) (uint8, error) {
	if cached, found := t.p.decimals.Get(token); found {
		return cached.(uint8), nil
	}

	var result decimalsResult
	if err := t.p.call("Token.Decimals", []interface{}{token}, &result); err != nil {
		return 0, err
	}

	t.p.decimals.SetDefault(token, result.Decimals)

	return result.Decimals, nil
}

func (t tokenProvider) TransferFrom(ctx context.Context, token, from, to string, amount *big.Int) error {
	return t.p.call("Token.TransferFrom", []interface{}{token, from, to, amount.String()}, nil)
}

func (t tokenProvider) Transfer(ctx context.Context, token, from, to string, amount *big.Int) error {
	return t.p.call("Token.Transfer", []interface{}{token, from, to, amount.String()}, nil)
}

type nativeProvider struct {
	p *Provider
}

func (n nativeProvider) Transfer(ctx context.Context, from, to string, amount *big.Int) error {
	return n.p.call("Native.Transfer", []interface{}{from, to, amount.String()}, nil)
}

type roundProvider struct {
	p *Provider
}

func (r roundProvider) LatestRound(ctx context.Context, feed string) (*big.Int, uint8, error) {
	var result roundResult
	if err := r.p.call("Oracle.LatestRound", []interface{}{feed}, &result); err != nil {
		return nil, 0, err
	}

	answer, ok := new(big.Int).SetString(result.Answer, 10)
	if !ok {
		return nil, 0, fmt.Errorf("malformed oracle answer: %s", result.Answer)
	}

	return answer, result.Decimals, nil
}

func (p *Provider) call(method string, params []interface{}, result interface{}) error {
	response, err := p.rpcClient.call(method, params)
	if err != nil {
		return err
	}

	if response == nil {
		return errors.New("no response from ledger node")
	}

	if response.Error != nil {
		zap.L().With(zap.String("method", method), zap.Error(response.Error)).Debug("Chain: RPC error")
		return response.Error
	}

	if result == nil {
		return nil
	}

	return json.Unmarshal(response.Result, result)
}
