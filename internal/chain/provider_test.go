package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNode struct {
	calls   []rpcRequest
	results map[string]interface{}
	errors  map[string]*RPCError
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		results: make(map[string]interface{}),
		errors:  make(map[string]*RPCError),
	}
}

func (n *fakeNode) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n.calls = append(n.calls, req)

		resp := map[string]interface{}{"id": req.Id, "jsonrpc": jsonrpcVersion}
		if rpcErr, ok := n.errors[req.Method]; ok {
			resp["error"] = rpcErr
		} else {
			resp["result"] = n.results[req.Method]
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (n *fakeNode) callCount(method string) int {
	count := 0
	for _, call := range n.calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

func newTestProvider(t *testing.T, node *fakeNode) *Provider {
	server := httptest.NewServer(node.handler())
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, 5, false)
	assert.NoError(t, err)

	return NewProvider(client)
}

func TestProvider_OwnerOf(t *testing.T) {
	node := newFakeNode()
	node.results["Asset.OwnerOf"] = map[string]interface{}{"owner": "0x5e11e"}
	provider := newTestProvider(t, node)

	owner, err := provider.Assets().OwnerOf(context.Background(), "0xc011", 7)
	assert.NoError(t, err)
	assert.Equal(t, "0x5e11e", owner)
}

func TestProvider_IsApproved(t *testing.T) {
	node := newFakeNode()
	node.results["Asset.IsApproved"] = map[string]interface{}{"approved": true}
	provider := newTestProvider(t, node)

	approved, err := provider.Assets().IsApproved(context.Background(), "0xc011", 7, "0xe191e")
	assert.NoError(t, err)
	assert.True(t, approved)
}

func TestProvider_DecimalsMemoized(t *testing.T) {
	node := newFakeNode()
	node.results["Token.Decimals"] = map[string]interface{}{"decimals": 6}
	provider := newTestProvider(t, node)

	for i := 0; i < 3; i++ {
		decimals, err := provider.Tokens().Decimals(context.Background(), "0x70ccc")
		assert.NoError(t, err)
		assert.Equal(t, uint8(6), decimals)
	}

	assert.Equal(t, 1, node.callCount("Token.Decimals"))
}

func TestProvider_TokenTransferSendsDecimalString(t *testing.T) {
	node := newFakeNode()
	provider := newTestProvider(t, node)

	amount, _ := new(big.Int).SetString("2000000000000000000000", 10)
	err := provider.Tokens().TransferFrom(context.Background(), "0x70ccc", "0xb111e", "0xe191e", amount)
	assert.NoError(t, err)

	assert.Len(t, node.calls, 1)
	params := node.calls[0].Params.([]interface{})
	assert.Equal(t, "2000000000000000000000", params[3])
}

func TestProvider_LatestRound(t *testing.T) {
	node := newFakeNode()
	node.results["Oracle.LatestRound"] = map[string]interface{}{"answer": "200000000000", "decimals": 8}
	provider := newTestProvider(t, node)

	answer, decimals, err := provider.Rounds().LatestRound(context.Background(), "0xfeed0")
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(200000000000), answer)
	assert.Equal(t, uint8(8), decimals)
}

func TestProvider_LatestRoundMalformedAnswer(t *testing.T) {
	node := newFakeNode()
	node.results["Oracle.LatestRound"] = map[string]interface{}{"answer": "not-a-number", "decimals": 8}
	provider := newTestProvider(t, node)

	_, _, err := provider.Rounds().LatestRound(context.Background(), "0xfeed0")
	assert.Error(t, err)
}

func TestProvider_SurfacesRpcError(t *testing.T) {
	node := newFakeNode()
	node.errors["Asset.TransferFrom"] = &RPCError{Code: -32000, Message: "not approved"}
	provider := newTestProvider(t, node)

	err := provider.Assets().TransferFrom(context.Background(), "0xc011", 7, "0x5e11e", "0xb111e")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not approved")
}
