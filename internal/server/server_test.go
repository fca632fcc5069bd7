package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mintdrop/marketplace-engine/internal/chain"
	"github.com/mintdrop/marketplace-engine/internal/entity"
	"github.com/mintdrop/marketplace-engine/internal/marketplace"
	"github.com/mintdrop/marketplace-engine/internal/oracle"
	"github.com/stretchr/testify/assert"
)

const (
	engineAccount = "0xe191e"
	adminAccount  = "0xad111"
	seller        = "0x5e11e"
	buyer         = "0xb111e"

	nftContract = "0xc011ec7ab1e"
	nftId       = uint64(7)
	nativeFeed  = "0xfeed0"
)

func e(base int64, exp int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(base), new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil))
}

type fixture struct {
	ledger *chain.MemoryLedger
	engine *marketplace.Engine
	api    *httptest.Server
}

func newFixture(t *testing.T) fixture {
	ledger := chain.NewMemoryLedger()
	ledger.SetRound(nativeFeed, e(2000, 8), 8)

	engine := marketplace.NewEngine(engineAccount, adminAccount, ledger.Assets(), ledger.Tokens(), ledger.Native(), oracle.NewRegistry(ledger.Rounds()))
	assert.NoError(t, engine.RegisterPriceFeed(adminAccount, entity.NativeToken, nativeFeed))

	ledger.MintAsset(nftContract, nftId, seller)
	ledger.Approve(nftContract, nftId, engineAccount)

	api := httptest.NewServer(NewServer(engine).Router())
	t.Cleanup(api.Close)

	return fixture{ledger, engine, api}
}

func (f fixture) request(t *testing.T, method, path, account string, body interface{}) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, f.api.URL+path, &buf)
	assert.NoError(t, err)
	if account != "" {
		req.Header.Set("X-Account", account)
	}

	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	var body map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func listBody(price *big.Int) map[string]interface{} {
	return map[string]interface{}{
		"contract":     nftContract,
		"tokenId":      nftId,
		"price":        price.String(),
		"paymentToken": entity.NativeToken,
	}
}

func TestServer_ListAndGetListing(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", seller, listBody(e(2000, 18)))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.request(t, "GET", fmt.Sprintf("/listings/%s/%d", nftContract, nftId), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, seller, body["seller"])
	assert.Equal(t, e(2000, 18).String(), body["price"])
	assert.Equal(t, entity.NativeToken, body["paymentToken"])
}

func TestServer_ListRequiresAccountHeader(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", "", listBody(e(2000, 18)))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_ListByNonOwnerForbidden(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", buyer, listBody(e(2000, 18)))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_DoubleListConflicts(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", seller, listBody(e(2000, 18)))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.request(t, "POST", "/listings", seller, listBody(e(3000, 18)))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_GetUnknownListingNotFound(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "GET", fmt.Sprintf("/listings/%s/%d", nftContract, nftId), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_MalformedTokenIdRejected(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "GET", "/listings/"+nftContract+"/notanumber", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_UpdateByStrangerForbidden(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", seller, listBody(e(2000, 18)))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	path := fmt.Sprintf("/listings/%s/%d", nftContract, nftId)
	resp = f.request(t, "PATCH", path, buyer, map[string]interface{}{"price": e(1, 18).String()})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_CancelRemovesListing(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", seller, listBody(e(2000, 18)))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	path := fmt.Sprintf("/listings/%s/%d", nftContract, nftId)
	resp = f.request(t, "DELETE", path, seller, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, "GET", path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_BuySettlesAndReportsAmount(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", seller, listBody(e(2000, 18)))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	path := fmt.Sprintf("/listings/%s/%d/buy", nftContract, nftId)
	resp = f.request(t, "POST", path, buyer, map[string]interface{}{"value": e(1, 18).String()})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, e(1, 18).String(), body["amount"])
	assert.Equal(t, buyer, f.ledger.Owner(nftContract, nftId))
}

func TestServer_BuyWithWrongValuePaymentRequired(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", seller, listBody(e(2000, 18)))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	path := fmt.Sprintf("/listings/%s/%d/buy", nftContract, nftId)
	resp = f.request(t, "POST", path, buyer, map[string]interface{}{"value": e(1, 17).String()})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestServer_WithdrawWithoutProceedsNotFound(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/withdrawals", seller, map[string]interface{}{"token": entity.NativeToken})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_WithdrawAfterSale(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", seller, listBody(e(2000, 18)))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	path := fmt.Sprintf("/listings/%s/%d/buy", nftContract, nftId)
	resp = f.request(t, "POST", path, buyer, map[string]interface{}{"value": e(1, 18).String()})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.ledger.FundNative(engineAccount, e(1, 18))

	resp = f.request(t, "POST", "/withdrawals", seller, map[string]interface{}{"token": entity.NativeToken})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, e(1, 18).String(), decode(t, resp)["amount"])
	assert.Equal(t, e(1, 18), f.ledger.NativeBalance(seller))
}

func TestServer_RequiredAmountQuote(t *testing.T) {
	f := newFixture(t)

	path := fmt.Sprintf("/price/%s?price=%s", entity.NativeToken, e(2000, 18).String())
	resp := f.request(t, "GET", path, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, e(1, 18).String(), decode(t, resp)["amount"])
}

func TestServer_RequiredAmountForUnpricedTokenRejected(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "GET", "/price/0xdead?price=100", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ProceedsStartEmpty(t *testing.T) {
	f := newFixture(t)

	path := fmt.Sprintf("/proceeds/%s/%s", seller, entity.NativeToken)
	resp := f.request(t, "GET", path, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", decode(t, resp)["amount"])
}

func TestServer_RegisterPriceFeedAdminOnly(t *testing.T) {
	f := newFixture(t)
	body := map[string]interface{}{"token": "0x70ccc", "feed": "0xfeed1"}

	resp := f.request(t, "POST", "/admin/price-feeds", seller, body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.request(t, "POST", "/admin/price-feeds", adminAccount, body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestServer_GetPriceFeeds(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "GET", "/admin/price-feeds", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var feeds []map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&feeds))
	assert.Len(t, feeds, 1)
}

func TestServer_UnknownRouteNotFound(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "GET", "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ListingSurvivesFailedBuy(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, "POST", "/listings", seller, listBody(e(2000, 18)))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	path := fmt.Sprintf("/listings/%s/%d/buy", nftContract, nftId)
	resp = f.request(t, "POST", path, buyer, map[string]interface{}{"value": e(5, 17).String()})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	listing, err := f.engine.GetListing(nftContract, nftId)
	assert.NoError(t, err)
	assert.Equal(t, seller, listing.Seller)
	assert.Equal(t, 0, f.engine.GetProceeds(seller, entity.NativeToken).Sign())

	_, err = f.engine.Buy(context.Background(), buyer, nftContract, nftId, nil, e(1, 18))
	assert.NoError(t, err)
}
