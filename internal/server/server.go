package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mintdrop/marketplace-engine/internal/entity"
	"github.com/mintdrop/marketplace-engine/internal/marketplace"
	"github.com/mintdrop/marketplace-engine/internal/oracle"
	"github.com/mintdrop/marketplace-engine/internal/pricing"
	"go.uber.org/zap"
)

// Server exposes the engine's public operations over HTTP. The caller's
// ledger account arrives in the X-Account header, set by the authenticating
// gateway in front of this service.
type Server struct {
	engine *marketplace.Engine
}

func NewServer(engine *marketplace.Engine) Server {
	return Server{engine}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.HandleFunc("/listings", s.handleList).Methods("POST")
	r.HandleFunc("/listings/{contract}/{tokenId}", s.handleGetListing).Methods("GET")
	r.HandleFunc("/listings/{contract}/{tokenId}", s.handleUpdate).Methods("PATCH")
	r.HandleFunc("/listings/{contract}/{tokenId}", s.handleCancel).Methods("DELETE")
	r.HandleFunc("/listings/{contract}/{tokenId}/buy", s.handleBuy).Methods("POST")

	r.HandleFunc("/withdrawals", s.handleWithdraw).Methods("POST")

	r.HandleFunc("/price/{token}", s.handleRequiredAmount).Methods("GET")
	r.HandleFunc("/proceeds/{account}/{token}", s.handleGetProceeds).Methods("GET")

	r.HandleFunc("/admin/price-feeds", s.handleRegisterPriceFeed).Methods("POST")
	r.HandleFunc("/admin/price-feeds", s.handleGetPriceFeeds).Methods("GET")

	r.NotFoundHandler = notFoundHandler()

	return r
}

type listRequest struct {
	Contract     string `json:"contract"`
	TokenId      uint64 `json:"tokenId"`
	Price        string `json:"price"`
	PaymentToken string `json:"paymentToken"`
}

type updateRequest struct {
	Price string `json:"price"`
}

type buyRequest struct {
	Tendered string `json:"tendered"`
	Value    string `json:"value"`
}

type withdrawRequest struct {
	Token string `json:"token"`
}

type registerFeedRequest struct {
	Token string `json:"token"`
	Feed  string `json:"feed"`
}

func (s Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s Server) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := getCaller(r)
	if !ok {
		http.Error(w, "Missing X-Account header", http.StatusUnauthorized)
		return
	}

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Malformed request body", http.StatusBadRequest)
		return
	}

	price, ok := parseAmount(req.Price)
	if !ok {
		http.Error(w, "Malformed price", http.StatusBadRequest)
		return
	}

	if err := s.engine.List(r.Context(), caller, req.Contract, req.TokenId, price, req.PaymentToken); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	contract, tokenId, err := listingVars(r)
	if err != nil {
		http.Error(w, "Malformed token id", http.StatusBadRequest)
		return
	}

	listing, err := s.engine.GetListing(contract, tokenId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, map[string]interface{}{
		"contract":     listing.Contract,
		"tokenId":      listing.TokenId,
		"seller":       listing.Seller,
		"price":        listing.Price.String(),
		"paymentToken": listing.PaymentToken,
	})
}

func (s Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := getCaller(r)
	if !ok {
		http.Error(w, "Missing X-Account header", http.StatusUnauthorized)
		return
	}

	contract, tokenId, err := listingVars(r)
	if err != nil {
		http.Error(w, "Malformed token id", http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Malformed request body", http.StatusBadRequest)
		return
	}

	price, ok := parseAmount(req.Price)
	if !ok {
		http.Error(w, "Malformed price", http.StatusBadRequest)
		return
	}

	if err := s.engine.Update(r.Context(), caller, contract, tokenId, price); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := getCaller(r)
	if !ok {
		http.Error(w, "Missing X-Account header", http.StatusUnauthorized)
		return
	}

	contract, tokenId, err := listingVars(r)
	if err != nil {
		http.Error(w, "Malformed token id", http.StatusBadRequest)
		return
	}

	if err := s.engine.Cancel(r.Context(), caller, contract, tokenId); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	caller, ok := getCaller(r)
	if !ok {
		http.Error(w, "Missing X-Account header", http.StatusUnauthorized)
		return
	}

	contract, tokenId, err := listingVars(r)
	if err != nil {
		http.Error(w, "Malformed token id", http.StatusBadRequest)
		return
	}

	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Malformed request body", http.StatusBadRequest)
		return
	}

	var tendered, value *big.Int
	if req.Tendered != "" {
		if tendered, ok = parseAmount(req.Tendered); !ok {
			http.Error(w, "Malformed tendered amount", http.StatusBadRequest)
			return
		}
	}
	if req.Value != "" {
		if value, ok = parseAmount(req.Value); !ok {
			http.Error(w, "Malformed value", http.StatusBadRequest)
			return
		}
	}

	amount, err := s.engine.Buy(r.Context(), caller, contract, tokenId, tendered, value)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, map[string]interface{}{"amount": amount.String()})
}

func (s Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := getCaller(r)
	if !ok {
		http.Error(w, "Missing X-Account header", http.StatusUnauthorized)
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Malformed request body", http.StatusBadRequest)
		return
	}

	amount, err := s.engine.Withdraw(r.Context(), caller, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, map[string]interface{}{"amount": amount.String()})
}

func (s Server) handleRequiredAmount(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	price, ok := parseAmount(r.URL.Query().Get("price"))
	if !ok {
		http.Error(w, "Malformed price", http.StatusBadRequest)
		return
	}

	amount, err := s.engine.RequiredAmount(r.Context(), token, price)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, map[string]interface{}{"amount": amount.String()})
}

func (s Server) handleGetProceeds(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	token := mux.Vars(r)["token"]

	writeJson(w, entity.EscrowBalance{
		Account: account,
		Token:   token,
		Amount:  s.engine.GetProceeds(account, token).String(),
	})
}

func (s Server) handleRegisterPriceFeed(w http.ResponseWriter, r *http.Request) {
	caller, ok := getCaller(r)
	if !ok {
		http.Error(w, "Missing X-Account header", http.StatusUnauthorized)
		return
	}

	var req registerFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Malformed request body", http.StatusBadRequest)
		return
	}

	if err := s.engine.RegisterPriceFeed(caller, req.Token, req.Feed); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s Server) handleGetPriceFeeds(w http.ResponseWriter, r *http.Request) {
	writeJson(w, s.engine.PriceFeeds())
}

func getCaller(r *http.Request) (string, bool) {
	caller := r.Header.Get("X-Account")
	return caller, caller != ""
}

func listingVars(r *http.Request) (string, uint64, error) {
	contract := mux.Vars(r)["contract"]
	tokenId, err := strconv.ParseUint(mux.Vars(r)["tokenId"], 10, 64)
	return contract, tokenId, err
}

func parseAmount(value string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, false
	}
	return amount, true
}

func writeJson(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().With(zap.Error(err)).Error("Server: Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, marketplace.ErrUnauthorized),
		errors.Is(err, marketplace.ErrNotSeller),
		errors.Is(err, marketplace.ErrNotOwner),
		errors.Is(err, marketplace.ErrNotApproved):
		return http.StatusForbidden
	case errors.Is(err, marketplace.ErrNotListed):
		return http.StatusNotFound
	case errors.Is(err, marketplace.ErrAlreadyListed):
		return http.StatusConflict
	case errors.Is(err, marketplace.ErrPaymentMismatch):
		return http.StatusPaymentRequired
	case errors.Is(err, marketplace.ErrNoProceeds):
		return http.StatusNotFound
	case errors.Is(err, marketplace.ErrInvalidPrice),
		errors.Is(err, oracle.ErrNoPriceFeed),
		errors.Is(err, oracle.ErrStalePrice),
		errors.Is(err, oracle.ErrInvalidPrice),
		errors.Is(err, pricing.ErrArithmeticOverflow),
		errors.Is(err, pricing.ErrInvalidUnitPrice):
		return http.StatusBadRequest
	case errors.Is(err, marketplace.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})
}
