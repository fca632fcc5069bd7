package entity

// EscrowBalance is a seller's withdrawable proceeds for a single payment token,
// in that token's smallest unit. The amount is its decimal string form; escrow
// balances exceed the integer range of the JSON number type.
type EscrowBalance struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}
