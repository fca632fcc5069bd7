package entity

// PriceFeedRegistration binds a payment token to the oracle feed providing its
// reference-unit price. Written only through the administrative interface.
type PriceFeedRegistration struct {
	Token string `json:"token"`
	Feed  string `json:"feed"`
}
