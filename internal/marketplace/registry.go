package marketplace

import (
	"github.com/mintdrop/marketplace-engine/internal/entity"
)

type ListingKey struct {
	Contract string
	TokenId  uint64
}

// listingRegistry holds the active listings. A missing key is the Unlisted
// state; a cleared slot is reusable by a later listing of the same asset.
// The engine is the only writer and guards access with its own lock.
type listingRegistry struct {
	listings map[ListingKey]entity.Listing
}

func newListingRegistry() *listingRegistry {
	return &listingRegistry{listings: make(map[ListingKey]entity.Listing)}
}

func (r *listingRegistry) get(key ListingKey) (entity.Listing, bool) {
	listing, ok := r.listings[key]
	return listing, ok
}

func (r *listingRegistry) put(key ListingKey, listing entity.Listing) {
	r.listings[key] = listing
}

func (r *listingRegistry) clear(key ListingKey) {
	delete(r.listings, key)
}
