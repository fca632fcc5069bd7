package elastic_search

import (
	"fmt"

	"github.com/mintdrop/marketplace-engine/internal/config"
)

type Indices string

var (
	ItemListedIndex    Indices = "itemlisted"
	ItemBoughtIndex    Indices = "itembought"
	ItemCancelledIndex Indices = "itemcancelled"
)

// Sets the network and returns the full string
func (i *Indices) Get() string {
	return fmt.Sprintf("%s.%s.%s", config.Get().Network, config.Get().Index, string(*i))
}

// Mappings keep amounts as keywords: prices exceed the integer range of the
// JSON number type, so they are indexed as their decimal string form.
var mappings = map[Indices]string{
	ItemListedIndex: `{
		"mappings": {
			"properties": {
				"contract":     {"type": "keyword"},
				"tokenId":      {"type": "long"},
				"seller":       {"type": "keyword"},
				"price":        {"type": "keyword"},
				"paymentToken": {"type": "keyword"},
				"active":       {"type": "boolean"},
				"timestamp":    {"type": "date"}
			}
		}
	}`,
	ItemBoughtIndex: `{
		"mappings": {
			"properties": {
				"contract":     {"type": "keyword"},
				"tokenId":      {"type": "long"},
				"seller":       {"type": "keyword"},
				"buyer":        {"type": "keyword"},
				"price":        {"type": "keyword"},
				"amount":       {"type": "keyword"},
				"paymentToken": {"type": "keyword"},
				"timestamp":    {"type": "date"}
			}
		}
	}`,
	ItemCancelledIndex: `{
		"mappings": {
			"properties": {
				"contract":  {"type": "keyword"},
				"tokenId":   {"type": "long"},
				"seller":    {"type": "keyword"},
				"timestamp": {"type": "date"}
			}
		}
	}`,
}
