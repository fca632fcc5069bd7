package recorder

import (
	"github.com/mintdrop/marketplace-engine/internal/elastic_search"
	"github.com/mintdrop/marketplace-engine/internal/entity"
	"go.uber.org/zap"
)

// Recorder turns emitted engine events into durable Elasticsearch documents.
// It runs off the event manager, outside the settlement path: a slow or down
// cluster delays records, never settlements.
type Recorder struct {
	elastic elastic_search.Index
}

func NewRecorder(elastic elastic_search.Index) Recorder {
	return Recorder{elastic}
}

func (r Recorder) OnItemListed(msg interface{}) {
	record, ok := msg.(entity.ItemListed)
	if !ok {
		zap.L().Error("Recorder: Unexpected payload for listed event")
		return
	}

	r.elastic.Save(elastic_search.ItemListedIndex.Get(), record)
}

func (r Recorder) OnItemBought(msg interface{}) {
	record, ok := msg.(entity.ItemBought)
	if !ok {
		zap.L().Error("Recorder: Unexpected payload for bought event")
		return
	}

	r.elastic.Save(elastic_search.ItemBoughtIndex.Get(), record)

	// The bought record supersedes the listed record; flip it inactive so
	// the indexer's view matches the registry.
	listed := entity.ItemListed{
		Contract:     record.Contract,
		TokenId:      record.TokenId,
		Seller:       record.Seller,
		Price:        record.Price,
		PaymentToken: record.PaymentToken,
		Active:       false,
		Timestamp:    record.Timestamp,
	}
	r.elastic.Save(elastic_search.ItemListedIndex.Get(), listed)
}

func (r Recorder) OnItemCancelled(msg interface{}) {
	record, ok := msg.(entity.ItemCancelled)
	if !ok {
		zap.L().Error("Recorder: Unexpected payload for cancelled event")
		return
	}

	r.elastic.Save(elastic_search.ItemCancelledIndex.Get(), record)
}
