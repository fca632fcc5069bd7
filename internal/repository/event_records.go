package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mintdrop/marketplace-engine/internal/elastic_search"
	"github.com/mintdrop/marketplace-engine/internal/entity"
	"github.com/olivere/elastic/v7"
)

var (
	ErrRecordNotFound = errors.New("event record not found")
)

// EventRecordRepository reads back the durable event records the engine
// emitted. The query surface exists for the admin CLI; the external indexer
// consumes the indices directly.
type EventRecordRepository interface {
	GetListedRecords(size int) ([]entity.ItemListed, error)
	GetListedRecord(contract string, tokenId uint64) (entity.ItemListed, error)
	GetBoughtRecords(size int) ([]entity.ItemBought, error)
	GetCancelledRecords(size int) ([]entity.ItemCancelled, error)
}

type eventRecordRepository struct {
	elastic elastic_search.Index
}

func NewEventRecordRepository(elastic elastic_search.Index) EventRecordRepository {
	return eventRecordRepository{elastic}
}

func (r eventRecordRepository) GetListedRecords(size int) ([]entity.ItemListed, error) {
	results, err := r.elastic.GetClient().
		Search(elastic_search.ItemListedIndex.Get()).
		Sort("timestamp", false).
		Size(size).
		Do(context.Background())
	if err != nil {
		return nil, err
	}

	records := make([]entity.ItemListed, 0)
	for _, hit := range results.Hits.Hits {
		var record entity.ItemListed
		if err := json.Unmarshal(hit.Source, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

func (r eventRecordRepository) GetListedRecord(contract string, tokenId uint64) (entity.ItemListed, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("contract", contract),
		elastic.NewTermQuery("tokenId", tokenId),
	)

	results, err := r.elastic.GetClient().
		Search(elastic_search.ItemListedIndex.Get()).
		Query(query).
		Size(1).
		Do(context.Background())
	if err != nil {
		return entity.ItemListed{}, err
	}

	if len(results.Hits.Hits) == 0 {
		return entity.ItemListed{}, ErrRecordNotFound
	}

	var record entity.ItemListed
	err = json.Unmarshal(results.Hits.Hits[0].Source, &record)

	return record, err
}

func (r eventRecordRepository) GetBoughtRecords(size int) ([]entity.ItemBought, error) {
	results, err := r.elastic.GetClient().
		Search(elastic_search.ItemBoughtIndex.Get()).
		Sort("timestamp", false).
		Size(size).
		Do(context.Background())
	if err != nil {
		return nil, err
	}

	records := make([]entity.ItemBought, 0)
	for _, hit := range results.Hits.Hits {
		var record entity.ItemBought
		if err := json.Unmarshal(hit.Source, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

func (r eventRecordRepository) GetCancelledRecords(size int) ([]entity.ItemCancelled, error) {
	results, err := r.elastic.GetClient().
		Search(elastic_search.ItemCancelledIndex.Get()).
		Sort("timestamp", false).
		Size(size).
		Do(context.Background())
	if err != nil {
		return nil, err
	}

	records := make([]entity.ItemCancelled, 0)
	for _, hit := range results.Hits.Hits {
		var record entity.ItemCancelled
		if err := json.Unmarshal(hit.Source, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}
