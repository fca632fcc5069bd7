package elastic_search

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/mintdrop/marketplace-engine/internal/config"
	"github.com/mintdrop/marketplace-engine/internal/entity"
	"github.com/olivere/elastic/v7"
	"github.com/patrickmn/go-cache"
	"github.com/sha1sum/aws_signing_client"
	"go.uber.org/zap"
)

type Index interface {
	GetClient() *elastic.Client

	InstallMappings()

	HasSaved(entity entity.Entity) bool
	Save(index string, entity entity.Entity)
}

type index struct {
	client *elastic.Client
	saved  *cache.Cache
}

const saveAttempts int = 3

func New() (Index, error) {
	client, err := newClient()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("ElasticSearch: Failed to create client")
	}

	return index{client, cache.New(5*time.Minute, 10*time.Minute)}, err
}

func newClient() (*elastic.Client, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(strings.Join(config.Get().ElasticSearch.Hosts, ",")),
		elastic.SetSniff(config.Get().ElasticSearch.Sniff),
		elastic.SetHealthcheck(config.Get().ElasticSearch.HealthCheck),
	}

	if config.Get().ElasticSearch.Debug {
		opts = append(opts, elastic.SetTraceLog(ElasticLogger{}))
	}

	if config.Get().ElasticSearch.Aws {
		creds := credentials.NewStaticCredentials(
			config.Get().Aws.AccessKey,
			config.Get().Aws.SecretKey,
			"",
		)
		awsClient, err := aws_signing_client.New(v4.NewSigner(creds), nil, "es", config.Get().Aws.Region)
		if err != nil {
			return nil, err
		}
		opts = append(opts, elastic.SetHttpClient(awsClient))
	} else if config.Get().ElasticSearch.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(
			config.Get().ElasticSearch.Username,
			config.Get().ElasticSearch.Password,
		))
	}

	return elastic.NewClient(opts...)
}

func (i index) GetClient() *elastic.Client {
	return i.client
}

func (i index) InstallMappings() {
	zap.L().Info("ElasticSearch: Install Mappings")

	for idx, mapping := range mappings {
		if err := i.createIndex(idx.Get(), mapping); err != nil {
			zap.S().With(zap.Error(err)).Fatalf("ElasticSearch: Failed to create index %s", idx.Get())
		}
	}
}

func (i index) createIndex(index string, mapping string) error {
	ctx := context.Background()

	exists, err := i.client.IndexExists(index).Do(ctx)
	if err != nil {
		return err
	}

	if !exists {
		createIndex, err := i.client.CreateIndex(index).BodyString(mapping).Do(ctx)
		if err != nil {
			return err
		}

		if createIndex.Acknowledged {
			zap.S().Infof("ElasticSearch: Created index %s", index)
		}
	}

	return nil
}

// HasSaved reports whether this entity's slug was written recently. Bought
// records carry a fresh slug per record, so they never dedupe.
func (i index) HasSaved(entity entity.Entity) bool {
	_, found := i.saved.Get(entity.Slug())
	return found
}

func (i index) Save(index string, entity entity.Entity) {
	i.save(index, entity, 1)
}

func (i index) save(idx string, e entity.Entity, attempt int) {
	if attempt > saveAttempts {
		zap.L().With(zap.String("index", idx), zap.String("slug", e.Slug())).
			Error("ElasticSearch: Failed to save entity, Too many attempts")
		return
	}

	_, err := i.client.Index().
		Index(idx).
		Id(e.Slug()).
		BodyJson(e).
		Refresh("wait_for").
		Do(context.Background())

	if err != nil {
		zap.L().With(zap.Error(err), zap.String("index", idx), zap.String("slug", e.Slug()), zap.Int("attempt", attempt)).
			Warn("ElasticSearch: Failed to save entity")
		time.Sleep(time.Second)
		i.save(idx, e, attempt+1)
		return
	}

	i.saved.SetDefault(e.Slug(), true)

	zap.L().With(zap.String("index", idx), zap.String("slug", e.Slug())).Debug("ElasticSearch: Saved entity")
}
