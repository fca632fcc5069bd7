package di

import (
	"github.com/mintdrop/marketplace-engine/internal/chain"
	"github.com/mintdrop/marketplace-engine/internal/config"
	"github.com/mintdrop/marketplace-engine/internal/elastic_search"
	"github.com/mintdrop/marketplace-engine/internal/marketplace"
	"github.com/mintdrop/marketplace-engine/internal/messenger"
	"github.com/mintdrop/marketplace-engine/internal/oracle"
	"github.com/mintdrop/marketplace-engine/internal/recorder"
	"github.com/mintdrop/marketplace-engine/internal/repository"
	"github.com/mintdrop/marketplace-engine/internal/server"
	"github.com/sarulabs/di/v2"
	"go.uber.org/zap"
)

var Definitions = []di.Def{
	{
		Name: "elastic",
		Build: func(ctn di.Container) (interface{}, error) {
			elastic, err := elastic_search.New()
			if err != nil {
				zap.L().With(zap.Error(err)).Fatal("Failed to start ES")
			}

			return elastic, nil
		},
	},
	{
		Name: "ledger",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get().Chain
			if cfg.Url == "" {
				zap.L().Warn("No chain url configured, using in-memory ledger")
				return chain.NewMemoryLedger(), nil
			}

			client, err := chain.NewClient(cfg.Url, cfg.Timeout, cfg.Debug)
			if err != nil {
				return nil, err
			}

			return chain.NewProvider(client), nil
		},
	},
	{
		Name: "oracle.registry",
		Build: func(ctn di.Container) (interface{}, error) {
			ledger := ctn.Get("ledger").(chain.Ledger)
			return oracle.NewRegistry(ledger.Rounds()), nil
		},
	},
	{
		Name: "engine",
		Build: func(ctn di.Container) (interface{}, error) {
			ledger := ctn.Get("ledger").(chain.Ledger)
			feeds := ctn.Get("oracle.registry").(*oracle.Registry)

			return marketplace.NewEngine(
				config.Get().Engine.Account,
				config.Get().Engine.Admin,
				ledger.Assets(),
				ledger.Tokens(),
				ledger.Native(),
				feeds,
			), nil
		},
	},
	{
		Name: "server",
		Build: func(ctn di.Container) (interface{}, error) {
			return server.NewServer(ctn.Get("engine").(*marketplace.Engine)), nil
		},
	},
	{
		Name: "recorder",
		Build: func(ctn di.Container) (interface{}, error) {
			return recorder.NewRecorder(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "messenger",
		Build: func(ctn di.Container) (interface{}, error) {
			return messenger.NewMessenger(config.Get().Amqp.Uri), nil
		},
	},
	{
		Name: "eventRecord.repo",
		Build: func(ctn di.Container) (interface{}, error) {
			return repository.NewEventRecordRepository(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
}

type Container struct {
	ctn di.Container
}

func NewContainer() (*Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}

	if err := builder.Add(Definitions...); err != nil {
		return nil, err
	}

	return &Container{ctn: builder.Build()}, nil
}

func (c *Container) GetElastic() elastic_search.Index {
	return c.ctn.Get("elastic").(elastic_search.Index)
}

func (c *Container) GetLedger() chain.Ledger {
	return c.ctn.Get("ledger").(chain.Ledger)
}

func (c *Container) GetOracleRegistry() *oracle.Registry {
	return c.ctn.Get("oracle.registry").(*oracle.Registry)
}

func (c *Container) GetEngine() *marketplace.Engine {
	return c.ctn.Get("engine").(*marketplace.Engine)
}

func (c *Container) GetServer() server.Server {
	return c.ctn.Get("server").(server.Server)
}

func (c *Container) GetRecorder() recorder.Recorder {
	return c.ctn.Get("recorder").(recorder.Recorder)
}

func (c *Container) GetMessenger() *messenger.Messenger {
	return c.ctn.Get("messenger").(*messenger.Messenger)
}

func (c *Container) GetEventRecordRepo() repository.EventRecordRepository {
	return c.ctn.Get("eventRecord.repo").(repository.EventRecordRepository)
}
