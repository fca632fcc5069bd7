package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/mintdrop/marketplace-engine/internal/config"
	"github.com/mintdrop/marketplace-engine/internal/config/di"
	"github.com/mintdrop/marketplace-engine/internal/messenger"
	"github.com/mintdrop/marketplace-engine/internal/pricing"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var container *di.Container

func main() {
	config.Init("cli")

	var err error
	container, err = di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:   "listings",
				Usage:  "show the most recent listing records",
				Action: listings,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 25, Usage: "number of records"},
				},
			},
			{
				Name:   "sales",
				Usage:  "show the most recent sale records",
				Action: sales,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 25, Usage: "number of records"},
				},
			},
			{
				Name:   "cancellations",
				Usage:  "show the most recent cancellation records",
				Action: cancellations,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 25, Usage: "number of records"},
				},
			},
			{
				Name:   "requeue",
				Usage:  "republish the recent listing records to the message queue",
				Action: requeue,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 25, Usage: "number of records"},
				},
			},
			{
				Name:   "required-amount",
				Usage:  "convert a reference-unit price into a token amount at the feed's current rate",
				Action: requiredAmount,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "feed", Required: true, Usage: "oracle feed address"},
					&cli.StringFlag{Name: "price", Required: true, Usage: "reference price (scaled integer)"},
					&cli.UintFlag{Name: "decimals", Value: 18, Usage: "payment token decimals"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("CLI execution failed")
	}
}

func listings(c *cli.Context) error {
	records, err := container.GetEventRecordRepo().GetListedRecords(c.Int("size"))
	if err != nil {
		return err
	}

	return printJson(records)
}

func sales(c *cli.Context) error {
	records, err := container.GetEventRecordRepo().GetBoughtRecords(c.Int("size"))
	if err != nil {
		return err
	}

	return printJson(records)
}

func cancellations(c *cli.Context) error {
	records, err := container.GetEventRecordRepo().GetCancelledRecords(c.Int("size"))
	if err != nil {
		return err
	}

	return printJson(records)
}

func requeue(c *cli.Context) error {
	records, err := container.GetEventRecordRepo().GetListedRecords(c.Int("size"))
	if err != nil {
		return err
	}

	for _, record := range records {
		body, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err := container.GetMessenger().SendMessage(messenger.ItemListed, body, true); err != nil {
			return err
		}
	}

	zap.S().Infof("Republished %d listing records", len(records))
	return nil
}

func printJson(el interface{}) error {
	body, err := json.MarshalIndent(el, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(body))
	return nil
}

func requiredAmount(c *cli.Context) error {
	price, ok := new(big.Int).SetString(c.String("price"), 10)
	if !ok {
		return fmt.Errorf("malformed price: %s", c.String("price"))
	}

	answer, feedDecimals, err := container.GetLedger().Rounds().LatestRound(c.Context, c.String("feed"))
	if err != nil {
		return err
	}

	amount, err := pricing.RequiredAmount(price, answer, feedDecimals, uint8(c.Uint("decimals")))
	if err != nil {
		return err
	}

	fmt.Println(amount.String())
	return nil
}
