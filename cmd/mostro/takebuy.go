package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var takebuy = cli.Command{
	Name:      "takebuy",
	Usage:     "take somebody else's buy order",
	ArgsUsage: "<order-id>",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "amount",
			Usage: "fiat amount to take inside a range order",
		},
	},
	Action: takeBuyAction,
}

func takeBuyAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: takebuy <order-id>")
	}

	svc, cleanup, err := getServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var amount *int64
	if ctx.IsSet("amount") {
		v := ctx.Int64("amount")
		amount = &v
	}

	reply, err := svc.orders.TakeBuy(ctx.Context, ctx.Args().First(), amount)
	if err != nil {
		return err
	}

	printRespJSON(reply.Message)

	return nil
}
