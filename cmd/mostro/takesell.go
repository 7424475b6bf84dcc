package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var takesell = cli.Command{
	Name:      "takesell",
	Usage:     "take somebody else's sell order",
	ArgsUsage: "<order-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "invoice",
			Usage: "lightning invoice where to receive the sats",
		},
		&cli.Int64Flag{
			Name:  "amount",
			Usage: "fiat amount to take inside a range order",
		},
	},
	Action: takeSellAction,
}

func takeSellAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: takesell <order-id>")
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

	reply, err := svc.orders.TakeSell(
		ctx.Context, ctx.Args().First(), ctx.String("invoice"), amount,
	)
	if err != nil {
		return err
	}

	printRespJSON(reply.Message)

	return nil
}
