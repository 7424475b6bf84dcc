package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

var cancel = cli.Command{
	Name:      "cancel",
	Usage:     "cancel one of your orders",
	ArgsUsage: "<order-id>",
	Action: func(ctx *cli.Context) error {
		return lifecycleAction(ctx, "cancel", func(
			c context.Context, svc *services, orderID string,
		) error {
			return svc.orders.Cancel(c, orderID)
		})
	},
}

var fiatsent = cli.Command{
	Name:      "fiatsent",
	Usage:     "notify the counterparty that the fiat payment went out",
	ArgsUsage: "<order-id>",
	Action: func(ctx *cli.Context) error {
		return lifecycleAction(ctx, "fiatsent", func(
			c context.Context, svc *services, orderID string,
		) error {
			return svc.orders.FiatSent(c, orderID)
		})
	},
}

var release = cli.Command{
	Name:      "release",
	Usage:     "settle the trade, releasing the held sats to the buyer",
	ArgsUsage: "<order-id>",
	Action: func(ctx *cli.Context) error {
		return lifecycleAction(ctx, "release", func(
			c context.Context, svc *services, orderID string,
		) error {
			return svc.orders.Release(c, orderID)
		})
	},
}

var dispute = cli.Command{
	Name:      "dispute",
	Usage:     "open a dispute on one of your orders",
	ArgsUsage: "<order-id>",
	Action: func(ctx *cli.Context) error {
		return lifecycleAction(ctx, "dispute", func(
			c context.Context, svc *services, orderID string,
		) error {
			return svc.orders.Dispute(c, orderID)
		})
	},
}

func lifecycleAction(
	ctx *cli.Context, name string,
	verb func(context.Context, *services, string) error,
) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: %s <order-id>", name)
	}

	svc, cleanup, err := getServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := verb(ctx.Context, svc, ctx.Args().First()); err != nil {
		return err
	}

	fmt.Println("done")

	return nil
}
