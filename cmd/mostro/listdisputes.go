package main

import (
	"github.com/urfave/cli/v2"

	"github.com/MostroP2P/mostro-cli-sub000/internal/config"
)

var listdisputes = cli.Command{
	Name:   "listdisputes",
	Usage:  "list the public dispute records",
	Action: listDisputesAction,
}

func listDisputesAction(ctx *cli.Context) error {
	svc, cleanup, err := getServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	disputes, err := svc.orders.ListDisputes(
		ctx.Context, config.GetDuration(config.OrderLifetimeKey),
	)
	if err != nil {
		return err
	}

	printRespJSON(disputes)

	return nil
}
