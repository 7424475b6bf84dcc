package main

import (
	"github.com/urfave/cli/v2"
)

var restore = cli.Command{
	Name:   "restore",
	Usage:  "rebuild the local state from the seed words",
	Action: restoreAction,
}

func restoreAction(ctx *cli.Context) error {
	svc, cleanup, err := getServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	orders, err := svc.orders.RestoreSession(ctx.Context)
	if err != nil {
		return err
	}

	printRespJSON(orders)

	return nil
}
