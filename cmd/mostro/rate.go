package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
)

var rate = cli.Command{
	Name:      "rate",
	Usage:     "rate the counterparty of a finished trade",
	ArgsUsage: "<order-id> <rating 1-5>",
	Action:    rateAction,
}

func rateAction(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("usage: rate <order-id> <rating 1-5>")
	}
	rating, err := strconv.Atoi(ctx.Args().Get(1))
	if err != nil {
		return fmt.Errorf("rating must be a number between 1 and 5")
	}

	svc, cleanup, err := getServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.orders.RateUser(
		ctx.Context, ctx.Args().First(), rating,
	); err != nil {
		return err
	}

	fmt.Println("done")

	return nil
}
