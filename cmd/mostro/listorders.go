package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/MostroP2P/mostro-cli-sub000/internal/config"
	"github.com/MostroP2P/mostro-cli-sub000/internal/core/application"
	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
)

var listorders = cli.Command{
	Name:  "listorders",
	Usage: "list the public order book",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "status",
			Usage: "only orders with this status, ie. pending",
		},
		&cli.StringFlag{
			Name:  "currency",
			Usage: "only orders in this fiat currency, ie. VES",
		},
		&cli.StringFlag{
			Name:  "kind",
			Usage: "only buy or only sell orders",
		},
	},
	Action: listOrdersAction,
}

func listOrdersAction(ctx *cli.Context) error {
	filters := application.OrderFilters{
		Currency: ctx.String("currency"),
	}
	if status := ctx.String("status"); len(status) > 0 {
		parsed, ok := domain.ParseOrderStatus(status)
		if !ok {
			return fmt.Errorf("unknown order status %q", status)
		}
		filters.Status = parsed
	}
	if kind := ctx.String("kind"); len(kind) > 0 {
		parsed, ok := domain.ParseOrderKind(kind)
		if !ok {
			return fmt.Errorf("kind must be buy or sell")
		}
		filters.Kind = parsed
	}

	svc, cleanup, err := getServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	orders, err := svc.orders.ListOrders(
		ctx.Context, filters, config.GetDuration(config.OrderLifetimeKey),
	)
	if err != nil {
		return err
	}

	printRespJSON(orders)

	return nil
}
