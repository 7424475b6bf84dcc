package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
)

var neworder = cli.Command{
	Name:  "neworder",
	Usage: "publish a new buy or sell order",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "kind",
			Usage:    "order kind: buy or sell",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "fiat-code",
			Usage:    "fiat currency code, ie. VES, EUR",
			Required: true,
		},
		&cli.Int64Flag{
			Name:  "fiat-amount",
			Usage: "exact fiat amount",
		},
		&cli.Int64Flag{
			Name:  "min-amount",
			Usage: "lower bound of a fiat range order",
		},
		&cli.Int64Flag{
			Name:  "max-amount",
			Usage: "upper bound of a fiat range order",
		},
		&cli.Int64Flag{
			Name:  "amount",
			Usage: "amount in satoshis, 0 to price at execution time",
		},
		&cli.StringFlag{
			Name:     "payment-method",
			Usage:    "fiat payment method, ie. 'face to face'",
			Required: true,
		},
		&cli.Int64Flag{
			Name:  "premium",
			Usage: "percentage premium over the market price",
		},
		&cli.StringFlag{
			Name:  "invoice",
			Usage: "lightning invoice where to receive the sats (buy orders)",
		},
	},
	Action: newOrderAction,
}

func newOrderAction(ctx *cli.Context) error {
	kind, ok := domain.ParseOrderKind(ctx.String("kind"))
	if !ok {
		return fmt.Errorf("kind must be buy or sell")
	}

	order := domain.Order{
		Kind:          kind,
		Status:        domain.StatusPending,
		Amount:        ctx.Int64("amount"),
		FiatCode:      ctx.String("fiat-code"),
		FiatAmount:    ctx.Int64("fiat-amount"),
		PaymentMethod: ctx.String("payment-method"),
		Premium:       ctx.Int64("premium"),
		BuyerInvoice:  ctx.String("invoice"),
		CreatedAt:     time.Now().Unix(),
	}
	if ctx.IsSet("min-amount") || ctx.IsSet("max-amount") {
		if !ctx.IsSet("min-amount") || !ctx.IsSet("max-amount") {
			return fmt.Errorf("a range order needs both min-amount and max-amount")
		}
		min, max := ctx.Int64("min-amount"), ctx.Int64("max-amount")
		order.MinAmount, order.MaxAmount = &min, &max
	}

	svc, cleanup, err := getServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	confirmed, err := svc.orders.NewOrder(ctx.Context, order)
	if err != nil {
		return err
	}

	printRespJSON(confirmed)

	return nil
}
