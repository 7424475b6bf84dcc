package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var senddm = cli.Command{
	Name:      "senddm",
	Usage:     "send a private message to a peer",
	ArgsUsage: "<pubkey> <message>",
	Flags: []cli.Flag{
		&cli.UintFlag{
			Name:  "trade-index",
			Usage: "send from the trade key at this index instead of the identity key",
		},
	},
	Action: sendDmAction,
}

func sendDmAction(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("usage: senddm <pubkey> <message>")
	}

	svc, cleanup, err := getServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.messages.SendDirectMessage(
		ctx.Context,
		ctx.Args().First(),
		ctx.Args().Get(1),
		uint32(ctx.Uint("trade-index")),
	); err != nil {
		return err
	}

	fmt.Println("sent")

	return nil
}
