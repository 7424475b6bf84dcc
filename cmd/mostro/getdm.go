package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

var getdm = cli.Command{
	Name:  "getdm",
	Usage: "fetch the private messages of every mailbox",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "since",
			Usage: "how far back to look",
			Value: 24 * time.Hour,
		},
	},
	Action: getDmAction,
}

func getDmAction(ctx *cli.Context) error {
	svc, cleanup, err := getServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	messages, err := svc.messages.FetchMessages(
		ctx.Context, time.Now().Add(-ctx.Duration("since")),
	)
	if err != nil {
		return err
	}

	printRespJSON(messages)

	return nil
}
