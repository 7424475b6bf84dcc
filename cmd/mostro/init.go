package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/MostroP2P/mostro-cli-sub000/internal/config"
	"github.com/MostroP2P/mostro-cli-sub000/pkg/wallet"
)

var initialize = cli.Command{
	Name:  "init",
	Usage: "generate (or restore) the seed words and store them on disk",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "mnemonic",
			Usage: "restore from existing seed words instead of generating new ones",
		},
	},
	Action: initAction,
}

func initAction(ctx *cli.Context) error {
	if err := config.InitConfig(); err != nil {
		return err
	}

	mnemonicFile := config.GetMnemonicFile()
	if _, err := os.Stat(mnemonicFile); err == nil {
		return fmt.Errorf("seed words already exist at %s", mnemonicFile)
	}

	var w *wallet.Wallet
	var err error
	if words := ctx.String("mnemonic"); len(words) > 0 {
		w, err = wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
			Mnemonic: strings.Fields(words),
		})
	} else {
		w, err = wallet.NewWallet(wallet.NewWalletOpts{EntropySize: 256})
	}
	if err != nil {
		return err
	}

	mnemonic := w.Mnemonic()
	if err := os.WriteFile(
		mnemonicFile, []byte(strings.Join(mnemonic, " ")), 0600,
	); err != nil {
		return fmt.Errorf("writing seed words: %w", err)
	}

	identity, err := w.DeriveIdentityKeyPair()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(strings.Join(mnemonic, " "))
	fmt.Println()
	fmt.Printf("identity pubkey: %s\n", identity.PublicHex())

	return nil
}
