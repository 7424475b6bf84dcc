package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/MostroP2P/mostro-cli-sub000/internal/config"
	"github.com/MostroP2P/mostro-cli-sub000/internal/core/application"
	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
	"github.com/MostroP2P/mostro-cli-sub000/internal/infrastructure/relay"
	dbbadger "github.com/MostroP2P/mostro-cli-sub000/internal/infrastructure/storage/db/badger"
	"github.com/MostroP2P/mostro-cli-sub000/pkg/wallet"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.0.1" //TODO use goreleaser for setting version
	app.Name = "mostro CLI"
	app.Usage = "Command line interface for the Mostro peer to peer marketplace"
	app.Commands = append(
		app.Commands,
		&initialize,
		&neworder,
		&listorders,
		&listdisputes,
		&takesell,
		&takebuy,
		&cancel,
		&fiatsent,
		&release,
		&dispute,
		&rate,
		&getdm,
		&senddm,
		&restore,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

type services struct {
	orders   *application.OrderService
	messages *application.MessageService
}

// getServices wires the whole client together: config, wallet, local store,
// relay pool and the application services on top.
func getServices(ctx *cli.Context) (*services, func(), error) {
	if err := config.InitConfig(); err != nil {
		return nil, nil, err
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	w, err := loadWallet()
	if err != nil {
		return nil, nil, err
	}

	db, err := dbbadger.NewDbManager(
		filepath.Join(config.GetDatadir(), config.DbLocation), nil,
	)
	if err != nil {
		return nil, nil, err
	}

	pool, err := relay.NewPool(ctx.Context, relay.PoolOpts{
		Relays: config.GetStringSlice(config.RelaysKey),
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	cleanup := func() {
		pool.Close()
		db.Close()
	}

	correlator, err := application.NewCorrelator(
		pool, config.GetDuration(config.RequestTimeoutKey),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	orderService, err := application.NewOrderService(
		pool,
		correlator,
		dbbadger.NewOrderRepositoryImpl(db),
		dbbadger.NewTradeKeyRepositoryImpl(db),
		w,
		config.GetString(config.MostroPubKeyKey),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	identity, err := identityTradeKey(w)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	messageService, err := application.NewMessageService(
		pool, dbbadger.NewTradeKeyRepositoryImpl(db), identity,
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &services{
		orders:   orderService,
		messages: messageService,
	}, cleanup, nil
}

func loadWallet() (*wallet.Wallet, error) {
	data, err := os.ReadFile(config.GetMnemonicFile())
	if err != nil {
		return nil, fmt.Errorf("reading seed words: try 'init' first: %w", err)
	}
	return wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic: strings.Fields(string(data)),
	})
}

func identityTradeKey(w *wallet.Wallet) (*domain.TradeKey, error) {
	keyPair, err := w.DeriveIdentityKeyPair()
	if err != nil {
		return nil, err
	}
	return &domain.TradeKey{
		SecretKey: keyPair.PrivateHex(),
		PubKey:    keyPair.PublicHex(),
	}, nil
}

func printRespJSON(resp interface{}) {
	jsonStr, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}

	fmt.Println(string(jsonStr))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[mostro] %v\n", err)
	os.Exit(1)
}
