package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

const (
	// RelaysKey is the list of relay urls the client connects to
	RelaysKey = "RELAYS"
	// MostroPubKeyKey is the hex pubkey of the marketplace the client talks to
	MostroPubKeyKey = "MOSTRO_PUBKEY"
	// DatadirKey is the local data directory to store the internal state of the client
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// MnemonicFileKey is the path of the file holding the seed words. Defaults to <datadir>/mnemonic
	MnemonicFileKey = "MNEMONIC_FILE"
	// RequestTimeoutKey is the duration to wait for the marketplace to answer a request
	RequestTimeoutKey = "REQUEST_TIMEOUT"
	// OrderLifetimeKey is how far back to look when fetching the public order book
	OrderLifetimeKey = "ORDER_LIFETIME"

	DbLocation = "db"

	mnemonicFilename = "mnemonic"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("mostro", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("MOSTRO")
	vip.AutomaticEnv()

	vip.SetDefault(RelaysKey, []string{"wss://relay.mostro.network"})
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(RequestTimeoutKey, 30*time.Second)
	vip.SetDefault(OrderLifetimeKey, 24*time.Hour)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetMnemonicFile returns the configured seed words path, or its default
// location inside the datadir.
func GetMnemonicFile() string {
	if path := GetString(MnemonicFileKey); len(path) > 0 {
		return path
	}
	return filepath.Join(GetDatadir(), mnemonicFilename)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if len(GetStringSlice(RelaysKey)) <= 0 {
		return fmt.Errorf("missing relay urls")
	}

	pubkey := GetString(MostroPubKeyKey)
	if len(pubkey) <= 0 {
		return fmt.Errorf("missing marketplace pubkey")
	}
	if !validatePubKey(pubkey) {
		return fmt.Errorf(
			"%s must be a 32 byte hex encoded x-only pubkey", MostroPubKeyKey,
		)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	return makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func validatePubKey(pubkey string) bool {
	matched, _ := regexp.MatchString(`^[0-9a-f]{64}$`, pubkey)
	return matched
}
