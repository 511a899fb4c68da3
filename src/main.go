package main

import (
	"flag"
	"fmt"
	"os"

	"go-subtx/internal/config"
	"go-subtx/internal/connection"
	"go-subtx/internal/db/postgres"
	"go-subtx/internal/db/rocksdb"
	"go-subtx/internal/errmeta"
	"go-subtx/internal/history"
	"go-subtx/internal/keyring"
	"go-subtx/internal/messages"
	"go-subtx/internal/signer"
	"go-subtx/internal/submitter"

	"github.com/qdm12/gotree"
)

func main() {
	var (
		configFilePath string
		historyAddress string
		callHex        string
		operationType  string
		seedHex        string
	)

	flag.StringVar(&configFilePath, "config", "", "path to config file")
	flag.StringVar(&configFilePath, "c", "", "path to config file")
	flag.StringVar(&historyAddress, "history", "", "print the transaction history for an address")
	flag.StringVar(&callHex, "submit", "", "hex encoded call to sign and submit")
	flag.StringVar(&operationType, "type", "Transfer", "operation kind for the submitted call")
	flag.StringVar(&seedHex, "seed", "", "hex encoded sr25519 seed of the signing account")
	flag.Parse()

	var sdkConfig config.Config
	var msg *messages.SdkMessage
	if configFilePath == "" {
		messages.NewSdkMessage(messages.LOG_LEVEL_INFO, "", nil, messages.CONFIG_NO_CUSTOM_PATH_SPECIFIED).ConsoleLog()
		sdkConfig, msg = config.LoadConfig(nil)
	} else {
		sdkConfig, msg = config.LoadConfig(&configFilePath)
	}
	if msg != nil {
		msg.ConsoleLog()
		os.Exit(1)
	}

	storage, closeStorage, err := openStorage(sdkConfig)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer closeStorage()

	store := history.NewStore(storage)

	switch {
	case historyAddress != "":
		printHistory(store, historyAddress)
	case callHex != "":
		submitCall(sdkConfig, store, callHex, operationType, seedHex)
	default:
		flag.Usage()
	}
}

func openStorage(sdkConfig config.Config) (history.Storage, func(), error) {
	if sdkConfig.StorageConfig.Backend == config.BackendPostgres {
		pgClient, err := postgres.Connect(sdkConfig.PostgresConfig)
		if err != nil {
			return nil, nil, err
		}
		return pgClient, pgClient.Close, nil
	}

	rdbClient, err := rocksdb.OpenRocksdb(sdkConfig.RocksdbConfig)
	if err != nil {
		return nil, nil, err
	}
	return rdbClient, rdbClient.Close, nil
}

func printHistory(store *history.Store, address string) {
	records := store.HistoryList(history.Namespace(address))

	root := gotree.New(address)
	for _, record := range records {
		recordNode := root.Appendf("%s (%s)", record.Id, record.Type)
		recordNode.Appendf("status: %s", record.Status)
		if record.TxId != "" {
			recordNode.Appendf("txId: %s", record.TxId)
		}
		if record.BlockId != "" {
			recordNode.Appendf("blockId: %s", record.BlockId)
		}
		if record.Amount != "" {
			recordNode.Appendf("amount: %s %s", record.Amount, record.Symbol)
		}
		if record.Amount2 != "" {
			recordNode.Appendf("amount2: %s %s", record.Amount2, record.Symbol2)
		}
		if record.SoraNetworkFee != "" {
			recordNode.Appendf("networkFee: %s", record.SoraNetworkFee)
		}
		if record.ErrorMessage != nil {
			if record.ErrorMessage.Section != "" {
				recordNode.Appendf("error: %s.%s", record.ErrorMessage.Section, record.ErrorMessage.Name)
			} else {
				recordNode.Appendf("error: %s", record.ErrorMessage.Text)
			}
		}
	}
	fmt.Println(root.String())
}

func submitCall(sdkConfig config.Config, store *history.Store, callHex, operationType, seedHex string) {
	pair, err := keyring.NewKeyPairFromSeed(seedHex)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	kr := keyring.NewKeyring(sdkConfig.ChainConfig.AddressPrefix)
	kr.SetActive(pair)

	registry, err := errmeta.LoadRegistry(sdkConfig.ChainConfig.ErrorRegistryFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	node, err := connection.Connect(sdkConfig.ChainConfig)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer node.Close()

	extrinsicSigner := signer.New(node.SigningContext)
	sdkSubmitter := submitter.New(node, extrinsicSigner, store, kr, registry)

	submission, err := sdkSubmitter.Submit(callHex, submitter.Options{
		HistoryData: &history.Record{Type: operationType},
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	for event := range submission.Events() {
		messages.NewSdkMessage(
			messages.LOG_LEVEL_INFO,
			"",
			nil,
			messages.SUBMITTER_STATUS_RECEIVED,
			event.Record.Id,
			string(event.Phase),
		).ConsoleLog()
	}

	if err := submission.Wait(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
