package connection

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"strings"
	"sync"

	"go-subtx/internal/config"
	"go-subtx/internal/interpreter"
	"go-subtx/internal/messages"
	"go-subtx/internal/signer"

	scalecodec "github.com/itering/scale.go"
	"github.com/itering/scale.go/source"
	"github.com/itering/scale.go/types"
	"github.com/itering/scale.go/utiles"
	"github.com/itering/substrate-api-rpc/rpc"
	"github.com/shopspring/decimal"
)

// NodeClient is the sdk's connection to a substrate node: nonce resolution,
// extrinsic submission with status streaming and block event retrieval.
type NodeClient struct {
	wsClient    *WsClient
	metadata    *types.MetadataStruct
	specVersion int
	context     signer.Context
	decoderMu   sync.Mutex
}

// Connect dials the node, loads the chain metadata and registers the
// network's custom decoder types
func Connect(chainConfig config.ChainConfig) (*NodeClient, error) {
	messages.NewSdkMessage(
		messages.LOG_LEVEL_INFO,
		"",
		nil,
		messages.CONNECTION_CONNECTING,
		chainConfig.WsRpcEndpoint,
	).ConsoleLog()

	wsClient, err := InitWsClient(chainConfig.WsRpcEndpoint)
	if err != nil {
		return nil, messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(Connect),
			err,
			messages.CONNECTION_FAILED_TO_CONNECT,
			chainConfig.WsRpcEndpoint,
		).ToError()
	}

	if chainConfig.DecoderTypesFile != "" {
		rawTypes, err := ioutil.ReadFile(chainConfig.DecoderTypesFile)
		if err != nil {
			return nil, messages.NewSdkMessage(
				messages.LOG_LEVEL_ERROR,
				messages.GetComponent(Connect),
				err,
				messages.CONNECTION_FAILED_TYPES_FILE,
			).ToError()
		}
		types.RuntimeType{}.Reg()
		types.RegCustomTypes(source.LoadTypeRegistry(rawTypes))
	}

	client := &NodeClient{wsClient: wsClient}
	if err := client.loadChainContext(); err != nil {
		wsClient.Close()
		return nil, err
	}

	messages.NewSdkMessage(messages.LOG_LEVEL_SUCCESS, "", nil, messages.CONNECTION_CONNECTED).ConsoleLog()
	return client, nil
}

func (client *NodeClient) loadChainContext() error {
	id := client.wsClient.nextId()
	rawGenesis, err := client.wsClient.call(fmt.Sprintf(GENESIS_HASH_MESSAGE, id), id)
	if err != nil {
		return fmt.Errorf("failed to get genesis hash: %w", err)
	}
	var genesisHash string
	if err := json.Unmarshal(rawGenesis, &genesisHash); err != nil {
		return fmt.Errorf("failed to decode genesis hash: %w", err)
	}

	id = client.wsClient.nextId()
	rawVersion, err := client.wsClient.call(fmt.Sprintf(RUNTIME_VERSION_MESSAGE, id), id)
	if err != nil {
		return fmt.Errorf("failed to get runtime version: %w", err)
	}
	var version runtimeVersion
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return fmt.Errorf("failed to decode runtime version: %w", err)
	}

	id = client.wsClient.nextId()
	rawMeta, err := client.wsClient.call(string(rpc.StateGetMetadata(id, "")), id)
	if err != nil {
		return messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(client.loadChainContext),
			err,
			messages.CONNECTION_FAILED_METADATA,
		).ToError()
	}
	var metaHex string
	if err := json.Unmarshal(rawMeta, &metaHex); err != nil {
		return fmt.Errorf("failed to decode metadata body: %w", err)
	}

	metaDecoder := scalecodec.MetadataDecoder{}
	metaDecoder.Init(utiles.HexToBytes(metaHex))
	if err := metaDecoder.Process(); err != nil {
		return messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(client.loadChainContext),
			err,
			messages.CONNECTION_FAILED_METADATA,
		).ToError()
	}

	client.metadata = &metaDecoder.Metadata
	client.specVersion = int(version.SpecVersion)
	client.context = signer.Context{
		GenesisHash:        genesisHash,
		SpecVersion:        version.SpecVersion,
		TransactionVersion: version.TransactionVersion,
	}
	return nil
}

// SigningContext returns the chain constants mixed into signing payloads
func (client *NodeClient) SigningContext() signer.Context {
	return client.context
}

// NextNonce resolves the next account nonce for an address
func (client *NodeClient) NextNonce(address string) (uint64, error) {
	id := client.wsClient.nextId()
	raw, err := client.wsClient.call(fmt.Sprintf(NEXT_NONCE_MESSAGE, id, address), id)
	if err != nil {
		return 0, err
	}
	var nonce uint64
	if err := json.Unmarshal(raw, &nonce); err != nil {
		return 0, fmt.Errorf("failed to decode account nonce: %w", err)
	}
	return nonce, nil
}

// EstimateFee queries the node's fee for an encoded extrinsic and returns
// it as a decimal-shifted balance
func (client *NodeClient) EstimateFee(extrinsicHex string) (decimal.Decimal, error) {
	id := client.wsClient.nextId()
	raw, err := client.wsClient.call(fmt.Sprintf(PAYMENT_QUERY_INFO_MESSAGE, id, extrinsicHex), id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var info struct {
		PartialFee string `json:"partialFee"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to decode fee info: %w", err)
	}
	fee, err := decimal.NewFromString(info.PartialFee)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse partial fee: %w", err)
	}
	return fee.Shift(-balanceDecimals), nil
}

// SubmitAndWatch submits a signed extrinsic and streams its status updates
// into the callback until the caller unsubscribes. onLost fires if the
// transport dies before a terminal status arrives.
func (client *NodeClient) SubmitAndWatch(signedHex string, callback func(interpreter.Status), onLost func(error)) (func(), error) {
	id := client.wsClient.nextId()
	raw, err := client.wsClient.call(fmt.Sprintf(SUBMIT_AND_WATCH_MESSAGE, id, signedHex), id)
	if err != nil {
		return nil, err
	}
	subId := normalizeId(raw)

	client.wsClient.subscribe(subId, func(result json.RawMessage) {
		status, err := interpreter.ParseStatus(result)
		if err != nil {
			messages.NewSdkMessage(
				messages.LOG_LEVEL_WARNING,
				"",
				err,
				messages.FAILED_TYPE_ASSERTION,
			).ConsoleLog()
			return
		}
		callback(status)
	}, func() {
		if onLost != nil {
			onLost(fmt.Errorf("connection: status subscription lost"))
		}
	})

	unsubscribe := func() {
		client.wsClient.unsubscribe(subId)
		unwatchId := client.wsClient.nextId()
		subParam := string(raw)
		client.wsClient.call(fmt.Sprintf(UNWATCH_EXTRINSIC_MESSAGE, unwatchId, subParam), unwatchId)
	}
	return unsubscribe, nil
}

// ExtrinsicIndex locates a transaction inside its inclusion block by hash,
// -1 when the block does not carry it
func (client *NodeClient) ExtrinsicIndex(blockHash, txId string) (int, error) {
	id := client.wsClient.nextId()
	raw, err := client.wsClient.call(fmt.Sprintf(GET_BLOCK_MESSAGE, id, blockHash), id)
	if err != nil {
		return -1, err
	}
	var body struct {
		Block struct {
			Extrinsics []string `json:"extrinsics"`
		} `json:"block"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return -1, fmt.Errorf("failed to decode block body: %w", err)
	}

	for i, extrinsic := range body.Block.Extrinsics {
		hash, err := signer.TxHash(extrinsic)
		if err != nil {
			continue
		}
		if hash == txId {
			return i, nil
		}
	}
	return -1, nil
}

// BlockEvents reads and decodes the System.Events storage entry of a block
func (client *NodeClient) BlockEvents(blockHash string) ([]map[string]interface{}, error) {
	id := client.wsClient.nextId()
	raw, err := client.wsClient.call(
		fmt.Sprintf(STATE_GET_STORAGE_MESSAGE, id, systemEventsStorageKey, blockHash),
		id,
	)
	if err != nil {
		return nil, err
	}
	var eventsHex string
	if err := json.Unmarshal(raw, &eventsHex); err != nil {
		return nil, fmt.Errorf("failed to decode events storage entry: %w", err)
	}
	return client.decodeEvents(eventsHex)
}

func (client *NodeClient) decodeEvents(eventsHex string) ([]map[string]interface{}, error) {
	// the scale decoder mutates its options, keep decoding serialized
	client.decoderMu.Lock()
	defer client.decoderMu.Unlock()

	eventDecoder := scalecodec.EventsDecoder{}
	option := types.ScaleDecoderOption{Metadata: client.metadata, Spec: client.specVersion}
	eventDecoder.Init(types.ScaleBytes{Data: utiles.HexToBytes(eventsHex)}, &option)
	eventDecoder.Process()

	eventsArray, ok := eventDecoder.Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: block events", strings.ToLower(messages.FAILED_TYPE_ASSERTION))
	}

	events := make([]map[string]interface{}, 0, len(eventsArray))
	for _, evt := range eventsArray {
		event, ok := evt.(map[string]interface{})
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Close tears the websocket down
func (client *NodeClient) Close() {
	client.wsClient.Close()
}
