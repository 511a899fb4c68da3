package connection

import "encoding/json"

const (
	// storage key of the System.Events entry, twox128("System") ++ twox128("Events")
	systemEventsStorageKey = "26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7"

	// author_submitAndWatchExtrinsic notification method
	extrinsicUpdateMethod = "author_extrinsicUpdate"

	// chain balances carry 18 decimal places
	balanceDecimals = 18
)

var (
	NEXT_NONCE_MESSAGE         = `{"id":%d,"method":"system_accountNextIndex","params":["%s"],"jsonrpc":"2.0"}`
	SUBMIT_AND_WATCH_MESSAGE   = `{"id":%d,"method":"author_submitAndWatchExtrinsic","params":["%s"],"jsonrpc":"2.0"}`
	UNWATCH_EXTRINSIC_MESSAGE  = `{"id":%d,"method":"author_unwatchExtrinsic","params":[%s],"jsonrpc":"2.0"}`
	STATE_GET_STORAGE_MESSAGE  = `{"id":%d,"method":"state_getStorage","params":["0x%s","%s"],"jsonrpc":"2.0"}`
	PAYMENT_QUERY_INFO_MESSAGE = `{"id":%d,"method":"payment_queryInfo","params":["%s"],"jsonrpc":"2.0"}`
	RUNTIME_VERSION_MESSAGE    = `{"id":%d,"method":"state_getRuntimeVersion","params":[],"jsonrpc":"2.0"}`
	GENESIS_HASH_MESSAGE       = `{"id":%d,"method":"chain_getBlockHash","params":[0],"jsonrpc":"2.0"}`
	GET_BLOCK_MESSAGE          = `{"id":%d,"method":"chain_getBlock","params":["%s"],"jsonrpc":"2.0"}`
)

type (
	wsError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}

	wsSubParams struct {
		Result       json.RawMessage `json:"result"`
		Subscription json.RawMessage `json:"subscription"`
	}

	wsMessage struct {
		Id     int             `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *wsError        `json:"error"`
		Method string          `json:"method"`
		Params *wsSubParams    `json:"params"`
	}

	runtimeVersion struct {
		SpecVersion        uint32 `json:"specVersion"`
		TransactionVersion uint32 `json:"transactionVersion"`
	}
)
