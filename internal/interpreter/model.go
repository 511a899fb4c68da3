package interpreter

import "go-subtx/internal/history"

// Phase tags the notifications emitted to submission subscribers
type Phase string

const (
	PhaseInBlock   Phase = "inblock"
	PhaseFinalized Phase = "finalized"
	PhaseError     Phase = "error"
)

const (
	statusInBlock   = "inblock"
	statusFinalized = "finalized"

	// decoded event fields, as produced by the scale EventsDecoder
	eventModuleField       = "module_id"
	eventIdField           = "event_id"
	eventParamsField       = "params"
	eventExtrinsicIdxField = "extrinsic_idx"
	paramValueField        = "value"

	// event sources recognised by the finalized-block scan
	moduleXorFee         = "xorfee"
	moduleAssets         = "assets"
	moduleBalances       = "balances"
	moduleTokens         = "tokens"
	moduleEthBridge      = "ethbridge"
	moduleEvmBridgeProxy = "evmbridgeproxy"
	moduleSystem         = "system"

	eventFeeWithdrawn        = "FeeWithdrawn"
	eventAssetRegistered     = "AssetRegistered"
	eventTransfer            = "Transfer"
	eventRequestRegistered   = "RequestRegistered"
	eventRequestStatusUpdate = "RequestStatusUpdate"
	eventExtrinsicFailed     = "ExtrinsicFailed"

	// chain balances carry 18 decimal places
	balanceDecimals = 18
)

type (
	// Status is one exclusive extrinsic status variant as reported by the
	// node's submit-and-watch subscription
	Status struct {
		Kind  string // variant name, e.g. "Ready", "InBlock", "Finalized"
		Value string // block hash for InBlock/Finalized, empty otherwise
	}

	// Terminal classifies the outcome of a finalized extrinsic
	Terminal struct {
		Phase Phase
		Err   *history.ErrorInfo
	}
)
