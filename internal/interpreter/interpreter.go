package interpreter

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go-subtx/internal/errmeta"
	"go-subtx/internal/history"
	"go-subtx/internal/operation"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

// ParseStatus decodes the raw subscription result into a Status. The node
// reports either a bare string variant ("ready", "broadcast", "invalid") or a
// single-key object variant ({"inBlock": "0x..."}).
func ParseStatus(raw json.RawMessage) (Status, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return Status{Kind: name}, nil
	}

	var variant map[string]json.RawMessage
	if err := json.Unmarshal(raw, &variant); err != nil {
		return Status{}, fmt.Errorf("unrecognised extrinsic status: %s", string(raw))
	}
	for kind, value := range variant {
		status := Status{Kind: kind}
		var hash string
		if err := json.Unmarshal(value, &hash); err == nil {
			status.Value = hash
		}
		return status, nil
	}
	return Status{}, fmt.Errorf("empty extrinsic status object")
}

// IsInBlock reports whether the status is the block inclusion variant
func (st Status) IsInBlock() bool {
	return strings.ToLower(st.Kind) == statusInBlock
}

// IsFinalized reports whether the status is the finalization variant
func (st Status) IsFinalized() bool {
	return strings.ToLower(st.Kind) == statusFinalized
}

// NextPatch derives the record update for one status notification. Every
// notification lowers the variant name into the status tag; block inclusion
// additionally records the block hash.
func NextPatch(status Status) history.Patch {
	tag := strings.ToLower(status.Kind)
	patch := history.Patch{Status: &tag}
	if status.IsInBlock() && status.Value != "" {
		blockId := status.Value
		patch.BlockId = &blockId
	}
	return patch
}

// ReduceBlockEvents scans the finalized block's decoded events and derives
// the terminal record update. A block carries the events of every extrinsic
// in it, so only events attributed to extrinsicIdx are considered; a negative
// index disables the filter. Rules apply first-match-wins per event:
// fee withdrawals, asset registrations, liquidity transfer amounts, bridge
// request hashes and the ExtrinsicFailed classification.
func ReduceBlockEvents(
	record *history.Record,
	kind operation.Kind,
	events []map[string]interface{},
	extrinsicIdx int,
	registry errmeta.Registry,
	now int64,
) (history.Patch, Terminal) {
	patch := history.Patch{EndTime: &now}
	terminal := Terminal{Phase: PhaseFinalized}
	amountSet := record.Amount != ""

	for _, event := range events {
		if extrinsicIdx >= 0 {
			idx, ok := asInt(event[eventExtrinsicIdxField])
			if !ok || idx != extrinsicIdx {
				continue
			}
		}

		module, _ := event[eventModuleField].(string)
		module = strings.ToLower(module)
		eventId, _ := event[eventIdField].(string)
		params := eventParams(event)

		switch {
		case module == moduleXorFee && eventId == eventFeeWithdrawn:
			if fee, ok := paramValue(params, 1); ok {
				formatted := formatBalance(fee)
				patch.SoraNetworkFee = &formatted
			}

		case module == moduleAssets && eventId == eventAssetRegistered:
			if asset, ok := paramValue(params, 0); ok {
				address := fmt.Sprintf("%v", asset)
				patch.AssetAddress = &address
			}

		case (module == moduleBalances || module == moduleTokens) && eventId == eventTransfer:
			if !kind.IsLiquidity() {
				continue
			}
			// transfer fields are consumed in reverse declaration order,
			// the amount sits at the tail of the event params
			value, ok := paramValue(params, len(params)-1)
			if !ok {
				continue
			}
			amount := formatBalance(value)
			if !amountSet {
				patch.Amount = &amount
				amountSet = true
			} else if patch.Amount2 == nil {
				patch.Amount2 = &amount
			}

		case module == moduleEthBridge && eventId == eventRequestRegistered && kind.IsEthBridge():
			if value, ok := paramValue(params, 0); ok {
				hash := fmt.Sprintf("%v", value)
				patch.Hash = &hash
			}

		case module == moduleEvmBridgeProxy && eventId == eventRequestStatusUpdate && kind.IsEvm():
			if value, ok := paramValue(params, 0); ok {
				hash := fmt.Sprintf("%v", value)
				patch.Hash = &hash
			}

		case module == moduleSystem && eventId == eventExtrinsicFailed:
			terminal.Phase = PhaseError
			value, _ := paramValue(params, 0)
			errInfo := decodeDispatchError(value, registry)
			terminal.Err = &errInfo
			patch.ErrorMessage = &errInfo
		}
	}

	if terminal.Phase == PhaseError {
		errTag := history.StatusError
		patch.Status = &errTag
	}
	return patch, terminal
}

// FailurePatch builds the terminal error update for a submission that failed
// outside on-chain processing (transport, signing, nonce resolution). Node
// errors conventionally read "pallet:reason", the trailing segment carries
// the human relevant part.
func FailurePatch(rawErr error, now int64) history.Patch {
	errTag := history.StatusError
	message := ShortenError(rawErr.Error())
	return history.Patch{
		Status:       &errTag,
		EndTime:      &now,
		ErrorMessage: &history.ErrorInfo{Text: message},
	}
}

// DeriveFallbackId obfuscates the record's start time into a record id for
// submissions that never produced a transaction hash
func DeriveFallbackId(startTime int64) string {
	sum := blake2b.Sum256([]byte(strconv.FormatInt(startTime, 10)))
	return hex.EncodeToString(sum[:])
}

// ShortenError drops the leading pallet/code segment of a raw node error,
// keeping the human relevant remainder ("1010: Invalid Transaction: nonce
// too low" becomes "Invalid Transaction: nonce too low")
func ShortenError(raw string) string {
	segments := strings.SplitN(raw, ":", 2)
	return strings.TrimSpace(segments[len(segments)-1])
}

func eventParams(event map[string]interface{}) []interface{} {
	params, _ := event[eventParamsField].([]interface{})
	return params
}

func paramValue(params []interface{}, idx int) (interface{}, bool) {
	if idx < 0 || idx >= len(params) {
		return nil, false
	}
	param, ok := params[idx].(map[string]interface{})
	if !ok {
		return nil, false
	}
	value, ok := param[paramValueField]
	return value, ok
}

// formatBalance renders a raw chain balance as a decimal string
func formatBalance(value interface{}) string {
	switch v := value.(type) {
	case string:
		if parsed, err := decimal.NewFromString(v); err == nil {
			return parsed.Shift(-balanceDecimals).String()
		}
		return v
	case float64:
		return decimal.NewFromFloat(v).Shift(-balanceDecimals).String()
	case int:
		return decimal.NewFromInt(int64(v)).Shift(-balanceDecimals).String()
	case int64:
		return decimal.NewFromInt(v).Shift(-balanceDecimals).String()
	default:
		return fmt.Sprintf("%v", value)
	}
}

// decodeDispatchError classifies a decoded DispatchError value. Module
// errors resolve to a section/name pair through the registry, everything
// else (BadOrigin, CannotLookup, ...) keeps its textual form.
func decodeDispatchError(value interface{}, registry errmeta.Registry) history.ErrorInfo {
	switch v := value.(type) {
	case string:
		return history.ErrorInfo{Text: v}
	case map[string]interface{}:
		if moduleRef, ok := v["Module"]; ok {
			if ref, ok := moduleRef.(map[string]interface{}); ok {
				moduleIndex, okIdx := asInt(ref["index"])
				errorIndex, okErr := asInt(ref["error"])
				if okIdx && okErr && registry != nil {
					if decoded, found := registry.DecodeModuleError(moduleIndex, errorIndex); found {
						return history.ErrorInfo{Section: decoded.Section, Name: decoded.Name}
					}
				}
			}
			return history.ErrorInfo{Text: fmt.Sprintf("%v", moduleRef)}
		}
		// non-module variants decode as a single-key object, the key names
		// the error kind and the value holds docs when present
		for name, docs := range v {
			if docs == nil {
				return history.ErrorInfo{Text: name}
			}
			return history.ErrorInfo{Text: fmt.Sprintf("%v", docs)}
		}
	}
	return history.ErrorInfo{Text: fmt.Sprintf("%v", value)}
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
