package operation

import (
	"fmt"
	"sync"
)

// Kind is the semantic category of a transaction. The enumeration is open:
// integrators may register their own kinds next to the builtin ones.
type Kind string

const (
	Transfer          Kind = "Transfer"
	Swap              Kind = "Swap"
	AddLiquidity      Kind = "AddLiquidity"
	RemoveLiquidity   Kind = "RemoveLiquidity"
	RegisterAsset     Kind = "RegisterAsset"
	Faucet            Kind = "Faucet"
	EthBridgeOutgoing Kind = "EthBridgeOutgoing"
	EthBridgeIncoming Kind = "EthBridgeIncoming"
	EvmOutgoing       Kind = "EvmOutgoing"
	EvmIncoming       Kind = "EvmIncoming"
)

// ErrUnknownOperation is returned for kinds without a registered handler.
// This is a synchronous failure and never touches history.
var ErrUnknownOperation = fmt.Errorf("unknown operation kind")

type (
	// Params carries the caller-level arguments a call is built from
	Params struct {
		To            string
		AssetAddress  string
		Asset2Address string
		Amount        string
		Amount2       string
	}

	// Handler builds the encoded call for a kind. EmptyCall returns a
	// placeholder call used for static fee estimation.
	Handler struct {
		BuildCall func(params Params) (string, error)
		EmptyCall func() string
	}
)

var (
	registryMu sync.RWMutex
	registry   = map[Kind]Handler{}
)

// Register installs or replaces the handler for a kind
func Register(kind Kind, handler Handler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = handler
}

// Lookup returns the handler for a kind
func Lookup(kind Kind) (Handler, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	handler, ok := registry[kind]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %s", ErrUnknownOperation, kind)
	}
	return handler, nil
}

// IsLiquidity reports whether a kind is a liquidity pool operation. Only
// these consume generic transfer events into amount fields.
func (k Kind) IsLiquidity() bool {
	return k == AddLiquidity || k == RemoveLiquidity
}

// IsSignerExempt reports whether a kind is submitted without attributing the
// active account as sender (the faucet path has no real signer).
func (k Kind) IsSignerExempt() bool {
	return k == Faucet
}

// IsEthBridge reports whether a kind is a hash-bearing eth bridge operation
func (k Kind) IsEthBridge() bool {
	return k == EthBridgeOutgoing || k == EthBridgeIncoming
}

// IsEvm reports whether a kind is a hash-bearing EVM bridge proxy operation
func (k Kind) IsEvm() bool {
	return k == EvmOutgoing || k == EvmIncoming
}
