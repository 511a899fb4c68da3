package submitter

import (
	"go-subtx/internal/history"
	"go-subtx/internal/interpreter"
	"go-subtx/internal/keyring"
)

type (
	// NodeClient is the node RPC surface the orchestrator consumes
	NodeClient interface {
		NextNonce(address string) (uint64, error)
		SubmitAndWatch(signedHex string, callback func(interpreter.Status), onLost func(error)) (func(), error)
		BlockEvents(blockHash string) ([]map[string]interface{}, error)
		ExtrinsicIndex(blockHash, txId string) (int, error)
	}

	// Signer signs an encoded call into a submittable extrinsic
	Signer interface {
		Sign(callHex string, account keyring.Account, nonce uint64) (string, error)
	}

	// ExtrinsicEvent is one notification emitted to submission subscribers
	ExtrinsicEvent struct {
		Phase  interpreter.Phase
		Record *history.Record
	}

	// Options tunes one submission
	Options struct {
		// HistoryData seeds the working record (operation kind, amounts,
		// asset addresses). The record id is assigned by the orchestrator.
		HistoryData *history.Record
		// Unsigned submits the caller supplied extrinsic as-is
		Unsigned bool
		// ToActiveAccount forces history attribution to the active account
		// even when the record originates from another address
		ToActiveAccount bool
	}
)

const eventBuffer = 16
