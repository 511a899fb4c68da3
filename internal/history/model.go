package history

import (
	"bytes"
	"encoding/json"
)

const (
	// fixed status tags, everything else is the lowercased node status
	StatusError     = "error"
	StatusFinalized = "finalized"
)

type (
	// Record is one transaction's lifecycle record. The json field names are
	// the persisted blob format and must not change.
	Record struct {
		Id             string     `json:"id,omitempty"`
		Type           string     `json:"type,omitempty"`
		From           string     `json:"from,omitempty"`
		TxId           string     `json:"txId,omitempty"`
		Status         string     `json:"status,omitempty"`
		BlockId        string     `json:"blockId,omitempty"`
		StartTime      int64      `json:"startTime,omitempty"`
		EndTime        int64      `json:"endTime,omitempty"`
		Amount         string     `json:"amount,omitempty"`
		Amount2        string     `json:"amount2,omitempty"`
		Symbol         string     `json:"symbol,omitempty"`
		Symbol2        string     `json:"symbol2,omitempty"`
		AssetAddress   string     `json:"assetAddress,omitempty"`
		Asset2Address  string     `json:"asset2Address,omitempty"`
		Hash           string     `json:"hash,omitempty"`
		SoraNetworkFee string     `json:"soraNetworkFee,omitempty"`
		ErrorMessage   *ErrorInfo `json:"errorMessage,omitempty"`
	}

	// AccountHistory maps record id to record for one account
	AccountHistory map[string]*Record

	// ErrorInfo is either a decoded module error (Section/Name) or free text
	ErrorInfo struct {
		Section string
		Name    string
		Text    string
	}

	// Patch is a partial update applied to a Record by the status reducer
	Patch struct {
		TxId           *string
		Status         *string
		BlockId        *string
		StartTime      *int64
		EndTime        *int64
		Amount         *string
		Amount2        *string
		Symbol         *string
		Symbol2        *string
		AssetAddress   *string
		Asset2Address  *string
		Hash           *string
		SoraNetworkFee *string
		ErrorMessage   *ErrorInfo
	}
)

type moduleErrorJSON struct {
	Section string `json:"section"`
	Name    string `json:"name"`
}

func (e ErrorInfo) MarshalJSON() ([]byte, error) {
	if e.Section != "" || e.Name != "" {
		return json.Marshal(moduleErrorJSON{Section: e.Section, Name: e.Name})
	}
	return json.Marshal(e.Text)
}

func (e *ErrorInfo) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var m moduleErrorJSON
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		e.Section = m.Section
		e.Name = m.Name
		e.Text = ""
		return nil
	}
	return json.Unmarshal(data, &e.Text)
}

// Apply merges the non-nil fields of a patch into the record. The record id
// is never touched, it is assigned exactly once at submission time.
func (rec *Record) Apply(patch Patch) {
	if patch.TxId != nil {
		rec.TxId = *patch.TxId
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.BlockId != nil {
		rec.BlockId = *patch.BlockId
	}
	if patch.StartTime != nil {
		rec.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		rec.EndTime = *patch.EndTime
	}
	if patch.Amount != nil {
		rec.Amount = *patch.Amount
	}
	if patch.Amount2 != nil {
		rec.Amount2 = *patch.Amount2
	}
	if patch.Symbol != nil {
		rec.Symbol = *patch.Symbol
	}
	if patch.Symbol2 != nil {
		rec.Symbol2 = *patch.Symbol2
	}
	if patch.AssetAddress != nil {
		rec.AssetAddress = *patch.AssetAddress
	}
	if patch.Asset2Address != nil {
		rec.Asset2Address = *patch.Asset2Address
	}
	if patch.Hash != nil {
		rec.Hash = *patch.Hash
	}
	if patch.SoraNetworkFee != nil {
		rec.SoraNetworkFee = *patch.SoraNetworkFee
	}
	if patch.ErrorMessage != nil {
		rec.ErrorMessage = patch.ErrorMessage
	}
}

// Copy returns a shallow copy of the record
func (rec *Record) Copy() *Record {
	cp := *rec
	return &cp
}
