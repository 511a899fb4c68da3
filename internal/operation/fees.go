package operation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeTable is an immutable snapshot of static network fees per operation
// kind. Estimations hand a fresh snapshot to the caller, nothing mutates a
// table in place after construction.
type FeeTable struct {
	fees map[Kind]decimal.Decimal
}

// NewFeeTable copies the given fees into a snapshot
func NewFeeTable(fees map[Kind]decimal.Decimal) FeeTable {
	snapshot := make(map[Kind]decimal.Decimal, len(fees))
	for kind, fee := range fees {
		snapshot[kind] = fee
	}
	return FeeTable{fees: snapshot}
}

// EstimateFees queries the network fee of every registered kind's
// placeholder call and returns the results as a fresh snapshot. Kinds whose
// fee cannot be estimated are left out of the table.
func EstimateFees(query func(callHex string) (decimal.Decimal, error)) FeeTable {
	fees := map[Kind]decimal.Decimal{}

	registryMu.RLock()
	handlers := make(map[Kind]Handler, len(registry))
	for kind, handler := range registry {
		handlers[kind] = handler
	}
	registryMu.RUnlock()

	for kind, handler := range handlers {
		if handler.EmptyCall == nil {
			continue
		}
		fee, err := query(handler.EmptyCall())
		if err != nil {
			continue
		}
		fees[kind] = fee
	}
	return NewFeeTable(fees)
}

// Fee returns the static fee for a kind
func (t FeeTable) Fee(kind Kind) (decimal.Decimal, error) {
	fee, ok := t.fees[kind]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnknownOperation, kind)
	}
	return fee, nil
}

// Kinds lists the kinds present in the snapshot
func (t FeeTable) Kinds() []Kind {
	kinds := make([]Kind, 0, len(t.fees))
	for kind := range t.fees {
		kinds = append(kinds, kind)
	}
	return kinds
}
