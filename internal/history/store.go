package history

import (
	"encoding/hex"
	"encoding/json"
	"go-subtx/internal/messages"
	"sync"

	"golang.org/x/crypto/blake2b"
)

const namespacePrefix = "hist-"

// Storage is the persistent key/value layer history blobs live in.
// Implemented by internal/db/rocksdb and internal/db/postgres.
type Storage interface {
	Get(namespace string) (string, error)
	Set(namespace string, value string) error
	Clear() error
}

// Store is the per-account transaction history ledger. All mutations are
// read-modify-write against the freshest stored state so concurrent in-flight
// submissions never clobber each other's updates.
type Store struct {
	storage Storage
	mu      sync.Mutex
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Namespace derives the storage namespace for an account address. Addresses
// are one-way hashed so the blob keys never expose the account itself.
func Namespace(address string) string {
	sum := blake2b.Sum256([]byte(address))
	return namespacePrefix + hex.EncodeToString(sum[:])
}

// Read deserializes the namespace's persisted blob. A missing blob or a
// deserialization failure both yield an empty mapping, never an error.
func (s *Store) Read(namespace string) AccountHistory {
	raw, err := s.storage.Get(namespace)
	if err != nil || raw == "" {
		return AccountHistory{}
	}

	var accountHistory AccountHistory
	if err := json.Unmarshal([]byte(raw), &accountHistory); err != nil {
		messages.NewSdkMessage(
			messages.LOG_LEVEL_WARNING,
			"",
			err,
			messages.HISTORY_DESERIALIZE_FAILED,
			namespace,
		).ConsoleLog()
		return AccountHistory{}
	}
	if accountHistory == nil {
		return AccountHistory{}
	}
	return accountHistory
}

// Write serializes and persists the whole mapping for a namespace, last write wins
func (s *Store) Write(namespace string, accountHistory AccountHistory) error {
	raw, err := json.Marshal(accountHistory)
	if err != nil {
		return err
	}
	return s.storage.Set(namespace, string(raw))
}

// Merge folds a new or updated record into the namespace's stored mapping.
// The stored state is re-read under lock before merging. When notGenerated is
// set the transaction was never broadcast, so a txId would be misleading and
// is stripped from the stored record.
func (s *Store) Merge(namespace string, record *Record, notGenerated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accountHistory := s.Read(namespace)

	merged := record.Copy()
	if existing, ok := accountHistory[record.Id]; ok {
		merged = mergeRecords(existing, record)
	}
	if notGenerated {
		merged.TxId = ""
	}
	accountHistory[merged.Id] = merged

	return s.Write(namespace, accountHistory)
}

// GetHistory returns one record by id
func (s *Store) GetHistory(namespace, id string) (*Record, bool) {
	record, ok := s.Read(namespace)[id]
	return record, ok
}

// HistoryList returns all records for a namespace, order unspecified
func (s *Store) HistoryList(namespace string) []*Record {
	accountHistory := s.Read(namespace)
	records := make([]*Record, 0, len(accountHistory))
	for _, record := range accountHistory {
		records = append(records, record)
	}
	return records
}

// GetFilteredHistory returns the records matching a caller predicate
func (s *Store) GetFilteredHistory(namespace string, predicate func(*Record) bool) []*Record {
	var records []*Record
	for _, record := range s.Read(namespace) {
		if predicate(record) {
			records = append(records, record)
		}
	}
	return records
}

// RemoveHistory deletes records by id
func (s *Store) RemoveHistory(namespace string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accountHistory := s.Read(namespace)
	for _, id := range ids {
		delete(accountHistory, id)
	}
	return s.Write(namespace, accountHistory)
}

// ClearHistory drops every record in the namespace
func (s *Store) ClearHistory(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Write(namespace, AccountHistory{})
}

// mergeRecords unions two records field by field, incoming non-empty fields win
func mergeRecords(existing, incoming *Record) *Record {
	merged := existing.Copy()
	if incoming.Type != "" {
		merged.Type = incoming.Type
	}
	if incoming.From != "" {
		merged.From = incoming.From
	}
	if incoming.TxId != "" {
		merged.TxId = incoming.TxId
	}
	if incoming.Status != "" {
		merged.Status = incoming.Status
	}
	if incoming.BlockId != "" {
		merged.BlockId = incoming.BlockId
	}
	if incoming.StartTime != 0 {
		merged.StartTime = incoming.StartTime
	}
	if incoming.EndTime != 0 {
		merged.EndTime = incoming.EndTime
	}
	if incoming.Amount != "" {
		merged.Amount = incoming.Amount
	}
	if incoming.Amount2 != "" {
		merged.Amount2 = incoming.Amount2
	}
	if incoming.Symbol != "" {
		merged.Symbol = incoming.Symbol
	}
	if incoming.Symbol2 != "" {
		merged.Symbol2 = incoming.Symbol2
	}
	if incoming.AssetAddress != "" {
		merged.AssetAddress = incoming.AssetAddress
	}
	if incoming.Asset2Address != "" {
		merged.Asset2Address = incoming.Asset2Address
	}
	if incoming.Hash != "" {
		merged.Hash = incoming.Hash
	}
	if incoming.SoraNetworkFee != "" {
		merged.SoraNetworkFee = incoming.SoraNetworkFee
	}
	if incoming.ErrorMessage != nil {
		merged.ErrorMessage = incoming.ErrorMessage
	}
	return merged
}
