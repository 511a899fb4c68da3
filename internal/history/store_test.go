package history

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	blobs   map[string]string
	failGet bool
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: map[string]string{}}
}

func (m *memStorage) Get(namespace string) (string, error) {
	if m.failGet {
		return "", errors.New("storage unavailable")
	}
	return m.blobs[namespace], nil
}

func (m *memStorage) Set(namespace string, value string) error {
	m.blobs[namespace] = value
	return nil
}

func (m *memStorage) Clear() error {
	m.blobs = map[string]string{}
	return nil
}

func TestReadMissingNamespace(t *testing.T) {
	store := NewStore(newMemStorage())

	accountHistory := store.Read(Namespace("some-address"))

	assert.NotNil(t, accountHistory)
	assert.Empty(t, accountHistory)
}

func TestReadCorruptBlobFallsBackToEmpty(t *testing.T) {
	storage := newMemStorage()
	namespace := Namespace("some-address")
	storage.blobs[namespace] = "{not json"
	store := NewStore(storage)

	accountHistory := store.Read(namespace)

	assert.Empty(t, accountHistory)
}

func TestReadStorageErrorFallsBackToEmpty(t *testing.T) {
	storage := newMemStorage()
	storage.failGet = true
	store := NewStore(storage)

	assert.Empty(t, store.Read(Namespace("some-address")))
}

func TestMergeCreatesAndUpdates(t *testing.T) {
	store := NewStore(newMemStorage())
	namespace := Namespace("some-address")

	require.NoError(t, store.Merge(namespace, &Record{
		Id:     "0x01",
		Type:   "Transfer",
		Status: "ready",
		Amount: "100",
	}, false))
	require.NoError(t, store.Merge(namespace, &Record{
		Id:      "0x01",
		Status:  "inblock",
		BlockId: "0xAA",
	}, false))

	record, ok := store.GetHistory(namespace, "0x01")
	require.True(t, ok)
	assert.Equal(t, "Transfer", record.Type)
	assert.Equal(t, "inblock", record.Status)
	assert.Equal(t, "0xAA", record.BlockId)
	assert.Equal(t, "100", record.Amount)
}

func TestMergeIsIdempotentForTerminalRecords(t *testing.T) {
	storage := newMemStorage()
	store := NewStore(storage)
	namespace := Namespace("some-address")

	terminal := &Record{
		Id:      "0x01",
		Type:    "Transfer",
		TxId:    "0x01",
		Status:  StatusFinalized,
		BlockId: "0xAA",
		EndTime: 1700000000000,
	}

	require.NoError(t, store.Merge(namespace, terminal, false))
	blobAfterFirst := storage.blobs[namespace]
	require.NoError(t, store.Merge(namespace, terminal, false))

	assert.Equal(t, blobAfterFirst, storage.blobs[namespace])
}

func TestMergeStripsTxIdWhenNotGenerated(t *testing.T) {
	store := NewStore(newMemStorage())
	namespace := Namespace("some-address")

	require.NoError(t, store.Merge(namespace, &Record{
		Id:     "fallback-id",
		TxId:   "0xdead",
		Status: StatusError,
	}, true))

	record, ok := store.GetHistory(namespace, "fallback-id")
	require.True(t, ok)
	assert.Empty(t, record.TxId)
	assert.Equal(t, StatusError, record.Status)
}

func TestRemoveAndClearHistory(t *testing.T) {
	store := NewStore(newMemStorage())
	namespace := Namespace("some-address")

	for _, id := range []string{"0x01", "0x02", "0x03"} {
		require.NoError(t, store.Merge(namespace, &Record{Id: id, Status: "ready"}, false))
	}

	require.NoError(t, store.RemoveHistory(namespace, "0x01", "0x03"))
	records := store.HistoryList(namespace)
	require.Len(t, records, 1)
	assert.Equal(t, "0x02", records[0].Id)

	require.NoError(t, store.ClearHistory(namespace))
	assert.Empty(t, store.HistoryList(namespace))
}

func TestGetFilteredHistory(t *testing.T) {
	store := NewStore(newMemStorage())
	namespace := Namespace("some-address")

	require.NoError(t, store.Merge(namespace, &Record{Id: "0x01", Type: "Transfer"}, false))
	require.NoError(t, store.Merge(namespace, &Record{Id: "0x02", Type: "Swap"}, false))

	swaps := store.GetFilteredHistory(namespace, func(record *Record) bool {
		return record.Type == "Swap"
	})

	require.Len(t, swaps, 1)
	assert.Equal(t, "0x02", swaps[0].Id)
}

func TestNamespaceHidesAddress(t *testing.T) {
	namespace := Namespace("cnVko8qkGUk1vwM1rD4NC9nX1FVjvWVZ9ZQq")

	assert.NotContains(t, namespace, "cnVko")
	assert.Equal(t, Namespace("cnVko8qkGUk1vwM1rD4NC9nX1FVjvWVZ9ZQq"), namespace)
}

func TestErrorInfoJSONShapes(t *testing.T) {
	tests := map[string]struct {
		errInfo  ErrorInfo
		expected string
	}{
		"module error": {
			errInfo:  ErrorInfo{Section: "assets", Name: "InsufficientBalance"},
			expected: `{"section":"assets","name":"InsufficientBalance"}`,
		},
		"free text": {
			errInfo:  ErrorInfo{Text: "Invalid Transaction: nonce too low"},
			expected: `"Invalid Transaction: nonce too low"`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			raw, err := json.Marshal(tc.errInfo)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(raw))

			var roundTripped ErrorInfo
			require.NoError(t, json.Unmarshal(raw, &roundTripped))
			assert.Equal(t, tc.errInfo, roundTripped)
		})
	}
}

func TestRecordApplyPatch(t *testing.T) {
	record := &Record{Id: "0x01", Status: "ready", Amount: "100"}
	status := "inblock"
	blockId := "0xAA"

	record.Apply(Patch{Status: &status, BlockId: &blockId})

	assert.Equal(t, "0x01", record.Id)
	assert.Equal(t, "inblock", record.Status)
	assert.Equal(t, "0xAA", record.BlockId)
	assert.Equal(t, "100", record.Amount)
}
