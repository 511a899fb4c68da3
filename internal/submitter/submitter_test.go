package submitter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go-subtx/internal/history"
	"go-subtx/internal/interpreter"
	"go-subtx/internal/keyring"
	"go-subtx/internal/operation"
	"go-subtx/internal/signer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "fac7959dbfe72f052e5a0c3c8d6530f202b02fd8f9f5ca3580ec8deb7797479e"

type memStorage struct {
	mu    sync.Mutex
	blobs map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: map[string]string{}}
}

func (m *memStorage) Get(namespace string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobs[namespace], nil
}

func (m *memStorage) Set(namespace string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[namespace] = value
	return nil
}

func (m *memStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs = map[string]string{}
	return nil
}

type fakeNode struct {
	nonce        uint64
	nonceErr     error
	statuses     []interpreter.Status
	events       []map[string]interface{}
	eventsErr    error
	extrinsicIdx int
	mu           sync.Mutex
	cancelled    int
	submitted    string
	nonceAsked   string
}

func (n *fakeNode) NextNonce(address string) (uint64, error) {
	n.mu.Lock()
	n.nonceAsked = address
	n.mu.Unlock()
	return n.nonce, n.nonceErr
}

func (n *fakeNode) SubmitAndWatch(signedHex string, callback func(interpreter.Status), onLost func(error)) (func(), error) {
	n.mu.Lock()
	n.submitted = signedHex
	n.mu.Unlock()
	for _, status := range n.statuses {
		callback(status)
	}
	return func() {
		n.mu.Lock()
		n.cancelled++
		n.mu.Unlock()
	}, nil
}

func (n *fakeNode) BlockEvents(blockHash string) ([]map[string]interface{}, error) {
	return n.events, n.eventsErr
}

func (n *fakeNode) ExtrinsicIndex(blockHash, txId string) (int, error) {
	return n.extrinsicIdx, nil
}

func (n *fakeNode) cancelCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancelled
}

type fakeSigner struct {
	signed  string
	signErr error
	nonce   uint64
}

func (s *fakeSigner) Sign(callHex string, account keyring.Account, nonce uint64) (string, error) {
	s.nonce = nonce
	return s.signed, s.signErr
}

func blockEventAt(extrinsicIdx int, module, eventId string, values ...interface{}) map[string]interface{} {
	params := make([]interface{}, 0, len(values))
	for _, value := range values {
		params = append(params, map[string]interface{}{"value": value})
	}
	return map[string]interface{}{
		"module_id":     module,
		"event_id":      eventId,
		"extrinsic_idx": extrinsicIdx,
		"params":        params,
	}
}

func blockEvent(module, eventId string, values ...interface{}) map[string]interface{} {
	return blockEventAt(0, module, eventId, values...)
}

func testKeyring(t *testing.T) (*keyring.Keyring, string) {
	t.Helper()
	pair, err := keyring.NewKeyPairFromSeed(testSeed)
	require.NoError(t, err)
	kr := keyring.NewKeyring(69)
	kr.SetActive(pair)
	address, err := kr.ActiveAddress()
	require.NoError(t, err)
	return kr, address
}

func collectEvents(t *testing.T, submission *Submission) []ExtrinsicEvent {
	t.Helper()
	var collected []ExtrinsicEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-submission.Events():
			if !ok {
				return collected
			}
			collected = append(collected, event)
		case <-timeout:
			t.Fatal("timed out waiting for submission events")
		}
	}
}

func TestSubmitHappyPath(t *testing.T) {
	kr, address := testKeyring(t)
	storage := newMemStorage()
	store := history.NewStore(storage)
	node := &fakeNode{
		nonce: 7,
		statuses: []interpreter.Status{
			{Kind: "ready"},
			{Kind: "inBlock", Value: "0xAA"},
			{Kind: "finalized", Value: "0xAA"},
		},
		events: []map[string]interface{}{
			blockEvent("XorFee", "FeeWithdrawn", "signer", "700000000000000"),
			blockEvent("system", "ExtrinsicSuccess"),
		},
	}
	sgn := &fakeSigner{signed: "0x1234abcd"}

	sub := New(node, sgn, store, kr, nil)
	submission, err := sub.Submit("0xdeadbeef", Options{
		HistoryData: &history.Record{Type: string(operation.Transfer), Amount: "100"},
	})
	require.NoError(t, err)

	collected := collectEvents(t, submission)
	require.NoError(t, submission.Wait())

	require.Len(t, collected, 2)
	assert.Equal(t, interpreter.PhaseInBlock, collected[0].Phase)
	assert.Equal(t, "inblock", collected[0].Record.Status)
	assert.Equal(t, "0xAA", collected[0].Record.BlockId)
	assert.Equal(t, interpreter.PhaseFinalized, collected[1].Phase)

	final := collected[1].Record
	assert.Equal(t, history.StatusFinalized, final.Status)
	assert.Equal(t, address, final.From)
	assert.Equal(t, "100", final.Amount)
	assert.Equal(t, "0.0007", final.SoraNetworkFee)
	assert.Nil(t, final.ErrorMessage)
	assert.NotZero(t, final.EndTime)

	txId, err := signer.TxHash("0x1234abcd")
	require.NoError(t, err)
	assert.Equal(t, txId, final.TxId)
	assert.Equal(t, txId, final.Id)

	// the fake signer received the node-resolved nonce
	assert.EqualValues(t, 7, sgn.nonce)
	assert.Equal(t, address, node.nonceAsked)
	assert.Equal(t, "0x1234abcd", node.submitted)

	// the pair must not stay usable after signing
	assert.True(t, kr.ActivePair().Locked())

	// the subscription was torn down exactly once
	assert.Equal(t, 1, node.cancelCount())

	stored, ok := store.GetHistory(history.Namespace(address), txId)
	require.True(t, ok)
	assert.Equal(t, history.StatusFinalized, stored.Status)
	assert.Equal(t, txId, stored.TxId)
}

func TestSubmitFailsBeforeBroadcast(t *testing.T) {
	kr, address := testKeyring(t)
	storage := newMemStorage()
	store := history.NewStore(storage)
	node := &fakeNode{nonceErr: errors.New("1010: Invalid Transaction: nonce too low")}

	sub := New(node, &fakeSigner{signed: "0x1234abcd"}, store, kr, nil)
	submission, err := sub.Submit("0xdeadbeef", Options{
		HistoryData: &history.Record{Type: string(operation.Transfer), Amount: "100"},
	})
	require.NoError(t, err)

	collected := collectEvents(t, submission)
	waitErr := submission.Wait()
	require.Error(t, waitErr)
	assert.Equal(t, "Invalid Transaction: nonce too low", waitErr.Error())

	require.Len(t, collected, 1)
	assert.Equal(t, interpreter.PhaseError, collected[0].Phase)

	record := collected[0].Record
	assert.Equal(t, history.StatusError, record.Status)
	require.NotNil(t, record.ErrorMessage)
	assert.Equal(t, "Invalid Transaction: nonce too low", record.ErrorMessage.Text)

	// a transaction that never reached the node has no hash, the id falls
	// back to the obfuscated start time
	assert.Equal(t, interpreter.DeriveFallbackId(record.StartTime), record.Id)

	stored, ok := store.GetHistory(history.Namespace(address), record.Id)
	require.True(t, ok)
	assert.Empty(t, stored.TxId)
	assert.Equal(t, history.StatusError, stored.Status)
}

func TestSubmitOnChainFailure(t *testing.T) {
	kr, address := testKeyring(t)
	store := history.NewStore(newMemStorage())
	node := &fakeNode{
		statuses: []interpreter.Status{
			{Kind: "ready"},
			{Kind: "finalized", Value: "0xBB"},
		},
		events: []map[string]interface{}{
			blockEvent("system", "ExtrinsicFailed", "BadOrigin"),
		},
	}

	sub := New(node, &fakeSigner{signed: "0x1234abcd"}, store, kr, nil)
	submission, err := sub.Submit("0xdeadbeef", Options{
		HistoryData: &history.Record{Type: string(operation.Transfer)},
	})
	require.NoError(t, err)

	collected := collectEvents(t, submission)
	waitErr := submission.Wait()
	require.Error(t, waitErr)
	assert.Equal(t, "BadOrigin", waitErr.Error())

	require.Len(t, collected, 1)
	assert.Equal(t, interpreter.PhaseError, collected[0].Phase)
	record := collected[0].Record
	assert.Equal(t, history.StatusError, record.Status)
	require.NotNil(t, record.ErrorMessage)
	assert.Equal(t, "BadOrigin", record.ErrorMessage.Text)

	stored, ok := store.GetHistory(history.Namespace(address), record.Id)
	require.True(t, ok)
	assert.Equal(t, history.StatusError, stored.Status)
}

func TestSubmitIgnoresForeignExtrinsicFailure(t *testing.T) {
	kr, _ := testKeyring(t)
	store := history.NewStore(newMemStorage())
	node := &fakeNode{
		statuses: []interpreter.Status{
			{Kind: "ready"},
			{Kind: "finalized", Value: "0xEE"},
		},
		// another extrinsic in the same block failed, this one succeeded
		events: []map[string]interface{}{
			blockEventAt(0, "system", "ExtrinsicFailed", "BadOrigin"),
			blockEventAt(2, "system", "ExtrinsicSuccess"),
		},
		extrinsicIdx: 2,
	}

	sub := New(node, &fakeSigner{signed: "0x1234abcd"}, store, kr, nil)
	submission, err := sub.Submit("0xdeadbeef", Options{
		HistoryData: &history.Record{Type: string(operation.Transfer)},
	})
	require.NoError(t, err)

	collected := collectEvents(t, submission)
	require.NoError(t, submission.Wait())

	require.Len(t, collected, 1)
	assert.Equal(t, interpreter.PhaseFinalized, collected[0].Phase)
	assert.Equal(t, history.StatusFinalized, collected[0].Record.Status)
	assert.Nil(t, collected[0].Record.ErrorMessage)
}

func TestSubmitSubscriptionLost(t *testing.T) {
	kr, _ := testKeyring(t)
	store := history.NewStore(newMemStorage())
	node := &lostNode{cause: errors.New("websocket: close 1006 (abnormal closure)")}

	sub := New(node, &fakeSigner{signed: "0x1234abcd"}, store, kr, nil)
	submission, err := sub.Submit("0xdeadbeef", Options{
		HistoryData: &history.Record{Type: string(operation.Transfer)},
	})
	require.NoError(t, err)

	collectEvents(t, submission)
	waitErr := submission.Wait()
	require.Error(t, waitErr)
	assert.Equal(t, "close 1006 (abnormal closure)", waitErr.Error())
}

// lostNode reports the subscription as lost right after subscribing
type lostNode struct {
	fakeNode
	cause error
}

func (n *lostNode) SubmitAndWatch(signedHex string, callback func(interpreter.Status), onLost func(error)) (func(), error) {
	go onLost(n.cause)
	return func() {}, nil
}

func TestSubmitRejectsEmptyExtrinsic(t *testing.T) {
	kr, _ := testKeyring(t)
	sub := New(&fakeNode{}, &fakeSigner{}, history.NewStore(newMemStorage()), kr, nil)

	_, err := sub.Submit("", Options{})
	assert.ErrorIs(t, err, ErrEmptyExtrinsic)
}

func TestBuildAndSubmitUnknownKind(t *testing.T) {
	kr, _ := testKeyring(t)
	sub := New(&fakeNode{}, &fakeSigner{}, history.NewStore(newMemStorage()), kr, nil)

	_, err := sub.BuildAndSubmit(operation.Kind("Teleport"), operation.Params{}, Options{})
	assert.ErrorIs(t, err, operation.ErrUnknownOperation)
}

func TestBuildAndSubmitSeedsHistoryData(t *testing.T) {
	operation.Register(operation.Swap, operation.Handler{
		BuildCall: func(params operation.Params) (string, error) { return "0xcafe", nil },
		EmptyCall: func() string { return "0xcafe" },
	})

	kr, address := testKeyring(t)
	store := history.NewStore(newMemStorage())
	node := &fakeNode{
		statuses: []interpreter.Status{{Kind: "finalized", Value: "0xCC"}},
		events:   []map[string]interface{}{blockEvent("system", "ExtrinsicSuccess")},
	}

	sub := New(node, &fakeSigner{signed: "0x1234abcd"}, store, kr, nil)
	submission, err := sub.BuildAndSubmit(operation.Swap, operation.Params{
		Amount:        "12",
		AssetAddress:  "0x02",
		Asset2Address: "0x03",
	}, Options{})
	require.NoError(t, err)

	collected := collectEvents(t, submission)
	require.NoError(t, submission.Wait())

	require.Len(t, collected, 1)
	record := collected[0].Record
	assert.Equal(t, string(operation.Swap), record.Type)
	assert.Equal(t, "12", record.Amount)
	assert.Equal(t, "0x02", record.AssetAddress)
	assert.Equal(t, "0x03", record.Asset2Address)
	assert.Equal(t, address, record.From)
}

func TestSubmitUnsignedSkipsSigning(t *testing.T) {
	kr, _ := testKeyring(t)
	store := history.NewStore(newMemStorage())
	node := &fakeNode{
		statuses: []interpreter.Status{{Kind: "finalized", Value: "0xDD"}},
		events:   []map[string]interface{}{blockEvent("system", "ExtrinsicSuccess")},
	}
	sgn := &fakeSigner{signErr: errors.New("must not be called")}

	sub := New(node, sgn, store, kr, nil)
	submission, err := sub.Submit("0xfeed", Options{
		HistoryData: &history.Record{Type: string(operation.Faucet)},
		Unsigned:    true,
	})
	require.NoError(t, err)

	collectEvents(t, submission)
	require.NoError(t, submission.Wait())

	// the extrinsic went out untouched and the pair stayed unlocked
	assert.Equal(t, "0xfeed", node.submitted)
	assert.False(t, kr.ActivePair().Locked())
}
