package submitter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go-subtx/internal/errmeta"
	"go-subtx/internal/history"
	"go-subtx/internal/interpreter"
	"go-subtx/internal/keyring"
	"go-subtx/internal/messages"
	"go-subtx/internal/operation"
	"go-subtx/internal/signer"
)

// ErrEmptyExtrinsic is raised synchronously when no call is supplied
var ErrEmptyExtrinsic = errors.New("empty extrinsic")

// Submitter drives extrinsic submissions: signing, status streaming and
// history persistence. Each Submit call runs an independent pipeline, any
// number may be in flight concurrently.
type Submitter struct {
	node     NodeClient
	signer   Signer
	store    *history.Store
	keyring  *keyring.Keyring
	registry errmeta.Registry
}

// Submission is a cancelable view of one in-flight extrinsic. Fire-and-forget
// callers simply discard it; Wait surfaces the terminal error after history
// has been persisted and subscribers notified.
type Submission struct {
	events chan ExtrinsicEvent
	done   chan struct{}
	once   sync.Once
	cancel func()

	mu  sync.Mutex
	err error
}

func New(
	node NodeClient,
	sgn Signer,
	store *history.Store,
	kr *keyring.Keyring,
	registry errmeta.Registry,
) *Submitter {
	return &Submitter{
		node:     node,
		signer:   sgn,
		store:    store,
		keyring:  kr,
		registry: registry,
	}
}

// Submit signs (unless opts.Unsigned) and submits an extrinsic, seeding the
// working history record from opts.HistoryData. The returned Submission
// streams inblock/finalized/error notifications; every status transition is
// persisted before subscribers see it.
func (s *Submitter) Submit(extrinsic string, opts Options) (*Submission, error) {
	if extrinsic == "" {
		return nil, ErrEmptyExtrinsic
	}

	record := &history.Record{}
	if opts.HistoryData != nil {
		record = opts.HistoryData.Copy()
	}
	if record.StartTime == 0 {
		record.StartTime = time.Now().UnixMilli()
	}

	submission := &Submission{
		events: make(chan ExtrinsicEvent, eventBuffer),
		done:   make(chan struct{}),
	}

	go s.run(submission, record, extrinsic, opts)
	return submission, nil
}

// BuildAndSubmit looks the operation kind up in the handler registry, builds
// its call and submits it. Unknown kinds fail synchronously and never touch
// history.
func (s *Submitter) BuildAndSubmit(kind operation.Kind, params operation.Params, opts Options) (*Submission, error) {
	handler, err := operation.Lookup(kind)
	if err != nil {
		return nil, err
	}
	call, err := handler.BuildCall(params)
	if err != nil {
		return nil, err
	}

	if opts.HistoryData == nil {
		opts.HistoryData = &history.Record{}
	}
	if opts.HistoryData.Type == "" {
		opts.HistoryData.Type = string(kind)
	}
	if opts.HistoryData.Amount == "" {
		opts.HistoryData.Amount = params.Amount
	}
	if opts.HistoryData.AssetAddress == "" {
		opts.HistoryData.AssetAddress = params.AssetAddress
	}
	if opts.HistoryData.Asset2Address == "" {
		opts.HistoryData.Asset2Address = params.Asset2Address
	}

	return s.Submit(call, opts)
}

func (s *Submitter) run(submission *Submission, record *history.Record, extrinsic string, opts Options) {
	kind := operation.Kind(record.Type)

	activeAddress, addrErr := s.keyring.ActiveAddress()
	account, accountErr := s.keyring.SigningAccount()
	hasSigner := accountErr == nil

	if !(kind.IsSignerExempt() && hasSigner) {
		if addrErr != nil {
			s.fail(submission, record, opts, addrErr)
			return
		}
		record.From = activeAddress
	}

	messages.NewSdkMessage(
		messages.LOG_LEVEL_INFO,
		"",
		nil,
		messages.SUBMITTER_SUBMITTING,
		record.Type,
		record.From,
	).ConsoleLog()

	signedHex := extrinsic
	if !opts.Unsigned {
		if accountErr != nil {
			s.fail(submission, record, opts, accountErr)
			return
		}

		nonce, err := s.node.NextNonce(activeAddress)
		if err != nil {
			s.fail(submission, record, opts, err)
			return
		}

		signedHex, err = s.signer.Sign(extrinsic, account, nonce)
		// the private half must not outlive the signing step
		if pair := s.keyring.ActivePair(); pair != nil {
			pair.Lock()
		}
		if err != nil {
			s.fail(submission, record, opts, err)
			return
		}
	}

	txId, err := signer.TxHash(signedHex)
	if err != nil {
		s.fail(submission, record, opts, err)
		return
	}
	record.TxId = txId
	if record.Id == "" {
		record.Id = txId
	}
	s.persist(record, opts, false)

	unsubscribe, err := s.node.SubmitAndWatch(
		signedHex,
		func(status interpreter.Status) { s.onStatus(submission, record, kind, opts, status) },
		func(lostErr error) { s.fail(submission, record, opts, lostErr) },
	)
	if err != nil {
		s.fail(submission, record, opts, err)
		return
	}
	submission.setCancel(unsubscribe)
}

// onStatus runs once per node notification, in node order
func (s *Submitter) onStatus(
	submission *Submission,
	record *history.Record,
	kind operation.Kind,
	opts Options,
	status interpreter.Status,
) {
	if submission.finished() {
		return
	}

	messages.NewSdkMessage(
		messages.LOG_LEVEL_INFO,
		"",
		nil,
		messages.SUBMITTER_STATUS_RECEIVED,
		record.Id,
		status.Kind,
	).ConsoleLog()

	record.Apply(interpreter.NextPatch(status))

	if !status.IsFinalized() {
		s.persist(record, opts, false)
		if status.IsInBlock() {
			submission.emit(ExtrinsicEvent{Phase: interpreter.PhaseInBlock, Record: record.Copy()})
		}
		return
	}

	events, err := s.node.BlockEvents(status.Value)
	if err != nil {
		s.fail(submission, record, opts, err)
		return
	}
	// the block's event list spans every extrinsic in it, narrow the scan
	// down to this submission
	extrinsicIdx, err := s.node.ExtrinsicIndex(status.Value, record.TxId)
	if err != nil {
		s.fail(submission, record, opts, err)
		return
	}

	now := time.Now().UnixMilli()
	patch, terminal := interpreter.ReduceBlockEvents(record, kind, events, extrinsicIdx, s.registry, now)
	record.Apply(patch)
	s.persist(record, opts, false)

	messages.NewSdkMessage(
		messages.LOG_LEVEL_INFO,
		"",
		nil,
		messages.SUBMITTER_TERMINAL_STATE,
		record.Id,
		string(terminal.Phase),
	).ConsoleLog()

	submission.emit(ExtrinsicEvent{Phase: terminal.Phase, Record: record.Copy()})
	submission.runCancel()

	if terminal.Phase == interpreter.PhaseError {
		submission.finish(errors.New(errorText(terminal.Err)))
		return
	}
	submission.finish(nil)
}

// fail handles every failure outside on-chain processing: the record is
// classified as terminal error, persisted with its txId stripped when the
// transaction never reached the chain, and only then surfaced to the caller.
func (s *Submitter) fail(submission *Submission, record *history.Record, opts Options, cause error) {
	if submission.finished() {
		return
	}

	now := time.Now().UnixMilli()
	record.Apply(interpreter.FailurePatch(cause, now))
	if record.Id == "" {
		record.Id = interpreter.DeriveFallbackId(record.StartTime)
	}
	s.persist(record, opts, true)

	messages.NewSdkMessage(
		messages.LOG_LEVEL_WARNING,
		messages.GetComponent(s.fail),
		cause,
		messages.SUBMITTER_FAILED,
	).ConsoleLog()

	submission.emit(ExtrinsicEvent{Phase: interpreter.PhaseError, Record: record.Copy()})
	submission.runCancel()
	submission.finish(errors.New(interpreter.ShortenError(cause.Error())))
}

// persist merges the working record into the owning account's ledger. The
// merge target is the record's originating address unless the caller forced
// attribution to the active account.
func (s *Submitter) persist(record *history.Record, opts Options, notGenerated bool) {
	owner := record.From
	if opts.ToActiveAccount || owner == "" {
		if active, err := s.keyring.ActiveAddress(); err == nil {
			owner = active
		}
	}
	namespace := history.Namespace(owner)

	if err := s.store.Merge(namespace, record.Copy(), notGenerated); err != nil {
		messages.NewSdkMessage(
			messages.LOG_LEVEL_WARNING,
			messages.GetComponent(s.persist),
			err,
			messages.HISTORY_PERSIST_FAILED,
			namespace,
		).ConsoleLog()
	}
}

func errorText(errInfo *history.ErrorInfo) string {
	if errInfo == nil {
		return "extrinsic failed"
	}
	if errInfo.Section != "" || errInfo.Name != "" {
		return fmt.Sprintf("%s.%s", errInfo.Section, errInfo.Name)
	}
	return errInfo.Text
}

// Events streams the submission's lifecycle notifications. The channel is
// closed on terminal state.
func (sub *Submission) Events() <-chan ExtrinsicEvent {
	return sub.events
}

// Wait blocks until the terminal state and returns its error, if any
func (sub *Submission) Wait() error {
	<-sub.done
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Cancel abandons the caller's interest. The node subscription is torn down
// on terminal state regardless.
func (sub *Submission) Cancel() {
	sub.runCancel()
}

func (sub *Submission) emit(event ExtrinsicEvent) {
	select {
	case sub.events <- event:
	default:
	}
}

func (sub *Submission) finish(err error) {
	sub.once.Do(func() {
		sub.mu.Lock()
		sub.err = err
		sub.mu.Unlock()
		close(sub.events)
		close(sub.done)
	})
}

func (sub *Submission) finished() bool {
	select {
	case <-sub.done:
		return true
	default:
		return false
	}
}

func (sub *Submission) setCancel(cancel func()) {
	sub.mu.Lock()
	sub.cancel = cancel
	sub.mu.Unlock()
	// terminal state may have raced ahead of the subscribe call
	if sub.finished() {
		sub.runCancel()
	}
}

func (sub *Submission) runCancel() {
	sub.mu.Lock()
	cancel := sub.cancel
	sub.cancel = nil
	sub.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
