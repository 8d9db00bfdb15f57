// Package scan implements the scanner's steady-state block-matching
// loop, grounded on original_source's scan_loop and
// scan_transaction: eagerly pipeline the next block-fetch request while
// the current batch is being matched, detect ownership and spends for
// every active account against every transaction in the batch, then
// commit the whole batch atomically through db.Storage.Update.
package scan

import (
	"bytes"
	"context"
	"time"

	"github.com/lightningnetwork/lnd/ticker"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/account"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/moneroutil"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/peer"
)

// blockPollInterval is how long a worker waits before re-requesting the
// next batch when the daemon has nothing new (original_source's
// block_poll_interval).
const blockPollInterval = 20 * time.Second

// Peer is the subset of peer.Client a worker needs.
type Peer interface {
	GetBlocksFast(ctx context.Context, params peer.GetBlocksFastParams) (*peer.GetBlocksFastResult, error)
}

// BlockDecoder parses a peer-reported raw block into the shape
// scanTransaction consumes. Decoding cryptonote's binary block/tx wire
// format is a black-box concern the same way the crypto operations in
// moneroutil are: this package never reimplements that format, it
// consumes already-decoded blocks from an injected decoder.
type BlockDecoder interface {
	DecodeBlock(height db.BlockId, entry peer.BlockCompleteEntry) (Block, error)
}

// Block is a decoded block a worker matches transactions from. Decoding
// the wire BlockCompleteEntry into this shape is left to a chain-format
// package outside this one's scope; scan only consumes already-decoded
// blocks, keeping the matching algorithm itself free of wire-format
// concerns.
type Block struct {
	Height    db.BlockId
	Hash      [32]byte
	Timestamp db.AccountTime
	Coinbase  Transaction
	Txs       []Transaction
}

// Transaction is one decoded transaction: enough of it to run
// scanTransaction's matching pass.
type Transaction struct {
	Hash         [32]byte
	PrefixHash   [32]byte
	UnlockTime   uint64
	TxPublic     [32]byte
	HasTxPublic  bool
	RingMembers  [][]db.Offset // one ring per input; empty for a coinbase tx
	KeyImages    [][32]byte    // parallel to RingMembers
	Outputs      []TxOutput
	OutputIdx    []uint64 // global output index, parallel to Outputs
	PaymentID    [32]byte
	PaymentIDLen uint8
}

// TxOutput is one output within a Transaction.
type TxOutput struct {
	Public        [32]byte
	Amount        uint64 // 0 for a ringCT output, whose amount is encrypted
	EncryptedMask [32]byte
	IsRingCT      bool
}

// Worker scans blocks for a fixed shard of accounts, sorted by scan
// height the way original_source's by_height comparator requires, and
// commits matches through storage as it goes.
type Worker struct {
	peer    Peer
	storage *db.Storage
	crypto  moneroutil.Crypto
	decoder BlockDecoder
	cancel  <-chan struct{}
	users   []*account.Account
	idle    ticker.Ticker
}

// NewWorker builds a Worker for a shard of accounts. users must already
// be sorted by ascending scan height (the supervisor's sharding step
// guarantees this).
func NewWorker(p Peer, storage *db.Storage, crypto moneroutil.Crypto, decoder BlockDecoder, cancel <-chan struct{}, users []*account.Account) *Worker {
	return &Worker{
		peer: p, storage: storage, crypto: crypto, decoder: decoder,
		cancel: cancel, users: users, idle: ticker.New(blockPollInterval),
	}
}

// Run drives the worker's steady-state loop until ctx is done, the
// cancel channel closes, or it detects a reorg or an active-set drift
// requiring the supervisor to rebuild every worker.
func (w *Worker) Run(ctx context.Context) error {
	if len(w.users) == 0 {
		return nil
	}

	start := uint64(w.users[0].ScanHeight())
	if start < 1 {
		start = 1 // height 0 (genesis) is addressed by block_ids, not height
	}
	req := peer.GetBlocksFastParams{StartHeight: start, Prune: false}

	resCh := make(chan fetchResult, 1)
	go w.fetch(ctx, req, resCh)

	for {
		select {
		case <-w.cancel:
			return lws.NewError(lws.ErrAbortScan, "scan canceled", nil)
		case <-ctx.Done():
			return lws.NewError(lws.ErrAbortScan, "scan context done", ctx.Err())
		case res := <-resCh:
			if res.err != nil {
				if lws.Is(res.err, lws.ErrDaemonConnectionFailure) {
					log.Warnf("Block retrieval timeout, retrying: %v", res.err)
					go w.fetch(ctx, req, resCh)
					continue
				}
				return res.err
			}
			next, hashes, blocks, err := w.applyResponse(req.StartHeight, res.result)
			if err != nil {
				return err
			}
			if len(blocks) == 0 {
				// Nothing new: wait a beat, then re-poll at the same height.
				w.idle.Resume()
				select {
				case <-w.idle.Ticks():
					w.idle.Stop()
				case <-w.cancel:
					return lws.NewError(lws.ErrAbortScan, "scan canceled", nil)
				case <-ctx.Done():
					return lws.NewError(lws.ErrAbortScan, "scan context done", ctx.Err())
				}
				go w.fetch(ctx, req, resCh)
				continue
			}

			anchorHeight := db.BlockId(req.StartHeight)
			req = peer.GetBlocksFastParams{StartHeight: next, Prune: false}
			go w.fetch(ctx, req, resCh) // pipeline the next request eagerly

			if err := w.commit(anchorHeight, hashes, blocks); err != nil {
				return err
			}
		}
	}
}

type fetchResult struct {
	result *peer.GetBlocksFastResult
	err    error
}

func (w *Worker) fetch(ctx context.Context, req peer.GetBlocksFastParams, out chan<- fetchResult) {
	res, err := w.peer.GetBlocksFast(ctx, req)
	out <- fetchResult{result: res, err: err}
}

// applyResponse validates a get_blocks_fast response and decodes its
// blocks. Every response to a request above height 1 repeats the block
// already at requestedStart as an anchor the caller re-verifies against
// storage before trusting the rest; applyResponse decodes that block too
// (for its hash, in hashes[0]) but excludes it from blocks, since its
// transactions were already matched by a prior commit. A request at
// requestedStart == 1 (genesis addressed by block_ids rather than
// height) is treated as carrying no anchor: every returned block is new
// and height 1 is the first one scanned.
func (w *Worker) applyResponse(requestedStart uint64, res *peer.GetBlocksFastResult) (nextStart uint64, hashes [][32]byte, blocks []Block, err error) {
	if res == nil || len(res.Blocks) == 0 {
		return 0, nil, nil, lws.NewError(lws.ErrUnknown, "daemon unexpectedly returned zero blocks", nil)
	}
	if res.StartHeight != requestedStart {
		return 0, nil, nil, lws.NewError(lws.ErrBadBlockchain, "daemon sent wrong blocks, resetting state", nil)
	}

	nextStart = res.StartHeight + uint64(len(res.Blocks)) - 1
	if len(res.Blocks) <= 1 {
		return nextStart, nil, nil, nil
	}

	hasAnchor := res.StartHeight != 1
	height := db.BlockId(res.StartHeight)
	if !hasAnchor {
		height = 1
	}

	decoded := make([]Block, len(res.Blocks))
	for i, entry := range res.Blocks {
		b, err := w.decoder.DecodeBlock(height, entry)
		if err != nil {
			return 0, nil, nil, err
		}
		decoded[i] = b
		height++
	}

	hashes = make([][32]byte, len(decoded))
	for i, b := range decoded {
		hashes[i] = b.Hash
	}

	if hasAnchor {
		blocks = decoded[1:]
	} else {
		blocks = decoded
	}
	return nextStart, hashes, blocks, nil
}

// commit matches every decoded block against every account, then
// commits the whole batch atomically through db.Storage.Update.
// anchorHeight is the height of hashes[0], which Update re-verifies
// against what it already has stored before writing anything newer.
func (w *Worker) commit(anchorHeight db.BlockId, hashes [][32]byte, blocks []Block) error {
	startHeight := w.users[0].ScanHeight()

	for _, b := range blocks {
		scanTransaction(w.users, b.Height, b.Timestamp, b.Coinbase, w.crypto)
		for _, tx := range b.Txs {
			scanTransaction(w.users, b.Height, b.Timestamp, tx, w.crypto)
		}
	}

	newHeight := blocks[len(blocks)-1].Height
	pending := make([]db.PendingUser, len(w.users))
	for i, u := range w.users {
		pending[i] = u.ToPendingUser(startHeight, newHeight)
	}

	updated, err := w.storage.Update(anchorHeight, hashes, pending)
	if err != nil {
		if lws.Is(err, lws.ErrBlockchainReorg) {
			log.Infof("Blockchain reorg detected, resetting state")
		}
		return err
	}
	if updated != len(w.users) {
		log.Warnf("Only updated %d account(s) out of %d, resetting", updated, len(w.users))
		return lws.NewError(lws.ErrBlockchainReorg, "active account set drifted mid-batch", nil)
	}

	log.Infof("Processed %d block(s) against %d account(s)", len(blocks), len(w.users))
	for _, u := range w.users {
		u.Updated(newHeight)
	}
	return nil
}

// scanTransaction is original_source's scan_transaction: for every
// account not already past height, derive the shared secret with tx's
// public key, check every input's ring for spends this account owns,
// then check every output for ownership, recording a match.
func scanTransaction(users []*account.Account, height db.BlockId, timestamp db.AccountTime, tx Transaction, crypto moneroutil.Crypto) {
	if !tx.HasTxPublic {
		return
	}

	for _, user := range users {
		if height <= user.ScanHeight() {
			continue
		}

		derivation, ok := crypto.GenerateKeyDerivation(tx.TxPublic, user.ViewKey())
		if !ok {
			continue
		}

		ringSize := 0
		for i, ring := range tx.RingMembers {
			ringSize = len(ring)
			user.CheckSpends(tx.KeyImages[i], ring)
		}

		variant := db.ExtraNone
		if ringSize == 0 {
			variant = db.ExtraCoinbase
		}

		for index, out := range tx.Outputs {
			spendPublic := user.Address().SpendPublic
			derived, ok := crypto.DerivePublicKey(derivation, uint32(index), spendPublic)
			if !ok || !bytes.Equal(derived[:], out.Public[:]) {
				continue
			}

			amount := out.Amount
			mask := out.EncryptedMask
			outVariant := variant
			if out.IsRingCT {
				amount, mask = crypto.DecryptAmount(derivation, uint32(index), out.Amount, out.EncryptedMask)
				outVariant |= db.ExtraRingct
			}

			mixin := uint32(0)
			if ringSize > 0 {
				mixin = uint32(ringSize) - 1
			}

			user.AddOut(db.Output{
				Height:       height,
				Id:           db.OutputId(tx.OutputIdx[index]),
				Amount:       amount,
				Timestamp:    timestamp,
				UnlockTime:   tx.UnlockTime,
				MixinCount:   mixin,
				IndexInTx:    uint32(index),
				TxHash:       tx.Hash,
				TxPrefixHash: tx.PrefixHash,
				TxPublic:     tx.TxPublic,
				RingctMask:   mask,
				ExtraFlags:   db.PackExtraFlags(outVariant, tx.PaymentIDLen),
				PaymentId:    tx.PaymentID,
			})
		}
	}
}
