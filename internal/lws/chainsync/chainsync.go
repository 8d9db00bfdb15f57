// Package chainsync implements the scanner's chain-tail bootstrap:
// build a locator from local storage, ask the peer which of those
// hashes it still recognizes, and append whatever new blocks it
// reports past the fork point.
package chainsync

import (
	"context"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/peer"
)

// Peer is the subset of peer.Client chain sync needs, so tests can
// substitute a fake without standing up a websocket server.
type Peer interface {
	GetHashesFast(ctx context.Context, params peer.GetHashesFastParams) (*peer.GetHashesFastResult, error)
}

// maxLocatorStep caps how many of a get_hashes_fast response's newest
// hashes get folded into the next round's locator, mirroring
// original_source's ten-entry splice limit.
const maxLocatorStep = 10

// Sync repeats the locator exchange against p until storage converges
// with the peer's chain: build a locator, ask what the peer still
// recognizes, append whatever new hashes it reports, and rebuild the
// locator from the response's newest entries plus the locator's own
// oldest (anchor) entry for the next round. It stops as soon as the
// peer returns at most one hash, or its last hash already matches the
// locator's first (newest) hash -- either way, storage is aligned and
// nothing new needs to be applied. It returns the last height this call
// wrote to storage, or 0 if it wrote nothing.
func Sync(ctx context.Context, p Peer, storage *db.Storage, genesisHash [32]byte) (db.BlockId, error) {
	r, err := storage.StartRead()
	if err != nil {
		return 0, lws.NewError(lws.ErrUnknown, "failed to start chain locator read", err)
	}
	locator, err := r.GetChainSync()
	r.Close()
	if err != nil {
		return 0, lws.NewError(lws.ErrUnknown, "failed to build chain locator", err)
	}

	var tip db.BlockId
	checkedGenesis := genesisHash == [32]byte{}

	for {
		if len(locator) == 0 {
			return 0, lws.NewError(lws.ErrBadBlockchain, "no known hashes to build a chain locator from", nil)
		}

		res, err := p.GetHashesFast(ctx, peer.GetHashesFastParams{
			BlockIds: locator,
		})
		if err != nil {
			return 0, lws.NewError(lws.ErrDaemonConnectionFailure, "get_hashes_fast failed", err)
		}
		if len(res.BlockIds) == 0 {
			return 0, lws.NewError(lws.ErrBadBlockchain, "peer reported an empty chain", nil)
		}

		if !checkedGenesis && res.StartHeight == 0 {
			if res.BlockIds[0] != genesisHash {
				return 0, lws.NewError(lws.ErrBadBlockchain, "peer genesis hash does not match configured network", nil)
			}
			checkedGenesis = true
		}

		if len(res.BlockIds) <= 1 || res.BlockIds[len(res.BlockIds)-1] == locator[0] {
			log.Debugf("Chain sync converged at height %d (daemon reports current height %d)", tip, res.CurrentHeight)
			return tip, nil
		}

		if err := storage.SyncChain(db.BlockId(res.StartHeight), res.BlockIds); err != nil {
			return 0, err
		}
		tip = db.BlockId(res.StartHeight) + db.BlockId(len(res.BlockIds)-1)
		log.Debugf("Chain synced through height %d, continuing convergence (daemon reports current height %d)", tip, res.CurrentHeight)

		anchor := locator[len(locator)-1]
		next := make([][32]byte, 0, maxLocatorStep+1)
		for i := len(res.BlockIds) - 1; i >= 0 && len(next) < maxLocatorStep; i-- {
			next = append(next, res.BlockIds[i])
		}
		next = append(next, anchor)
		locator = next
	}
}
